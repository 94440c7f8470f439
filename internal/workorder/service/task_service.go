package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/workorder/derive"
	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

// TaskService 任务操作。
//
// 任务行用乐观锁：调用方携带读到的 lock_version，版本不匹配说明
// 任务已被并发改写，返回 ErrStaleVersion 由调用方重读重试。
type TaskService struct {
	repos     *repository.Repositories
	catalog   *CatalogService
	publisher EventPublisher
	logger    *zap.Logger
}

// NewTaskService 创建任务服务
func NewTaskService(repos *repository.Repositories, catalog *CatalogService, publisher EventPublisher, logger *zap.Logger) *TaskService {
	return &TaskService{repos: repos, catalog: catalog, publisher: publisher, logger: logger}
}

// Get 查询任务
func (s *TaskService) Get(ctx context.Context, id string) (*entity.WorkOrderTask, error) {
	return s.repos.Task.FindByID(ctx, id)
}

// ListByWorkOrder 施工单任务链
func (s *TaskService) ListByWorkOrder(ctx context.Context, workOrderID string) ([]entity.WorkOrderTask, error) {
	return s.repos.Task.ListByWorkOrder(ctx, workOrderID)
}

// List 分页查询任务
func (s *TaskService) List(ctx context.Context, status, departmentID, operatorID string, page, pageSize int) ([]entity.WorkOrderTask, int64, error) {
	return s.repos.Task.List(ctx, status, departmentID, operatorID, page, pageSize)
}

// Logs 任务日志
func (s *TaskService) Logs(ctx context.Context, taskID string) ([]entity.TaskLog, error) {
	return s.repos.Task.ListLogs(ctx, taskID)
}

// canOperate 业务员只能把任务推进到 assigned 为止
func canOperate(actor *entity.User, targetStatus string) bool {
	if actor == nil {
		return false
	}
	if actor.HasGroup(entity.RoleAdmin) {
		return true
	}
	if actor.HasGroup(entity.RoleSalesperson) {
		switch targetStatus {
		case entity.TaskStatusInProgress, entity.TaskStatusCompleted:
			return false
		}
	}
	return true
}

// ChangeStatus 推进任务状态。expectedVersion 为调用方读到的乐观锁版本。
func (s *TaskService) ChangeStatus(ctx context.Context, taskID, status string, expectedVersion int, actor *entity.User) (*entity.WorkOrderTask, error) {
	t, err := s.repos.Task.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canOperate(actor, status) {
		return nil, woerr.ErrUnauthorized
	}
	if !entity.CanTransitionTask(t.Status, status) {
		return nil, woerr.NewValidation("status", "cannot change %s to %s", t.Status, status)
	}

	before := t.Status
	t.Status = status
	if status == entity.TaskStatusCancelled {
		t.AssignedDepartmentID = nil
		t.AssignedOperatorID = nil
	}

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.Task.UpdateWithVersion(ctx, t, expectedVersion); err != nil {
			return err
		}
		return tx.Task.CreateLog(ctx, &entity.TaskLog{
			ID:           newID(),
			TaskID:       t.ID,
			LogType:      entity.TaskLogStatusChange,
			StatusBefore: before,
			StatusAfter:  status,
			OperatorID:   operatorID(actor),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(NewEvent(EventTaskStateChanged, t.WorkOrderID, t.ID))
	return t, nil
}

// Assign 指派任务到部门/操作工并置为 assigned
func (s *TaskService) Assign(ctx context.Context, taskID string, departmentID, userID *string, expectedVersion int, actor *entity.User) (*entity.WorkOrderTask, error) {
	t, err := s.repos.Task.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransitionTask(t.Status, entity.TaskStatusAssigned) {
		return nil, woerr.NewValidation("status", "cannot assign a %s task", t.Status)
	}
	if departmentID != nil {
		if _, err := s.repos.User.FindDepartmentByID(ctx, *departmentID); err != nil {
			return nil, woerr.NewValidation("department_id", "unknown department")
		}
	}
	if userID != nil {
		if _, err := s.repos.User.FindByID(ctx, *userID); err != nil {
			return nil, woerr.NewValidation("operator_id", "unknown user")
		}
	}

	before := t.Status
	t.Status = entity.TaskStatusAssigned
	t.AssignedDepartmentID = departmentID
	t.AssignedOperatorID = userID

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.Task.UpdateWithVersion(ctx, t, expectedVersion); err != nil {
			return err
		}
		return tx.Task.CreateLog(ctx, &entity.TaskLog{
			ID:           newID(),
			TaskID:       t.ID,
			LogType:      entity.TaskLogStatusChange,
			StatusBefore: before,
			StatusAfter:  t.Status,
			OperatorID:   operatorID(actor),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(NewEvent(EventTaskStateChanged, t.WorkOrderID, t.ID))
	return t, nil
}

// BindPlate 手工改绑任务的版。工序必须需要该种类；
// 烫印任务只接受类型匹配的烫版。
func (s *TaskService) BindPlate(ctx context.Context, taskID, kind, plateID string, expectedVersion int, actor *entity.User) (*entity.WorkOrderTask, error) {
	t, err := s.repos.Task.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !entity.IsDerivableTaskStatus(t.Status) {
		return nil, woerr.NewValidation("status", "cannot rebind a %s task", t.Status)
	}

	proc, ok := s.catalog.Lookup(t.ProcessCode)
	if !ok {
		return nil, fmt.Errorf("process %q: %w", t.ProcessCode, woerr.ErrStaleReference)
	}
	requires := false
	for _, k := range proc.RequiredPlateKinds() {
		if k == kind {
			requires = true
			break
		}
	}
	if !requires {
		return nil, woerr.NewValidation("kind", "process %s does not use a %s", t.ProcessCode, kind)
	}

	switch kind {
	case entity.PlateKindArtwork:
		if _, err := s.repos.Artwork.FindByID(ctx, plateID); err != nil {
			return nil, err
		}
		t.ArtworkID = &plateID
	case entity.PlateKindDie:
		if _, err := s.repos.Die.FindByID(ctx, plateID); err != nil {
			return nil, err
		}
		t.DieID = &plateID
	case entity.PlateKindFoilingPlate:
		plate, err := s.repos.Foiling.FindByID(ctx, plateID)
		if err != nil {
			return nil, err
		}
		if want := derive.FoilingTypeForProcess(t.ProcessCode); want != "" && plate.FoilingType != want {
			return nil, woerr.ErrPlateTypeMismatch
		}
		t.FoilingPlateID = &plateID
	case entity.PlateKindEmbossingPlate:
		if _, err := s.repos.Embossing.FindByID(ctx, plateID); err != nil {
			return nil, err
		}
		t.EmbossingPlateID = &plateID
	default:
		return nil, woerr.NewValidation("kind", "unknown plate kind %q", kind)
	}

	// 所需版齐备后待版任务回到 pending
	if t.Status == entity.TaskStatusAwaitingPlate {
		complete := true
		for _, k := range proc.RequiredPlateKinds() {
			if t.PlateIDFor(k) == nil {
				complete = false
				break
			}
		}
		if complete {
			t.Status = entity.TaskStatusPending
		}
	}

	if err := s.repos.Task.UpdateWithVersion(ctx, t, expectedVersion); err != nil {
		return nil, err
	}
	s.publisher.Publish(NewEvent(EventTaskUpdated, t.WorkOrderID, t.ID))
	return t, nil
}

// UpdateQuantity 上报完成数量
func (s *TaskService) UpdateQuantity(ctx context.Context, taskID string, completed int, expectedVersion int, actor *entity.User) (*entity.WorkOrderTask, error) {
	if completed < 0 {
		return nil, woerr.NewValidation("quantity_completed", "must not be negative")
	}
	t, err := s.repos.Task.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if entity.IsTerminalTaskStatus(t.Status) {
		return nil, woerr.NewValidation("status", "task is closed")
	}

	before := t.QuantityCompleted
	t.QuantityCompleted = completed

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.Task.UpdateWithVersion(ctx, t, expectedVersion); err != nil {
			return err
		}
		return tx.Task.CreateLog(ctx, &entity.TaskLog{
			ID:             newID(),
			TaskID:         t.ID,
			LogType:        entity.TaskLogUpdateQuantity,
			QuantityBefore: &before,
			QuantityAfter:  &completed,
			OperatorID:     operatorID(actor),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(NewEvent(EventTaskUpdated, t.WorkOrderID, t.ID))
	return t, nil
}

func operatorID(actor *entity.User) *string {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}
