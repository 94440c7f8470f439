package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create 创建任务
func (r *TaskRepository) Create(ctx context.Context, t *entity.WorkOrderTask) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// CreateBatch 批量创建任务
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []entity.WorkOrderTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

// FindByID 根据ID查找任务
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrderTask, error) {
	var t entity.WorkOrderTask
	err := r.db.WithContext(ctx).
		Preload("Artwork").
		Preload("Die").
		Preload("FoilingPlate").
		Preload("EmbossingPlate").
		Preload("Material").
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &t, nil
}

// ListByWorkOrder 施工单下全部任务，按位置排列
func (r *TaskRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]entity.WorkOrderTask, error) {
	var tasks []entity.WorkOrderTask
	err := r.db.WithContext(ctx).
		Preload("Artwork").
		Preload("Die").
		Preload("FoilingPlate").
		Preload("EmbossingPlate").
		Preload("Material").
		Where("work_order_id = ?", workOrderID).
		Order("position ASC, created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// List 分页查询任务
func (r *TaskRepository) List(ctx context.Context, status, departmentID, operatorID string, page, pageSize int) ([]entity.WorkOrderTask, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrderTask{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if departmentID != "" {
		query = query.Where("assigned_department_id = ?", departmentID)
	}
	if operatorID != "" {
		query = query.Where("assigned_operator_id = ?", operatorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []entity.WorkOrderTask
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&tasks).Error
	return tasks, total, err
}

// taskPlateColumns 版种类到任务表字段的映射
var taskPlateColumns = map[string]string{
	entity.PlateKindArtwork:        "artwork_id",
	entity.PlateKindDie:            "die_id",
	entity.PlateKindFoilingPlate:   "foiling_plate_id",
	entity.PlateKindEmbossingPlate: "embossing_plate_id",
}

// ListActiveByPlate 绑定了某个版且未进终态的任务
func (r *TaskRepository) ListActiveByPlate(ctx context.Context, kind, plateID string) ([]entity.WorkOrderTask, error) {
	col, ok := taskPlateColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown plate kind %q", kind)
	}
	var tasks []entity.WorkOrderTask
	err := r.db.WithContext(ctx).
		Where(fmt.Sprintf("%s = ?", col), plateID).
		Where("status NOT IN ?", []string{entity.TaskStatusCompleted, entity.TaskStatusCancelled}).
		Find(&tasks).Error
	return tasks, err
}

// Update 更新任务（不做版本校验，派生流程在聚合锁内使用）
func (r *TaskRepository) Update(ctx context.Context, t *entity.WorkOrderTask) error {
	return r.db.WithContext(ctx).Omit(
		"Artwork", "Die", "FoilingPlate", "EmbossingPlate", "Material",
	).Save(t).Error
}

// UpdateWithVersion 乐观锁更新：版本号不匹配返回 ErrStaleVersion。
// 成功后 t.LockVersion 已递增。
func (r *TaskRepository) UpdateWithVersion(ctx context.Context, t *entity.WorkOrderTask, expectedVersion int) error {
	t.LockVersion = expectedVersion + 1
	result := r.db.WithContext(ctx).Model(&entity.WorkOrderTask{}).
		Where("id = ? AND lock_version = ?", t.ID, expectedVersion).
		Select("status", "work_content", "artwork_id", "die_id", "foiling_plate_id",
			"embossing_plate_id", "material_id", "depends_on_position",
			"assigned_department_id", "assigned_operator_id",
			"production_quantity", "quantity_completed", "lock_version").
		Updates(t)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

// ClearPlateRefs 清空所有任务上对某个版的引用（删版时级联）
func (r *TaskRepository) ClearPlateRefs(ctx context.Context, kind, plateID string) error {
	col, ok := taskPlateColumns[kind]
	if !ok {
		return fmt.Errorf("unknown plate kind %q", kind)
	}
	return r.db.WithContext(ctx).Model(&entity.WorkOrderTask{}).
		Where(fmt.Sprintf("%s = ?", col), plateID).
		Update(col, nil).Error
}

// Delete 删除任务
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.WorkOrderTask{}, "id = ?", id).Error
}

// CreateLog 写任务日志
func (r *TaskRepository) CreateLog(ctx context.Context, log *entity.TaskLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListLogs 任务日志，按时间排列
func (r *TaskRepository) ListLogs(ctx context.Context, taskID string) ([]entity.TaskLog, error) {
	var logs []entity.TaskLog
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
