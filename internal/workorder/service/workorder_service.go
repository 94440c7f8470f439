package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/config"
	"github.com/bitfantasy/printmes/internal/workorder/derive"
	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

// WorkOrderService 施工单聚合。
//
// 所有写操作在同一把聚合锁（redis 分布式锁 lock:workorder:<id>）和
// 一个带截止时间的事务内执行：加载聚合、修改、重派生任务、落库。
// 事件在事务提交后投递，提交顺序即事件顺序。
type WorkOrderService struct {
	repos     *repository.Repositories
	catalog   *CatalogService
	locker    *redislock.Client
	publisher EventPublisher
	cfg       *config.Config
	logger    *zap.Logger
}

// NewWorkOrderService 创建施工单服务
func NewWorkOrderService(repos *repository.Repositories, catalog *CatalogService, locker *redislock.Client, publisher EventPublisher, cfg *config.Config, logger *zap.Logger) *WorkOrderService {
	return &WorkOrderService{
		repos:     repos,
		catalog:   catalog,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// mutate 在聚合锁与限时事务内执行 fn，提交后按序投递收集到的事件
func (s *WorkOrderService) mutate(ctx context.Context, orderID string, fn func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WorkOrder.MutationTimeout)
	defer cancel()

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, "lock:workorder:"+orderID, s.cfg.WorkOrder.LockTTL, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
		})
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				return woerr.ErrTimeout
			}
			return err
		}
		defer func() { _ = lock.Release(ctx) }()
	}

	var events []Event
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		order, err := tx.WorkOrder.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		return fn(ctx, tx, order, &events)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return woerr.ErrTimeout
		}
		return err
	}

	for _, e := range events {
		s.publisher.Publish(e)
	}
	return nil
}

// rederive 重算任务链并套用最小调整计划，事件追加到 events
func (s *WorkOrderService) rederive(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
	var links []entity.PlateLink
	for i := range order.Artworks {
		ls, err := tx.PlateLink.ListFor(ctx, order.Artworks[i].ID, entity.PlateKindArtwork)
		if err != nil {
			return err
		}
		links = append(links, ls...)
	}

	specs, err := derive.Derive(order, s.catalog.Snapshot(), links)
	if err != nil {
		return err
	}

	existing, err := tx.Task.ListByWorkOrder(ctx, order.ID)
	if err != nil {
		return err
	}

	changes := derive.Plan(existing, specs)
	for _, c := range changes.Conflicts {
		s.logger.Warn("derived chain diverges from a frozen task",
			zap.String("work_order_id", order.ID),
			zap.Int("position", c.Position),
			zap.String("task_process", c.Task.ProcessCode),
			zap.String("derived_process", c.Spec.ProcessCode))
	}

	for i := range changes.Cancel {
		t := changes.Cancel[i]
		t.Status = entity.TaskStatusCancelled
		t.LockVersion++
		if err := tx.Task.Update(ctx, t); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventTaskStateChanged, order.ID, t.ID))
	}
	for _, u := range changes.Update {
		derive.ApplySpec(u.Task, u.Spec)
		if err := tx.Task.Update(ctx, u.Task); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventTaskUpdated, order.ID, u.Task.ID))
	}
	for _, spec := range changes.Create {
		t := derive.NewTask(order.ID, spec)
		t.ID = newID()
		if err := tx.Task.Create(ctx, &t); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventTaskCreated, order.ID, t.ID))
	}
	return nil
}

// nextOrderNumber 生成 年月+三位序号 的施工单号
func (s *WorkOrderService) nextOrderNumber(ctx context.Context, tx *repository.Repositories) (string, error) {
	prefix := time.Now().Format("200601")
	maxNumber, err := tx.WorkOrder.MaxOrderNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	seq := 1
	if strings.HasPrefix(maxNumber, prefix) {
		if n, err := strconv.Atoi(maxNumber[len(prefix):]); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

// WorkOrderInput 施工单创建入参
type WorkOrderInput struct {
	CustomerID         *string    `json:"customer_id"`
	ProductID          string     `json:"product_id"`
	ProductionQuantity int        `json:"production_quantity"`
	Priority           string     `json:"priority"`
	OrderDate          *time.Time `json:"order_date"`
	DeliveryDate       *time.Time `json:"delivery_date"`
	ManagerID          *string    `json:"manager_id"`
	Notes              string     `json:"notes"`
}

// Create 从产品快照创建施工单。
// 工序链与物料从产品复制，之后产品的改动不再影响本单。
// 创建即派生首版任务链。
func (s *WorkOrderService) Create(ctx context.Context, in *WorkOrderInput, userID string) (*entity.WorkOrder, error) {
	if in.ProductID == "" {
		return nil, woerr.NewValidation("product_id", "product_id is required")
	}
	if in.ProductionQuantity <= 0 {
		return nil, woerr.NewValidation("production_quantity", "must be positive")
	}
	product, err := s.repos.Product.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if in.CustomerID != nil {
		if _, err := s.repos.Customer.FindByID(ctx, *in.CustomerID); err != nil {
			return nil, woerr.NewValidation("customer_id", "unknown customer")
		}
	}
	priority := in.Priority
	if priority == "" {
		priority = entity.PriorityNormal
	}

	order := &entity.WorkOrder{
		ID:                 newID(),
		CustomerID:         in.CustomerID,
		ProductID:          &product.ID,
		ProcessCodes:       append(entity.StringList{}, product.ProcessCodes...),
		Status:             entity.WorkOrderStatusPending,
		Priority:           priority,
		ApprovalStatus:     entity.ApprovalStatusPending,
		OrderDate:          in.OrderDate,
		DeliveryDate:       in.DeliveryDate,
		ProductionQuantity: in.ProductionQuantity,
		ManagerID:          in.ManagerID,
		Notes:              in.Notes,
		CreatedBy:          userID,
	}

	var events []Event
	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		number, err := s.nextOrderNumber(ctx, tx)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.WorkOrder.Create(ctx, order); err != nil {
			return err
		}

		materials := make([]entity.WorkOrderMaterial, 0, len(product.Materials))
		for _, pm := range product.Materials {
			materials = append(materials, entity.WorkOrderMaterial{
				ID:          newID(),
				WorkOrderID: order.ID,
				MaterialID:  pm.MaterialID,
				Usage:       pm.Usage,
				NeedCutting: pm.NeedCutting,
				Notes:       pm.Notes,
				SortOrder:   pm.SortOrder,
			})
		}
		if len(materials) > 0 {
			if err := tx.WorkOrder.ReplaceMaterials(ctx, order.ID, materials); err != nil {
				return err
			}
		}

		loaded, err := tx.WorkOrder.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		return s.rederive(ctx, tx, loaded, &events)
	})
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		s.publisher.Publish(e)
	}
	s.logger.Info("work order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("product_id", product.ID))
	return s.repos.WorkOrder.FindByID(ctx, order.ID)
}

// Get 查询施工单及全部关联
func (s *WorkOrderService) Get(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.repos.WorkOrder.FindByID(ctx, id)
}

// List 分页查询施工单
func (s *WorkOrderService) List(ctx context.Context, status, approvalStatus, customerID, keyword string, page, pageSize int) ([]entity.WorkOrder, int64, error) {
	return s.repos.WorkOrder.List(ctx, status, approvalStatus, customerID, keyword, page, pageSize)
}

// WorkOrderUpdateInput 施工单基础字段修改
type WorkOrderUpdateInput struct {
	CustomerID         *string    `json:"customer_id"`
	Priority           string     `json:"priority"`
	OrderDate          *time.Time `json:"order_date"`
	DeliveryDate       *time.Time `json:"delivery_date"`
	ProductionQuantity *int       `json:"production_quantity"`
	ManagerID          *string    `json:"manager_id"`
	Notes              *string    `json:"notes"`
}

// Update 修改施工单基础字段。数量变化会重派生任务。
func (s *WorkOrderService) Update(ctx context.Context, orderID string, in *WorkOrderUpdateInput) error {
	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		if !order.IsOpen() {
			return woerr.NewValidation("status", "work order is closed")
		}
		quantityChanged := false
		if in.CustomerID != nil {
			order.CustomerID = in.CustomerID
		}
		if in.Priority != "" {
			order.Priority = in.Priority
		}
		if in.OrderDate != nil {
			order.OrderDate = in.OrderDate
		}
		if in.DeliveryDate != nil {
			order.DeliveryDate = in.DeliveryDate
		}
		if in.ProductionQuantity != nil {
			if *in.ProductionQuantity <= 0 {
				return woerr.NewValidation("production_quantity", "must be positive")
			}
			quantityChanged = order.ProductionQuantity != *in.ProductionQuantity
			order.ProductionQuantity = *in.ProductionQuantity
		}
		if in.ManagerID != nil {
			order.ManagerID = in.ManagerID
		}
		if in.Notes != nil {
			order.Notes = *in.Notes
		}

		if err := tx.WorkOrder.Update(ctx, order); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		if quantityChanged {
			return s.rederive(ctx, tx, order, events)
		}
		return nil
	})
}

// BindPlate 把版绑定到施工单。绑定后声明自动修复为 need_*（图稿
// 同时重算印刷颜色），任务链重派生。includeLinked 为真时，版库中
// 与该版关联且尚未绑定的其他种类的版一并绑定。
func (s *WorkOrderService) BindPlate(ctx context.Context, orderID, kind, plateID string, includeLinked bool) error {
	toBind := []struct{ kind, id string }{{kind, plateID}}

	if err := s.plateExists(ctx, kind, plateID); err != nil {
		return err
	}
	if includeLinked {
		links, err := s.repos.PlateLink.ListFor(ctx, plateID, kind)
		if err != nil {
			return err
		}
		for _, link := range links {
			otherID, otherKind := link.PlateBID, link.PlateBKind
			if otherID == plateID && otherKind == kind {
				otherID, otherKind = link.PlateAID, link.PlateAKind
			}
			toBind = append(toBind, struct{ kind, id string }{otherKind, otherID})
		}
	}

	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		if !order.IsOpen() {
			return woerr.NewValidation("status", "work order is closed")
		}
		for _, b := range toBind {
			if err := tx.WorkOrder.BindPlate(ctx, order.ID, b.kind, b.id); err != nil {
				return err
			}
		}

		order, err := tx.WorkOrder.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := s.repairDeclarations(ctx, tx, order); err != nil {
			return err
		}
		if err := s.rederive(ctx, tx, order, events); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}

// UnbindPlate 解除版绑定；解绑最后一个版时声明退回 no_*
func (s *WorkOrderService) UnbindPlate(ctx context.Context, orderID, kind, plateID string) error {
	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		if !order.IsOpen() {
			return woerr.NewValidation("status", "work order is closed")
		}
		if err := tx.WorkOrder.UnbindPlate(ctx, order.ID, kind, plateID); err != nil {
			return err
		}

		order, err := tx.WorkOrder.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := s.repairDeclarations(ctx, tx, order); err != nil {
			return err
		}
		if err := s.rederive(ctx, tx, order, events); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}

// plateExists 按种类校验版存在
func (s *WorkOrderService) plateExists(ctx context.Context, kind, id string) error {
	var err error
	switch kind {
	case entity.PlateKindArtwork:
		_, err = s.repos.Artwork.FindByID(ctx, id)
	case entity.PlateKindDie:
		_, err = s.repos.Die.FindByID(ctx, id)
	case entity.PlateKindFoilingPlate:
		_, err = s.repos.Foiling.FindByID(ctx, id)
	case entity.PlateKindEmbossingPlate:
		_, err = s.repos.Embossing.FindByID(ctx, id)
	default:
		return woerr.NewValidation("kind", "unknown plate kind %q", kind)
	}
	return err
}

// bindingCount 某种类当前绑定的版数量
func bindingCount(order *entity.WorkOrder, kind string) int {
	switch kind {
	case entity.PlateKindArtwork:
		return len(order.Artworks)
	case entity.PlateKindDie:
		return len(order.Dies)
	case entity.PlateKindFoilingPlate:
		return len(order.FoilingPlates)
	case entity.PlateKindEmbossingPlate:
		return len(order.EmbossingPlates)
	}
	return 0
}

// repairDeclarations 让声明跟随绑定：有绑定为 need_*，无绑定为 no_*。
// 图稿绑定变化时同步重算印刷颜色。
func (s *WorkOrderService) repairDeclarations(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder) error {
	order.ArtworkType = entity.ArtworkTypeNone
	order.DieType = entity.DieTypeNone
	order.FoilingPlateType = entity.FoilingPlateTypeNone
	order.EmbossingPlateType = entity.EmbossingPlateTypeNone
	if len(order.Artworks) > 0 {
		order.ArtworkType = entity.ArtworkTypeNeed
	}
	if len(order.Dies) > 0 {
		order.DieType = entity.DieTypeNeed
	}
	if len(order.FoilingPlates) > 0 {
		order.FoilingPlateType = entity.FoilingPlateTypeNeed
	}
	if len(order.EmbossingPlates) > 0 {
		order.EmbossingPlateType = entity.EmbossingPlateTypeNeed
	}

	cmyk, other := derive.MergeArtworkColors(order.Artworks)
	order.PrintingCMYKColors = cmyk
	order.PrintingOtherColors = other
	if len(order.Artworks) == 0 {
		order.PrintingType = entity.PrintingTypeNone
	} else if order.PrintingType == entity.PrintingTypeNone {
		// 绑了图稿就不能是不印刷，默认升级为正面印刷
		order.PrintingType = entity.PrintingTypeFront
	}
	return tx.WorkOrder.Update(ctx, order)
}

// SetPlateType 显式修改版声明。与实际绑定冲突时拒绝。
func (s *WorkOrderService) SetPlateType(ctx context.Context, orderID, kind, value string) error {
	need, no := entity.NeedTypeFor(kind), entity.NoTypeFor(kind)
	if need == "" {
		return woerr.NewValidation("kind", "unknown plate kind %q", kind)
	}
	if value != need && value != no {
		return woerr.NewValidation("plate_type", "must be %q or %q", need, no)
	}

	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		bound := bindingCount(order, kind)
		if value == no && bound > 0 {
			return woerr.ErrInconsistentPlateDeclaration
		}
		if value == need && bound == 0 {
			return woerr.ErrInconsistentPlateDeclaration
		}
		// 与绑定一致的声明是幂等写
		return nil
	})
}

// SetPrintingType 设置印刷形式。非 none 的形式要求至少绑定一张图稿。
func (s *WorkOrderService) SetPrintingType(ctx context.Context, orderID, value string) error {
	valid := false
	for _, t := range entity.PrintingTypes {
		if t == value {
			valid = true
			break
		}
	}
	if !valid {
		return woerr.NewValidation("printing_type", "invalid printing type %q", value)
	}

	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		if value != entity.PrintingTypeNone && len(order.Artworks) == 0 {
			return woerr.NewValidation("printing_type", "no artwork bound")
		}
		if value == entity.PrintingTypeNone && len(order.Artworks) > 0 {
			return woerr.NewValidation("printing_type", "artworks are still bound")
		}
		order.PrintingType = value
		if err := tx.WorkOrder.Update(ctx, order); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}

// SetProcesses 显式改写工序链。链中每个需要版的工序，其版声明必须
// 已是 need_*，否则拒绝。改写后重派生。
func (s *WorkOrderService) SetProcesses(ctx context.Context, orderID string, codes []string) error {
	if err := s.catalog.ValidateCodes(codes); err != nil {
		return err
	}

	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		if !order.IsOpen() {
			return woerr.NewValidation("status", "work order is closed")
		}
		for _, code := range codes {
			proc, ok := s.catalog.Lookup(code)
			if !ok {
				return fmt.Errorf("process %q: %w", code, woerr.ErrStaleReference)
			}
			for _, kind := range proc.RequiredPlateKinds() {
				if order.PlateTypeFor(kind) != entity.NeedTypeFor(kind) {
					return fmt.Errorf("process %q needs %s: %w", code, kind, woerr.ErrMissingRequiredPlate)
				}
			}
		}

		order.ProcessCodes = entity.StringList(codes)
		if err := tx.WorkOrder.Update(ctx, order); err != nil {
			return err
		}
		if err := s.rederive(ctx, tx, order, events); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}

// Rederive 强制重派生，幂等
func (s *WorkOrderService) Rederive(ctx context.Context, orderID string) error {
	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		return s.rederive(ctx, tx, order, events)
	})
}

// RepairAfterPlateRemoved 删版级联后修复声明与任务链
func (s *WorkOrderService) RepairAfterPlateRemoved(ctx context.Context, orderID, kind string) error {
	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		if err := s.repairDeclarations(ctx, tx, order); err != nil {
			return err
		}
		if err := s.rederive(ctx, tx, order, events); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}

// validateForApproval 审核前校验。返回的是字段错误集合。
func (s *WorkOrderService) validateForApproval(order *entity.WorkOrder) error {
	var errs woerr.ValidationErrors
	if len(order.ProcessCodes) == 0 {
		errs = append(errs, woerr.NewValidation("process_codes", "process chain is empty"))
	}
	if order.ProductionQuantity <= 0 {
		errs = append(errs, woerr.NewValidation("production_quantity", "must be positive"))
	}
	if order.PrintingType != entity.PrintingTypeNone && len(order.Artworks) == 0 {
		errs = append(errs, woerr.NewValidation("printing_type", "no artwork bound"))
	}

	if order.DeliveryDate != nil {
		if order.OrderDate != nil && order.DeliveryDate.Before(*order.OrderDate) {
			errs = append(errs, woerr.NewValidation("delivery_date", "must not be before order_date"))
		}
		y, m, d := time.Now().Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, order.DeliveryDate.Location())
		if order.DeliveryDate.Before(today) {
			errs = append(errs, woerr.NewValidation("delivery_date", "must not be in the past"))
		}
	}

	for i := range order.Materials {
		mat := &order.Materials[i]
		if mat.NeedCutting && mat.Usage == "" {
			errs = append(errs, woerr.NewValidation("materials",
				"material %q needs cutting, usage is required", mat.MaterialID))
		}
	}

	// 制版、开料要在印刷之前
	last := make(map[string]int, 3)
	for i, code := range order.ProcessCodes {
		switch code {
		case entity.ProcessCTP, entity.ProcessCut, entity.ProcessPrint:
			last[code] = i
		}
	}
	if prt, ok := last[entity.ProcessPrint]; ok {
		if ctp, ok := last[entity.ProcessCTP]; ok && ctp > prt {
			errs = append(errs, woerr.NewValidation("process_codes", "CTP must come before PRT"))
		}
		if cut, ok := last[entity.ProcessCut]; ok && cut > prt {
			errs = append(errs, woerr.NewValidation("process_codes", "CUT must come before PRT"))
		}
	}

	for _, code := range order.ProcessCodes {
		proc, ok := s.catalog.Lookup(code)
		if !ok {
			errs = append(errs, woerr.NewValidation("process_codes", "unknown process %q", code))
			continue
		}
		for _, kind := range proc.RequiredPlateKinds() {
			if bindingCount(order, kind) == 0 {
				errs = append(errs, woerr.NewValidation("process_codes",
					"process %q requires a %s but none is bound", code, kind))
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Approve 审核通过。版声明与绑定必须齐备。
func (s *WorkOrderService) Approve(ctx context.Context, orderID, userID, comment string) error {
	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		if order.ApprovalStatus == entity.ApprovalStatusApproved {
			return nil
		}
		if err := s.validateForApproval(order); err != nil {
			return err
		}
		now := time.Now()
		order.ApprovalStatus = entity.ApprovalStatusApproved
		order.ApprovedBy = &userID
		order.ApprovedAt = &now
		order.ApprovalComment = comment
		if err := tx.WorkOrder.Update(ctx, order); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}

// Reject 审核驳回
func (s *WorkOrderService) Reject(ctx context.Context, orderID, userID, comment string) error {
	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		now := time.Now()
		order.ApprovalStatus = entity.ApprovalStatusRejected
		order.ApprovedBy = &userID
		order.ApprovedAt = &now
		order.ApprovalComment = comment
		if err := tx.WorkOrder.Update(ctx, order); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}

// workOrderTransitions 施工单状态机
var workOrderTransitions = map[string][]string{
	entity.WorkOrderStatusPending:    {entity.WorkOrderStatusInProgress, entity.WorkOrderStatusCancelled},
	entity.WorkOrderStatusInProgress: {entity.WorkOrderStatusPaused, entity.WorkOrderStatusCompleted, entity.WorkOrderStatusCancelled},
	entity.WorkOrderStatusPaused:     {entity.WorkOrderStatusInProgress, entity.WorkOrderStatusCancelled},
}

// SetStatus 推进施工单状态
func (s *WorkOrderService) SetStatus(ctx context.Context, orderID, status string) error {
	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		allowed := false
		for _, next := range workOrderTransitions[order.Status] {
			if next == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return woerr.NewValidation("status", "cannot change %s to %s", order.Status, status)
		}
		order.Status = status
		if err := tx.WorkOrder.Update(ctx, order); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}

// MaterialLineInput 施工单物料行
type MaterialLineInput struct {
	MaterialID  string `json:"material_id"`
	Size        string `json:"size"`
	Usage       string `json:"usage"`
	NeedCutting bool   `json:"need_cutting"`
	Notes       string `json:"notes"`
	SortOrder   int    `json:"sort_order"`
}

// SetMaterials 整体替换施工单物料并重派生（need_cutting 影响开料任务）
func (s *WorkOrderService) SetMaterials(ctx context.Context, orderID string, lines []MaterialLineInput) error {
	for _, line := range lines {
		if _, err := s.repos.Material.FindByID(ctx, line.MaterialID); err != nil {
			return woerr.NewValidation("materials", "unknown material %q", line.MaterialID)
		}
	}

	return s.mutate(ctx, orderID, func(ctx context.Context, tx *repository.Repositories, order *entity.WorkOrder, events *[]Event) error {
		if !order.IsOpen() {
			return woerr.NewValidation("status", "work order is closed")
		}
		materials := make([]entity.WorkOrderMaterial, 0, len(lines))
		for _, line := range lines {
			materials = append(materials, entity.WorkOrderMaterial{
				ID:          newID(),
				WorkOrderID: order.ID,
				MaterialID:  line.MaterialID,
				Size:        line.Size,
				Usage:       line.Usage,
				NeedCutting: line.NeedCutting,
				Notes:       line.Notes,
				SortOrder:   line.SortOrder,
			})
		}
		if err := tx.WorkOrder.ReplaceMaterials(ctx, order.ID, materials); err != nil {
			return err
		}

		order, err := tx.WorkOrder.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := s.rederive(ctx, tx, order, events); err != nil {
			return err
		}
		*events = append(*events, NewEvent(EventWorkOrderUpdated, order.ID, ""))
		return nil
	})
}
