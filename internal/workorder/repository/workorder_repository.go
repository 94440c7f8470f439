package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// plateAssociations 版种类到 gorm 关联名与中间表的映射
var plateAssociations = map[string]struct {
	field     string
	joinTable string
	joinCol   string
}{
	entity.PlateKindArtwork:        {"Artworks", "work_order_artworks", "artwork_id"},
	entity.PlateKindDie:            {"Dies", "work_order_dies", "die_id"},
	entity.PlateKindFoilingPlate:   {"FoilingPlates", "work_order_foiling_plates", "foiling_plate_id"},
	entity.PlateKindEmbossingPlate: {"EmbossingPlates", "work_order_embossing_plates", "embossing_plate_id"},
}

// Create 创建施工单
func (r *WorkOrderRepository) Create(ctx context.Context, w *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// FindByID 查找施工单，加载全部关联
func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var w entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Artworks").
		Preload("Dies").
		Preload("FoilingPlates").
		Preload("EmbossingPlates").
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Materials.Material").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Preload("Customer").
		Preload("Product").
		First(&w, "id = ?", id).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &w, nil
}

// List 分页查询施工单
func (r *WorkOrderRepository) List(ctx context.Context, status, approvalStatus, customerID, keyword string, page, pageSize int) ([]entity.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if approvalStatus != "" {
		query = query.Where("approval_status = ?", approvalStatus)
	}
	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if keyword != "" {
		query = query.Where("order_number ILIKE ?", "%"+keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []entity.WorkOrder
	err := query.Preload("Customer").
		Order("order_number DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

// MaxOrderNumberWithPrefix 某前缀下最大的单号，用于单号生成
func (r *WorkOrderRepository) MaxOrderNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var number string
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Where("order_number LIKE ?", prefix+"%").
		Select("COALESCE(MAX(order_number), '')").Scan(&number).Error
	return number, err
}

// Update 更新施工单本体字段（不触碰关联）
func (r *WorkOrderRepository) Update(ctx context.Context, w *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Omit(
		"Artworks", "Dies", "FoilingPlates", "EmbossingPlates",
		"Materials", "Tasks", "Customer", "Product",
	).Save(w).Error
}

// Delete 删除施工单
func (r *WorkOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.WorkOrder{}, "id = ?", id).Error
}

// BindPlate 在施工单与版之间建立绑定
func (r *WorkOrderRepository) BindPlate(ctx context.Context, orderID, kind, plateID string) error {
	assoc, ok := plateAssociations[kind]
	if !ok {
		return fmt.Errorf("unknown plate kind %q", kind)
	}
	return r.db.WithContext(ctx).Exec(
		fmt.Sprintf("INSERT INTO %s (work_order_id, %s) VALUES (?, ?) ON CONFLICT DO NOTHING",
			assoc.joinTable, assoc.joinCol),
		orderID, plateID).Error
}

// UnbindPlate 解除施工单与版的绑定
func (r *WorkOrderRepository) UnbindPlate(ctx context.Context, orderID, kind, plateID string) error {
	assoc, ok := plateAssociations[kind]
	if !ok {
		return fmt.Errorf("unknown plate kind %q", kind)
	}
	return r.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE work_order_id = ? AND %s = ?",
			assoc.joinTable, assoc.joinCol),
		orderID, plateID).Error
}

// UnbindPlateEverywhere 从所有施工单上解绑某个版（删版时级联）
func (r *WorkOrderRepository) UnbindPlateEverywhere(ctx context.Context, kind, plateID string) error {
	assoc, ok := plateAssociations[kind]
	if !ok {
		return fmt.Errorf("unknown plate kind %q", kind)
	}
	return r.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", assoc.joinTable, assoc.joinCol),
		plateID).Error
}

// ListOpenIDsByPlate 绑定了某个版的进行中施工单ID列表
func (r *WorkOrderRepository) ListOpenIDsByPlate(ctx context.Context, kind, plateID string) ([]string, error) {
	assoc, ok := plateAssociations[kind]
	if !ok {
		return nil, fmt.Errorf("unknown plate kind %q", kind)
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Joins(fmt.Sprintf("JOIN %s j ON j.work_order_id = work_orders.id", assoc.joinTable)).
		Where(fmt.Sprintf("j.%s = ?", assoc.joinCol), plateID).
		Where("work_orders.status NOT IN ?", []string{entity.WorkOrderStatusCompleted, entity.WorkOrderStatusCancelled}).
		Pluck("work_orders.id", &ids).Error
	return ids, err
}

// ReplaceMaterials 整体替换施工单物料
func (r *WorkOrderRepository) ReplaceMaterials(ctx context.Context, orderID string, materials []entity.WorkOrderMaterial) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.WorkOrderMaterial{}, "work_order_id = ?", orderID).Error; err != nil {
			return err
		}
		if len(materials) == 0 {
			return nil
		}
		return tx.Create(&materials).Error
	})
}
