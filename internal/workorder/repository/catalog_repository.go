package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create 创建工序分类
func (r *CategoryRepository) Create(ctx context.Context, c *entity.ProcessCategory) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// FindByID 根据ID查找分类
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*entity.ProcessCategory, error) {
	var c entity.ProcessCategory
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &c, nil
}

// FindByCode 根据编码查找分类
func (r *CategoryRepository) FindByCode(ctx context.Context, code string) (*entity.ProcessCategory, error) {
	var c entity.ProcessCategory
	if err := r.db.WithContext(ctx).First(&c, "code = ?", code).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &c, nil
}

// ListAll 返回全部分类，按排序字段排列
func (r *CategoryRepository) ListAll(ctx context.Context) ([]entity.ProcessCategory, error) {
	var cats []entity.ProcessCategory
	err := r.db.WithContext(ctx).Order("sort_order ASC, code ASC").Find(&cats).Error
	return cats, err
}

// Update 更新分类
func (r *CategoryRepository) Update(ctx context.Context, c *entity.ProcessCategory) error {
	return r.db.WithContext(ctx).Save(c).Error
}

type ProcessRepository struct {
	db *gorm.DB
}

func NewProcessRepository(db *gorm.DB) *ProcessRepository {
	return &ProcessRepository{db: db}
}

// Create 创建工序
func (r *ProcessRepository) Create(ctx context.Context, p *entity.Process) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID 根据ID查找工序
func (r *ProcessRepository) FindByID(ctx context.Context, id string) (*entity.Process, error) {
	var p entity.Process
	if err := r.db.WithContext(ctx).Preload("Category").First(&p, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

// FindByCode 根据编码查找工序
func (r *ProcessRepository) FindByCode(ctx context.Context, code string) (*entity.Process, error) {
	var p entity.Process
	if err := r.db.WithContext(ctx).Preload("Category").First(&p, "code = ?", code).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

// ListAll 返回全部工序（目录快照用）
func (r *ProcessRepository) ListAll(ctx context.Context) ([]entity.Process, error) {
	var procs []entity.Process
	err := r.db.WithContext(ctx).Preload("Category").
		Order("sort_order ASC, code ASC").Find(&procs).Error
	return procs, err
}

// List 分页查询工序
func (r *ProcessRepository) List(ctx context.Context, categoryID string, builtin *bool, page, pageSize int) ([]entity.Process, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Process{})
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if builtin != nil {
		query = query.Where("is_builtin = ?", *builtin)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var procs []entity.Process
	err := query.Preload("Category").
		Order("sort_order ASC, code ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&procs).Error
	return procs, total, err
}

// Update 更新工序
func (r *ProcessRepository) Update(ctx context.Context, p *entity.Process) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// Delete 删除工序
func (r *ProcessRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Process{}, "id = ?", id).Error
}

// CountOpenWorkOrdersUsing 统计工序链中引用该编码的进行中施工单数量
func (r *ProcessRepository) CountOpenWorkOrdersUsing(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).
		Where("status NOT IN ?", []string{entity.WorkOrderStatusCompleted, entity.WorkOrderStatusCancelled}).
		Where("process_codes @> ?", `["`+code+`"]`).
		Count(&count).Error
	return count, err
}
