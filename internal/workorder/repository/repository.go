package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
	// ErrStaleVersion 乐观锁版本号不匹配
	ErrStaleVersion = errors.New("stale row version")
)

// Repositories 仓库集合
type Repositories struct {
	db *gorm.DB

	Category  *CategoryRepository
	Process   *ProcessRepository
	Artwork   *ArtworkRepository
	Die       *DieRepository
	Foiling   *FoilingPlateRepository
	Embossing *EmbossingPlateRepository
	PlateLink *PlateLinkRepository
	Material  *MaterialRepository
	Product   *ProductRepository
	Customer  *CustomerRepository
	WorkOrder *WorkOrderRepository
	Task      *TaskRepository
	User      *UserRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:        db,
		Category:  NewCategoryRepository(db),
		Process:   NewProcessRepository(db),
		Artwork:   NewArtworkRepository(db),
		Die:       NewDieRepository(db),
		Foiling:   NewFoilingPlateRepository(db),
		Embossing: NewEmbossingPlateRepository(db),
		PlateLink: NewPlateLinkRepository(db),
		Material:  NewMaterialRepository(db),
		Product:   NewProductRepository(db),
		Customer:  NewCustomerRepository(db),
		WorkOrder: NewWorkOrderRepository(db),
		Task:      NewTaskRepository(db),
		User:      NewUserRepository(db),
	}
}

// DB 返回底层连接
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// Transaction 在事务中执行 fn，fn 收到绑定事务连接的仓库集合
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// translateNotFound 把 gorm 的未找到错误映射为包级错误
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
