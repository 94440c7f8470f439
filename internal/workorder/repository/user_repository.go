package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// FindByID 根据ID查找用户，带角色组与部门
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).
		Preload("Groups").
		Preload("Departments").
		First(&u, "id = ?", id).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &u, nil
}

// FindByUsername 根据用户名查找用户
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).
		Preload("Groups").
		Preload("Departments").
		First(&u, "username = ?", username).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &u, nil
}

// Update 更新用户
func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// FindGroupByName 根据组名查找角色组
func (r *UserRepository) FindGroupByName(ctx context.Context, name string) (*entity.Group, error) {
	var g entity.Group
	if err := r.db.WithContext(ctx).First(&g, "name = ?", name).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &g, nil
}

// CreateGroup 创建角色组
func (r *UserRepository) CreateGroup(ctx context.Context, g *entity.Group) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// AddUserToGroup 把用户加入角色组
func (r *UserRepository) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	return r.db.WithContext(ctx).Exec(
		"INSERT INTO user_groups (user_id, group_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		userID, groupID).Error
}

// ListDepartments 部门列表
func (r *UserRepository) ListDepartments(ctx context.Context) ([]entity.Department, error) {
	var depts []entity.Department
	err := r.db.WithContext(ctx).
		Order("sort_order ASC, code ASC").
		Find(&depts).Error
	return depts, err
}

// FindDepartmentByID 根据ID查找部门
func (r *UserRepository) FindDepartmentByID(ctx context.Context, id string) (*entity.Department, error) {
	var d entity.Department
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &d, nil
}

// CreateDepartment 创建部门
func (r *UserRepository) CreateDepartment(ctx context.Context, d *entity.Department) error {
	return r.db.WithContext(ctx).Create(d).Error
}
