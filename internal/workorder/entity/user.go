package entity

import (
	"time"
)

// 角色组
const (
	RoleSalesperson = "salesperson"
	RoleAdmin       = "admin"
)

// User 用户
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Username     string    `json:"username" gorm:"size:64;not null;uniqueIndex"`
	Name         string    `json:"name" gorm:"size:64"`
	Email        string    `json:"email" gorm:"size:128"`
	PasswordHash string    `json:"-" gorm:"size:128"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 关联
	Groups      []Group      `json:"groups,omitempty" gorm:"many2many:user_groups"`
	Departments []Department `json:"departments,omitempty" gorm:"many2many:user_departments"`
}

func (User) TableName() string {
	return "users"
}

// HasGroup 判断用户是否属于指定组（需预加载 Groups）
func (u *User) HasGroup(name string) bool {
	for _, g := range u.Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// Group 角色组，角色即组名
type Group struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:64;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

func (Group) TableName() string {
	return "groups"
}

// Department 部门
type Department struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Code      string    `json:"code" gorm:"size:20;not null;uniqueIndex"`
	ParentID  *string   `json:"parent_id" gorm:"size:32"`
	SortOrder int       `json:"sort_order" gorm:"not null;default:0"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Parent *Department `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
}

func (Department) TableName() string {
	return "departments"
}
