package entity

import (
	"time"
)

// Material 物料
type Material struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	Code          string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name          string    `json:"name" gorm:"size:200;not null"`
	Specification string    `json:"specification" gorm:"size:200"`
	Unit          string    `json:"unit" gorm:"size:20;default:张"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Material) TableName() string {
	return "materials"
}

// Product 产品
//
// process_codes 为默认工序编码列表，有序且允许重复（如两次覆膜）。
// 创建施工单时复制到施工单本身，之后修改产品不影响已有施工单。
type Product struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	Code          string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name          string     `json:"name" gorm:"size:200;not null"`
	Specification string     `json:"specification" gorm:"size:200"`
	Unit          string     `json:"unit" gorm:"size:20;default:件"`
	ProcessCodes  StringList `json:"process_codes" gorm:"type:jsonb"`
	Description   string     `json:"description" gorm:"type:text"`
	IsActive      bool       `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// 关联
	Materials []ProductMaterial `json:"materials,omitempty" gorm:"foreignKey:ProductID"`
}

func (Product) TableName() string {
	return "products"
}

// ProductMaterial 产品默认物料配置
type ProductMaterial struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ProductID   string    `json:"product_id" gorm:"size:32;not null;index"`
	MaterialID  string    `json:"material_id" gorm:"size:32;not null"`
	Usage       string    `json:"usage" gorm:"column:material_usage;size:100"`
	NeedCutting bool      `json:"need_cutting" gorm:"default:false"`
	Notes       string    `json:"notes" gorm:"type:text"`
	SortOrder   int       `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`

	// 关联
	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (ProductMaterial) TableName() string {
	return "product_materials"
}
