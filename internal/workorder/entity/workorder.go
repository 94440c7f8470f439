package entity

import (
	"time"
)

// WorkOrderStatus 施工单状态
const (
	WorkOrderStatusPending    = "pending"
	WorkOrderStatusInProgress = "in_progress"
	WorkOrderStatusPaused     = "paused"
	WorkOrderStatusCompleted  = "completed"
	WorkOrderStatusCancelled  = "cancelled"
)

// WorkOrderApprovalStatus 审核状态
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// WorkOrderPriority 优先级
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// 版声明类型：每种版一对 no_* / need_*
const (
	ArtworkTypeNone        = "no_artwork"
	ArtworkTypeNeed        = "need_artwork"
	DieTypeNone            = "no_die"
	DieTypeNeed            = "need_die"
	FoilingPlateTypeNone   = "no_foiling_plate"
	FoilingPlateTypeNeed   = "need_foiling_plate"
	EmbossingPlateTypeNone = "no_embossing_plate"
	EmbossingPlateTypeNeed = "need_embossing_plate"
)

// 印刷形式
const (
	PrintingTypeNone           = "none"
	PrintingTypeFront          = "front"
	PrintingTypeBack           = "back"
	PrintingTypeSelfReverse    = "self_reverse"
	PrintingTypeReverseGripper = "reverse_gripper"
	PrintingTypeRegister       = "register"
)

// PrintingTypes 合法的印刷形式取值
var PrintingTypes = []string{
	PrintingTypeNone,
	PrintingTypeFront,
	PrintingTypeBack,
	PrintingTypeSelfReverse,
	PrintingTypeReverseGripper,
	PrintingTypeRegister,
}

// WorkOrder 印刷施工单（聚合根）
//
// process_codes、materials 在创建时从产品快照复制，之后由施工单自行维护。
type WorkOrder struct {
	ID          string  `json:"id" gorm:"primaryKey;size:32"`
	OrderNumber string  `json:"order_number" gorm:"size:50;not null;uniqueIndex"`
	CustomerID  *string `json:"customer_id" gorm:"size:32;index"`
	ProductID   *string `json:"product_id" gorm:"size:32"`

	ProcessCodes StringList `json:"process_codes" gorm:"type:jsonb"`

	ArtworkType        string `json:"artwork_type" gorm:"size:30;not null;default:no_artwork"`
	DieType            string `json:"die_type" gorm:"size:30;not null;default:no_die"`
	FoilingPlateType   string `json:"foiling_plate_type" gorm:"size:30;not null;default:no_foiling_plate"`
	EmbossingPlateType string `json:"embossing_plate_type" gorm:"size:30;not null;default:no_embossing_plate"`

	PrintingType        string     `json:"printing_type" gorm:"size:20;not null;default:none"`
	PrintingCMYKColors  StringList `json:"printing_cmyk_colors" gorm:"type:jsonb"`
	PrintingOtherColors StringList `json:"printing_other_colors" gorm:"type:jsonb"`

	Status   string `json:"status" gorm:"size:20;not null;default:pending;index"`
	Priority string `json:"priority" gorm:"size:20;not null;default:normal;index"`

	ApprovalStatus  string     `json:"approval_status" gorm:"size:20;not null;default:pending;index"`
	ApprovedBy      *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt      *time.Time `json:"approved_at"`
	ApprovalComment string     `json:"approval_comment" gorm:"type:text"`

	OrderDate          *time.Time `json:"order_date" gorm:"type:date"`
	DeliveryDate       *time.Time `json:"delivery_date" gorm:"type:date"`
	ProductionQuantity int        `json:"production_quantity" gorm:"not null;default:0"`

	ManagerID *string `json:"manager_id" gorm:"size:32"`
	Notes     string  `json:"notes" gorm:"type:text"`
	CreatedBy string  `json:"created_by" gorm:"size:32;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 版绑定
	Artworks        []Artwork        `json:"artworks,omitempty" gorm:"many2many:work_order_artworks"`
	Dies            []Die            `json:"dies,omitempty" gorm:"many2many:work_order_dies"`
	FoilingPlates   []FoilingPlate   `json:"foiling_plates,omitempty" gorm:"many2many:work_order_foiling_plates"`
	EmbossingPlates []EmbossingPlate `json:"embossing_plates,omitempty" gorm:"many2many:work_order_embossing_plates"`

	// 其余关联
	Customer  *Customer           `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Product   *Product            `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Materials []WorkOrderMaterial `json:"materials,omitempty" gorm:"foreignKey:WorkOrderID"`
	Tasks     []WorkOrderTask     `json:"tasks,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// PlateTypeFor 返回指定版种类当前的声明值
func (w *WorkOrder) PlateTypeFor(kind string) string {
	switch kind {
	case PlateKindArtwork:
		return w.ArtworkType
	case PlateKindDie:
		return w.DieType
	case PlateKindFoilingPlate:
		return w.FoilingPlateType
	case PlateKindEmbossingPlate:
		return w.EmbossingPlateType
	}
	return ""
}

// NeedTypeFor 返回指定版种类的 need_* 声明值
func NeedTypeFor(kind string) string {
	switch kind {
	case PlateKindArtwork:
		return ArtworkTypeNeed
	case PlateKindDie:
		return DieTypeNeed
	case PlateKindFoilingPlate:
		return FoilingPlateTypeNeed
	case PlateKindEmbossingPlate:
		return EmbossingPlateTypeNeed
	}
	return ""
}

// NoTypeFor 返回指定版种类的 no_* 声明值
func NoTypeFor(kind string) string {
	switch kind {
	case PlateKindArtwork:
		return ArtworkTypeNone
	case PlateKindDie:
		return DieTypeNone
	case PlateKindFoilingPlate:
		return FoilingPlateTypeNone
	case PlateKindEmbossingPlate:
		return EmbossingPlateTypeNone
	}
	return ""
}

// IsOpen 施工单是否仍在进行（未完成且未取消）
func (w *WorkOrder) IsOpen() bool {
	return w.Status != WorkOrderStatusCompleted && w.Status != WorkOrderStatusCancelled
}

// WorkOrderMaterial 施工单物料使用记录
type WorkOrderMaterial struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID string    `json:"work_order_id" gorm:"size:32;not null;index"`
	MaterialID  string    `json:"material_id" gorm:"size:32;not null"`
	Size        string    `json:"size" gorm:"column:material_size;size:100"`
	Usage       string    `json:"usage" gorm:"column:material_usage;size:100"`
	NeedCutting bool      `json:"need_cutting" gorm:"default:false"`
	Notes       string    `json:"notes" gorm:"type:text"`
	SortOrder   int       `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`

	// 关联
	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (WorkOrderMaterial) TableName() string {
	return "work_order_materials"
}

// Customer 客户
type Customer struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	Name          string    `json:"name" gorm:"size:200;not null;index"`
	ContactPerson string    `json:"contact_person" gorm:"size:100"`
	Phone         string    `json:"phone" gorm:"size:50"`
	Email         string    `json:"email" gorm:"size:100"`
	Address       string    `json:"address" gorm:"type:text"`
	SalespersonID *string   `json:"salesperson_id" gorm:"size:32"`
	Notes         string    `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}
