package entity

import (
	"time"
)

// TaskStatus 任务状态
const (
	TaskStatusPending       = "pending"
	TaskStatusAwaitingPlate = "awaiting_plate"
	TaskStatusAssigned      = "assigned"
	TaskStatusInProgress    = "in_progress"
	TaskStatusCompleted     = "completed"
	TaskStatusCancelled     = "cancelled"
)

// taskTransitions 任务状态机的合法迁移
var taskTransitions = map[string][]string{
	TaskStatusPending:       {TaskStatusAwaitingPlate, TaskStatusAssigned, TaskStatusCancelled},
	TaskStatusAwaitingPlate: {TaskStatusPending, TaskStatusCancelled},
	TaskStatusAssigned:      {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress:    {TaskStatusCompleted, TaskStatusCancelled},
	TaskStatusCompleted:     {},
	TaskStatusCancelled:     {},
}

// CanTransitionTask 判断任务状态迁移是否合法
func CanTransitionTask(from, to string) bool {
	for _, s := range taskTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalTaskStatus 判断是否为终态
func IsTerminalTaskStatus(status string) bool {
	return status == TaskStatusCompleted || status == TaskStatusCancelled
}

// IsDerivableTaskStatus 派生引擎能否原地改写该状态的任务
func IsDerivableTaskStatus(status string) bool {
	switch status {
	case TaskStatusPending, TaskStatusAwaitingPlate, TaskStatusAssigned:
		return true
	}
	return false
}

// WorkOrderTask 施工单任务
//
// 每行对应施工单工序链中的一个位置。同一位置允许存在已取消的历史行，
// 但非取消状态的任务每个位置至多一行，由派生流程保证。
// 版外键只在对应工序需要该版时非空。
type WorkOrderTask struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	WorkOrderID string `json:"work_order_id" gorm:"size:32;not null;index:idx_task_order_position"`
	Position    int    `json:"position" gorm:"not null;index:idx_task_order_position"`
	ProcessCode string `json:"process_code" gorm:"size:50;not null;index"`
	WorkContent string `json:"work_content" gorm:"type:text"`

	// 版绑定（至多一个非空）
	ArtworkID        *string `json:"artwork_id" gorm:"size:32;index"`
	DieID            *string `json:"die_id" gorm:"size:32;index"`
	FoilingPlateID   *string `json:"foiling_plate_id" gorm:"size:32;index"`
	EmbossingPlateID *string `json:"embossing_plate_id" gorm:"size:32;index"`

	// 开料任务关联的物料
	MaterialID *string `json:"material_id" gorm:"size:32"`

	// 线性依赖：前一个位置，0 表示无前置
	DependsOnPosition int `json:"depends_on_position" gorm:"not null;default:0"`

	Status string `json:"status" gorm:"size:20;not null;default:pending;index"`

	AssignedDepartmentID *string `json:"assigned_department_id" gorm:"size:32;index"`
	AssignedOperatorID   *string `json:"assigned_operator_id" gorm:"size:32;index"`

	ProductionQuantity int `json:"production_quantity" gorm:"not null;default:0"`
	QuantityCompleted  int `json:"quantity_completed" gorm:"not null;default:0"`

	// 乐观锁版本号
	LockVersion int `json:"lock_version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Artwork        *Artwork        `json:"artwork,omitempty" gorm:"foreignKey:ArtworkID"`
	Die            *Die            `json:"die,omitempty" gorm:"foreignKey:DieID"`
	FoilingPlate   *FoilingPlate   `json:"foiling_plate,omitempty" gorm:"foreignKey:FoilingPlateID"`
	EmbossingPlate *EmbossingPlate `json:"embossing_plate,omitempty" gorm:"foreignKey:EmbossingPlateID"`
	Material       *Material       `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (WorkOrderTask) TableName() string {
	return "work_order_tasks"
}

// PlateIDFor 返回指定种类的版绑定
func (t *WorkOrderTask) PlateIDFor(kind string) *string {
	switch kind {
	case PlateKindArtwork:
		return t.ArtworkID
	case PlateKindDie:
		return t.DieID
	case PlateKindFoilingPlate:
		return t.FoilingPlateID
	case PlateKindEmbossingPlate:
		return t.EmbossingPlateID
	}
	return nil
}

// TaskLog 任务操作日志
type TaskLog struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	TaskID         string    `json:"task_id" gorm:"size:32;not null;index"`
	LogType        string    `json:"log_type" gorm:"size:20;not null"`
	Content        string    `json:"content" gorm:"type:text"`
	StatusBefore   string    `json:"status_before" gorm:"size:20"`
	StatusAfter    string    `json:"status_after" gorm:"size:20"`
	QuantityBefore *int      `json:"quantity_before"`
	QuantityAfter  *int      `json:"quantity_after"`
	OperatorID     *string   `json:"operator_id" gorm:"size:32"`
	CreatedAt      time.Time `json:"created_at"`
}

func (TaskLog) TableName() string {
	return "task_logs"
}

// TaskLogType 日志类型
const (
	TaskLogStatusChange   = "status_change"
	TaskLogUpdateQuantity = "update_quantity"
	TaskLogRederive       = "rederive"
)
