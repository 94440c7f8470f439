package derive

import (
	"github.com/bitfantasy/printmes/internal/workorder/entity"
)

// Changes 重派生对现有任务的调整计划
type Changes struct {
	// Create 需要新建的任务
	Create []TaskSpec
	// Update 需要原地改写的任务及其目标形态
	Update []TaskUpdate
	// Cancel 不再出现在期望链中、需要取消的任务
	Cancel []*entity.WorkOrderTask
	// Conflicts 与不可变任务（进行中/已完成）冲突的位置，只记录不处理
	Conflicts []Conflict
}

// TaskUpdate 一个待改写任务
type TaskUpdate struct {
	Task *entity.WorkOrderTask
	Spec TaskSpec
}

// Conflict 期望链与冻结任务的分歧
type Conflict struct {
	Position int
	Task     *entity.WorkOrderTask
	Spec     TaskSpec
}

// Empty 计划是否为空操作
func (c *Changes) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Cancel) == 0
}

// Plan 比较现有任务与派生结果，给出最小调整计划。
//
// 按位置对齐：pending、awaiting_plate、assigned 状态的任务可被原地改写
// 或取消；in_progress、completed 状态的任务冻结不动，期望链与冻结任务
// 工序不一致时记入 Conflicts；已取消的历史行不参与对齐。
func Plan(existing []entity.WorkOrderTask, specs []TaskSpec) Changes {
	active := make(map[int]*entity.WorkOrderTask)
	for i := range existing {
		t := &existing[i]
		if t.Status == entity.TaskStatusCancelled {
			continue
		}
		active[t.Position] = t
	}

	var changes Changes
	covered := make(map[int]bool)
	for _, spec := range specs {
		covered[spec.Position] = true
		t, ok := active[spec.Position]
		if !ok {
			changes.Create = append(changes.Create, spec)
			continue
		}

		if t.ProcessCode != spec.ProcessCode {
			if entity.IsDerivableTaskStatus(t.Status) {
				changes.Cancel = append(changes.Cancel, t)
				changes.Create = append(changes.Create, spec)
			} else {
				changes.Conflicts = append(changes.Conflicts, Conflict{Position: spec.Position, Task: t, Spec: spec})
			}
			continue
		}

		if !entity.IsDerivableTaskStatus(t.Status) {
			continue // 冻结任务，工序一致即保留原样
		}
		if specDiffers(t, spec) {
			changes.Update = append(changes.Update, TaskUpdate{Task: t, Spec: spec})
		}
	}

	for pos, t := range active {
		if covered[pos] {
			continue
		}
		if entity.IsDerivableTaskStatus(t.Status) {
			changes.Cancel = append(changes.Cancel, t)
		}
	}
	return changes
}

// ResolveStatus 计算改写后任务应处的状态。
//
// 派生只在 pending 和 awaiting_plate 之间移动任务；已指派的任务在版
// 仍然齐备时保持 assigned，版缺失时退回 awaiting_plate（指派随之清空）。
func ResolveStatus(current, derived string) string {
	if derived == entity.TaskStatusAwaitingPlate {
		return entity.TaskStatusAwaitingPlate
	}
	if current == entity.TaskStatusAssigned {
		return entity.TaskStatusAssigned
	}
	return entity.TaskStatusPending
}

// ApplySpec 把派生结果写回任务实体并递增乐观锁版本号
func ApplySpec(t *entity.WorkOrderTask, spec TaskSpec) {
	status := ResolveStatus(t.Status, spec.Status)
	if status == entity.TaskStatusAwaitingPlate && t.Status == entity.TaskStatusAssigned {
		t.AssignedDepartmentID = nil
		t.AssignedOperatorID = nil
	}
	t.Status = status
	t.ProcessCode = spec.ProcessCode
	t.WorkContent = spec.WorkContent
	t.ArtworkID = spec.ArtworkID
	t.DieID = spec.DieID
	t.FoilingPlateID = spec.FoilingPlateID
	t.EmbossingPlateID = spec.EmbossingPlateID
	t.MaterialID = spec.MaterialID
	t.DependsOnPosition = spec.DependsOnPosition
	t.ProductionQuantity = spec.ProductionQuantity
	t.LockVersion++
}

// NewTask 由派生结果构造一个新任务实体（ID 由调用方填）
func NewTask(workOrderID string, spec TaskSpec) entity.WorkOrderTask {
	return entity.WorkOrderTask{
		WorkOrderID:        workOrderID,
		Position:           spec.Position,
		ProcessCode:        spec.ProcessCode,
		WorkContent:        spec.WorkContent,
		ArtworkID:          spec.ArtworkID,
		DieID:              spec.DieID,
		FoilingPlateID:     spec.FoilingPlateID,
		EmbossingPlateID:   spec.EmbossingPlateID,
		MaterialID:         spec.MaterialID,
		DependsOnPosition:  spec.DependsOnPosition,
		Status:             spec.Status,
		ProductionQuantity: spec.ProductionQuantity,
		LockVersion:        1,
	}
}

// specDiffers 判断任务当前形态与派生结果是否有差异
func specDiffers(t *entity.WorkOrderTask, spec TaskSpec) bool {
	if t.Status != ResolveStatus(t.Status, spec.Status) {
		return true
	}
	if t.WorkContent != spec.WorkContent ||
		t.DependsOnPosition != spec.DependsOnPosition ||
		t.ProductionQuantity != spec.ProductionQuantity {
		return true
	}
	if !ptrEqual(t.ArtworkID, spec.ArtworkID) ||
		!ptrEqual(t.DieID, spec.DieID) ||
		!ptrEqual(t.FoilingPlateID, spec.FoilingPlateID) ||
		!ptrEqual(t.EmbossingPlateID, spec.EmbossingPlateID) ||
		!ptrEqual(t.MaterialID, spec.MaterialID) {
		return true
	}
	return false
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
