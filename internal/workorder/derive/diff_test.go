package derive

import (
	"testing"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
)

func pendingTask(id string, pos int, code string) entity.WorkOrderTask {
	return entity.WorkOrderTask{
		ID: id, WorkOrderID: "wo1", Position: pos, ProcessCode: code,
		DependsOnPosition: pos - 1, Status: entity.TaskStatusPending, LockVersion: 1,
	}
}

func TestPlanCreatesAllWhenEmpty(t *testing.T) {
	specs := []TaskSpec{
		{Position: 1, ProcessCode: entity.ProcessPrint, Status: entity.TaskStatusPending},
		{Position: 2, ProcessCode: entity.ProcessPack, Status: entity.TaskStatusPending, DependsOnPosition: 1},
	}
	changes := Plan(nil, specs)
	if len(changes.Create) != 2 || len(changes.Update) != 0 || len(changes.Cancel) != 0 {
		t.Fatalf("unexpected plan: %+v", changes)
	}
}

func TestPlanNoopWhenUnchanged(t *testing.T) {
	existing := []entity.WorkOrderTask{
		pendingTask("t1", 1, entity.ProcessPrint),
		pendingTask("t2", 2, entity.ProcessPack),
	}
	specs := []TaskSpec{
		{Position: 1, ProcessCode: entity.ProcessPrint, Status: entity.TaskStatusPending},
		{Position: 2, ProcessCode: entity.ProcessPack, Status: entity.TaskStatusPending, DependsOnPosition: 1},
	}
	changes := Plan(existing, specs)
	if !changes.Empty() {
		t.Fatalf("want empty plan, got %+v", changes)
	}
}

func TestPlanUpdatesInPlace(t *testing.T) {
	existing := []entity.WorkOrderTask{pendingTask("t1", 1, entity.ProcessDie)}
	existing[0].Status = entity.TaskStatusAwaitingPlate

	dieID := "d1"
	specs := []TaskSpec{{
		Position: 1, ProcessCode: entity.ProcessDie,
		DieID: &dieID, Status: entity.TaskStatusPending,
	}}
	changes := Plan(existing, specs)
	if len(changes.Update) != 1 || len(changes.Create) != 0 || len(changes.Cancel) != 0 {
		t.Fatalf("unexpected plan: %+v", changes)
	}
	u := changes.Update[0]
	if u.Task.ID != "t1" {
		t.Errorf("update targets %s, want t1", u.Task.ID)
	}

	ApplySpec(u.Task, u.Spec)
	if u.Task.Status != entity.TaskStatusPending {
		t.Errorf("status = %s, want pending", u.Task.Status)
	}
	if u.Task.DieID == nil || *u.Task.DieID != "d1" {
		t.Errorf("die binding not applied")
	}
	if u.Task.LockVersion != 2 {
		t.Errorf("lock version = %d, want 2", u.Task.LockVersion)
	}
}

func TestPlanCancelsOrphans(t *testing.T) {
	existing := []entity.WorkOrderTask{
		pendingTask("t1", 1, entity.ProcessPrint),
		pendingTask("t2", 2, entity.ProcessFoilG),
	}
	specs := []TaskSpec{
		{Position: 1, ProcessCode: entity.ProcessPrint, Status: entity.TaskStatusPending},
	}
	changes := Plan(existing, specs)
	if len(changes.Cancel) != 1 || changes.Cancel[0].ID != "t2" {
		t.Fatalf("want t2 cancelled, got %+v", changes.Cancel)
	}
}

func TestPlanReplacesDivergentDerivableTask(t *testing.T) {
	existing := []entity.WorkOrderTask{pendingTask("t1", 1, entity.ProcessFoilG)}
	specs := []TaskSpec{{Position: 1, ProcessCode: entity.ProcessEmboss, Status: entity.TaskStatusPending}}

	changes := Plan(existing, specs)
	if len(changes.Cancel) != 1 || changes.Cancel[0].ID != "t1" {
		t.Fatalf("divergent pending task must be cancelled: %+v", changes)
	}
	if len(changes.Create) != 1 || changes.Create[0].ProcessCode != entity.ProcessEmboss {
		t.Fatalf("replacement task missing: %+v", changes)
	}
}

func TestPlanFreezesInProgress(t *testing.T) {
	existing := []entity.WorkOrderTask{pendingTask("t1", 1, entity.ProcessPrint)}
	existing[0].Status = entity.TaskStatusInProgress

	specs := []TaskSpec{{Position: 1, ProcessCode: entity.ProcessFoilG, Status: entity.TaskStatusPending}}
	changes := Plan(existing, specs)
	if len(changes.Cancel) != 0 || len(changes.Update) != 0 || len(changes.Create) != 0 {
		t.Fatalf("in_progress task must stay untouched: %+v", changes)
	}
	if len(changes.Conflicts) != 1 || changes.Conflicts[0].Position != 1 {
		t.Fatalf("divergence with frozen task must be recorded: %+v", changes.Conflicts)
	}
}

func TestPlanIgnoresCancelledHistory(t *testing.T) {
	cancelled := pendingTask("t1", 1, entity.ProcessPrint)
	cancelled.Status = entity.TaskStatusCancelled
	existing := []entity.WorkOrderTask{cancelled}

	specs := []TaskSpec{{Position: 1, ProcessCode: entity.ProcessPrint, Status: entity.TaskStatusPending}}
	changes := Plan(existing, specs)
	if len(changes.Create) != 1 {
		t.Fatalf("cancelled history row must not block recreation: %+v", changes)
	}
}

func TestApplySpecKeepsAssignment(t *testing.T) {
	dept := "dept1"
	task := pendingTask("t1", 1, entity.ProcessPrint)
	task.Status = entity.TaskStatusAssigned
	task.AssignedDepartmentID = &dept

	aID := "a2"
	ApplySpec(&task, TaskSpec{
		Position: 1, ProcessCode: entity.ProcessPrint,
		ArtworkID: &aID, Status: entity.TaskStatusPending,
	})
	if task.Status != entity.TaskStatusAssigned {
		t.Errorf("assigned task with plates intact must stay assigned, got %s", task.Status)
	}
	if task.AssignedDepartmentID == nil {
		t.Errorf("assignment must survive a plate swap")
	}
}

func TestApplySpecClearsAssignmentWhenPlateLost(t *testing.T) {
	dept := "dept1"
	op := "user1"
	task := pendingTask("t1", 1, entity.ProcessFoilG)
	task.Status = entity.TaskStatusAssigned
	task.AssignedDepartmentID = &dept
	task.AssignedOperatorID = &op

	ApplySpec(&task, TaskSpec{
		Position: 1, ProcessCode: entity.ProcessFoilG,
		Status: entity.TaskStatusAwaitingPlate,
	})
	if task.Status != entity.TaskStatusAwaitingPlate {
		t.Errorf("status = %s, want awaiting_plate", task.Status)
	}
	if task.AssignedDepartmentID != nil || task.AssignedOperatorID != nil {
		t.Errorf("assignment must be cleared when the plate disappears")
	}
}

func TestNewTaskFromSpec(t *testing.T) {
	mID := "paper"
	task := NewTask("wo1", TaskSpec{
		Position: 1, ProcessCode: entity.ProcessCut, MaterialID: &mID,
		Status: entity.TaskStatusPending, ProductionQuantity: 800,
	})
	if task.WorkOrderID != "wo1" || task.Position != 1 || task.LockVersion != 1 {
		t.Errorf("unexpected task: %+v", task)
	}
	if task.MaterialID == nil || *task.MaterialID != "paper" {
		t.Errorf("material binding missing")
	}
}
