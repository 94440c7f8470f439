package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/woerr"
)

// seedActor 建一个带指定用户组的用户并重新加载组关联
func (e *testEnv) seedActor(t *testing.T, username string, groups ...string) *entity.User {
	t.Helper()
	ctx := context.Background()

	u, err := e.services.Auth.CreateUser(ctx, username, "测试用户 "+username, "secret-123456")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, name := range groups {
		g, err := e.repos.User.FindGroupByName(ctx, name)
		if err != nil {
			t.Fatalf("find group %s: %v", name, err)
		}
		if err := e.repos.User.AddUserToGroup(ctx, u.ID, g.ID); err != nil {
			t.Fatalf("add user to group: %v", err)
		}
	}

	actor, err := e.repos.User.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return actor
}

func (e *testEnv) seedDepartment(t *testing.T, name, code string) *entity.Department {
	t.Helper()
	d := &entity.Department{ID: newID(), Name: name, Code: code, IsActive: true}
	if err := e.repos.User.CreateDepartment(context.Background(), d); err != nil {
		t.Fatalf("create department: %v", err)
	}
	return d
}

func TestTaskAssignAndProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedActor(t, "zhangsan", entity.RoleAdmin)
	dept := env.seedDepartment(t, "后道车间", "FINISH")

	product := env.seedProduct(t, "P100", []string{"TRIM"}, false)
	order := env.createOrder(t, product.ID, 500)

	tasks := env.tasks(t, order.ID)
	if len(tasks) != 1 || tasks[0].Status != entity.TaskStatusPending {
		t.Fatalf("tasks = %+v, want one pending TRIM task", tasks)
	}
	task := &tasks[0]

	task, err := env.services.Task.Assign(ctx, task.ID, &dept.ID, &admin.ID, task.LockVersion, admin)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if task.Status != entity.TaskStatusAssigned {
		t.Errorf("status = %s, want assigned", task.Status)
	}
	if task.AssignedDepartmentID == nil || *task.AssignedDepartmentID != dept.ID {
		t.Errorf("assigned department = %v, want %s", task.AssignedDepartmentID, dept.ID)
	}
	if task.AssignedOperatorID == nil || *task.AssignedOperatorID != admin.ID {
		t.Errorf("assigned operator = %v, want %s", task.AssignedOperatorID, admin.ID)
	}

	task, err = env.services.Task.ChangeStatus(ctx, task.ID, entity.TaskStatusInProgress, task.LockVersion, admin)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	task, err = env.services.Task.ChangeStatus(ctx, task.ID, entity.TaskStatusCompleted, task.LockVersion, admin)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if task.Status != entity.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", task.Status)
	}

	logs, err := env.services.Task.Logs(ctx, task.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("log count = %d, want 3", len(logs))
	}
	for _, l := range logs {
		if l.LogType != entity.TaskLogStatusChange {
			t.Errorf("log type = %s, want %s", l.LogType, entity.TaskLogStatusChange)
		}
		if l.OperatorID == nil || *l.OperatorID != admin.ID {
			t.Errorf("log operator = %v, want %s", l.OperatorID, admin.ID)
		}
	}
}

func TestTaskChangeStatusStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedActor(t, "lisi", entity.RoleAdmin)

	product := env.seedProduct(t, "P101", []string{"TRIM"}, false)
	order := env.createOrder(t, product.ID, 100)
	task := env.tasks(t, order.ID)[0]

	if _, err := env.services.Task.ChangeStatus(ctx, task.ID, entity.TaskStatusAssigned, task.LockVersion, admin); err != nil {
		t.Fatalf("first change: %v", err)
	}

	// 用旧版本号重放必须失败
	_, err := env.services.Task.ChangeStatus(ctx, task.ID, entity.TaskStatusCancelled, task.LockVersion, admin)
	if !errors.Is(err, repository.ErrStaleVersion) {
		t.Fatalf("err = %v, want ErrStaleVersion", err)
	}
}

func TestTaskChangeStatusAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sales := env.seedActor(t, "wangwu", entity.RoleSalesperson)

	product := env.seedProduct(t, "P102", []string{"TRIM"}, false)
	order := env.createOrder(t, product.ID, 100)
	task := env.tasks(t, order.ID)[0]

	// 业务员可以指派
	got, err := env.services.Task.ChangeStatus(ctx, task.ID, entity.TaskStatusAssigned, task.LockVersion, sales)
	if err != nil {
		t.Fatalf("assign as salesperson: %v", err)
	}

	// 但不能开工或完工
	_, err = env.services.Task.ChangeStatus(ctx, got.ID, entity.TaskStatusInProgress, got.LockVersion, sales)
	if !errors.Is(err, woerr.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}

	admin := env.seedActor(t, "zhaoliu", entity.RoleAdmin)
	if _, err := env.services.Task.ChangeStatus(ctx, got.ID, entity.TaskStatusInProgress, got.LockVersion, admin); err != nil {
		t.Fatalf("start as admin: %v", err)
	}
}

func TestTaskChangeStatusInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedActor(t, "sunqi", entity.RoleAdmin)

	product := env.seedProduct(t, "P103", []string{"TRIM"}, false)
	order := env.createOrder(t, product.ID, 100)
	task := env.tasks(t, order.ID)[0]

	_, err := env.services.Task.ChangeStatus(context.Background(), task.ID, entity.TaskStatusCompleted, task.LockVersion, admin)
	if !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestTaskBindPlateFoilingType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedActor(t, "zhouba", entity.RoleAdmin)

	product := env.seedProduct(t, "P104", []string{"FOIL_G"}, false)
	order := env.createOrder(t, product.ID, 100)

	task := env.tasks(t, order.ID)[0]
	if task.Status != entity.TaskStatusAwaitingPlate {
		t.Fatalf("status = %s, want awaiting_plate", task.Status)
	}

	silver := env.seedFoilingPlate(t, "烫银版A", entity.FoilingTypeSilver)
	_, err := env.services.Task.BindPlate(ctx, task.ID, entity.PlateKindFoilingPlate, silver.ID, task.LockVersion, admin)
	if !errors.Is(err, woerr.ErrPlateTypeMismatch) {
		t.Fatalf("err = %v, want ErrPlateTypeMismatch", err)
	}

	gold := env.seedFoilingPlate(t, "烫金版A", entity.FoilingTypeGold)
	got, err := env.services.Task.BindPlate(ctx, task.ID, entity.PlateKindFoilingPlate, gold.ID, task.LockVersion, admin)
	if err != nil {
		t.Fatalf("bind gold plate: %v", err)
	}
	if got.FoilingPlateID == nil || *got.FoilingPlateID != gold.ID {
		t.Errorf("foiling plate = %v, want %s", got.FoilingPlateID, gold.ID)
	}
	// 所需版齐备后待版任务回到 pending
	if got.Status != entity.TaskStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestTaskBindPlateWrongKind(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedActor(t, "wujiu", entity.RoleAdmin)

	product := env.seedProduct(t, "P105", []string{"PRT"}, false)
	order := env.createOrder(t, product.ID, 100)
	task := env.tasks(t, order.ID)[0]

	die := env.seedDie(t, "刀模X")
	_, err := env.services.Task.BindPlate(context.Background(), task.ID, entity.PlateKindDie, die.ID, task.LockVersion, admin)
	if !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestTaskUpdateQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.seedActor(t, "zhengshi", entity.RoleAdmin)

	product := env.seedProduct(t, "P106", []string{"TRIM"}, false)
	order := env.createOrder(t, product.ID, 300)
	task := env.tasks(t, order.ID)[0]

	if _, err := env.services.Task.UpdateQuantity(ctx, task.ID, -1, task.LockVersion, admin); !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error for negative quantity", err)
	}

	got, err := env.services.Task.UpdateQuantity(ctx, task.ID, 120, task.LockVersion, admin)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if got.QuantityCompleted != 120 {
		t.Errorf("quantity completed = %d, want 120", got.QuantityCompleted)
	}

	logs, err := env.services.Task.Logs(ctx, got.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("log count = %d, want 1", len(logs))
	}
	l := logs[0]
	if l.LogType != entity.TaskLogUpdateQuantity {
		t.Errorf("log type = %s, want %s", l.LogType, entity.TaskLogUpdateQuantity)
	}
	if l.QuantityBefore == nil || *l.QuantityBefore != 0 || l.QuantityAfter == nil || *l.QuantityAfter != 120 {
		t.Errorf("log quantities = %v/%v, want 0/120", l.QuantityBefore, l.QuantityAfter)
	}

	// 终态任务不再接受数量上报
	got, err = env.services.Task.ChangeStatus(ctx, got.ID, entity.TaskStatusCancelled, got.LockVersion, admin)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := env.services.Task.UpdateQuantity(ctx, got.ID, 200, got.LockVersion, admin); !woerr.IsValidation(err) {
		t.Fatalf("err = %v, want validation error on closed task", err)
	}
}
