package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/config"
	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/testutil"
)

// capturePublisher 记录提交后发布的事件
type capturePublisher struct {
	events []Event
}

func (p *capturePublisher) Publish(e Event) {
	p.events = append(p.events, e)
}

func (p *capturePublisher) reset() {
	p.events = nil
}

// testEnv 组装一套指向独立测试 schema 的服务
type testEnv struct {
	repos    *repository.Repositories
	services *Services
	events   *capturePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:            testutil.JWTSecret,
			AccessTokenExpire: time.Hour,
			NotifyTokenExpire: 10 * time.Minute,
			Issuer:            "printmes-test",
		},
		WorkOrder: config.WorkOrderConfig{
			LockTTL:         10 * time.Second,
			MutationTimeout: 10 * time.Second,
		},
		Page: config.PageConfig{DefaultSize: 20, MaxSize: 1000},
	}

	logger := zap.NewNop()
	pub := &capturePublisher{}
	services := NewServices(repos, nil, pub, cfg, logger)

	ctx := context.Background()
	if err := SeedCatalog(ctx, repos, logger); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	if err := SeedGroups(ctx, repos, logger); err != nil {
		t.Fatalf("seed groups: %v", err)
	}
	if err := services.Catalog.Reload(ctx); err != nil {
		t.Fatalf("reload catalog: %v", err)
	}

	return &testEnv{repos: repos, services: services, events: pub}
}

// seedProduct 建产品，可选带一个需开料的物料
func (e *testEnv) seedProduct(t *testing.T, code string, processCodes []string, withCuttingMaterial bool) *entity.Product {
	t.Helper()
	ctx := context.Background()

	in := &ProductInput{
		Code:         code,
		Name:         "测试产品 " + code,
		ProcessCodes: processCodes,
	}
	if withCuttingMaterial {
		m, err := e.services.Product.CreateMaterial(ctx, &MaterialInput{
			Code: "MAT-" + code,
			Name: "白卡纸 350g",
		})
		if err != nil {
			t.Fatalf("create material: %v", err)
		}
		in.Materials = []ProductMaterialInput{{
			MaterialID:  m.ID,
			Usage:       "500张",
			NeedCutting: true,
			SortOrder:   1,
		}}
	}

	p, err := e.services.Product.CreateProduct(ctx, in)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (e *testEnv) createOrder(t *testing.T, productID string, quantity int) *entity.WorkOrder {
	t.Helper()
	order, err := e.services.WorkOrder.Create(context.Background(), &WorkOrderInput{
		ProductID:          productID,
		ProductionQuantity: quantity,
	}, "test-user")
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}
	return order
}

func (e *testEnv) seedArtwork(t *testing.T, name string, cmyk, other []string) *entity.Artwork {
	t.Helper()
	a, err := e.services.Plate.CreateArtwork(context.Background(), &ArtworkInput{
		Name:        name,
		CMYKColors:  cmyk,
		OtherColors: other,
	}, "test-user")
	if err != nil {
		t.Fatalf("create artwork: %v", err)
	}
	return a
}

func (e *testEnv) seedDie(t *testing.T, name string) *entity.Die {
	t.Helper()
	d, err := e.services.Plate.CreateDie(context.Background(), &PlateInput{Name: name}, "test-user")
	if err != nil {
		t.Fatalf("create die: %v", err)
	}
	return d
}

func (e *testEnv) seedFoilingPlate(t *testing.T, name, foilingType string) *entity.FoilingPlate {
	t.Helper()
	p, err := e.services.Plate.CreateFoilingPlate(context.Background(), &PlateInput{
		Name:        name,
		FoilingType: foilingType,
	}, "test-user")
	if err != nil {
		t.Fatalf("create foiling plate: %v", err)
	}
	return p
}

func (e *testEnv) tasks(t *testing.T, orderID string) []entity.WorkOrderTask {
	t.Helper()
	tasks, err := e.repos.Task.ListByWorkOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	return tasks
}

// activeTasks 过滤掉已取消的历史行
func activeTasks(tasks []entity.WorkOrderTask) []entity.WorkOrderTask {
	out := make([]entity.WorkOrderTask, 0, len(tasks))
	for _, task := range tasks {
		if task.Status != entity.TaskStatusCancelled {
			out = append(out, task)
		}
	}
	return out
}
