package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/config"
	"github.com/bitfantasy/printmes/internal/middleware"
	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/service"
	"github.com/bitfantasy/printmes/internal/workorder/testutil"
)

type apiEnv struct {
	router   *gin.Engine
	repos    *repository.Repositories
	services *service.Services
}

func setupAPITest(t *testing.T) *apiEnv {
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
	services := service.NewServices(repos, nil, service.NopPublisher{}, cfg, zap.NewNop())

	ctx := context.Background()
	if err := service.SeedCatalog(ctx, repos, zap.NewNop()); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	if err := service.SeedGroups(ctx, repos, zap.NewNop()); err != nil {
		t.Fatalf("seed groups: %v", err)
	}
	if err := services.Catalog.Reload(ctx); err != nil {
		t.Fatalf("reload catalog: %v", err)
	}

	router := testutil.SetupRouter()
	h := NewHandlers(services, nil, cfg.Page)

	api := testutil.AuthGroup(router, "/api/v1")
	api.Use(middleware.LoadActor(repos.User))
	api.POST("/processes", h.Catalog.CreateProcess)
	api.GET("/processes", h.Catalog.ListProcesses)
	api.DELETE("/processes/:id", h.Catalog.DeleteProcess)
	api.POST("/artworks", h.Plate.CreateArtwork)
	api.POST("/work-orders", h.WorkOrder.Create)
	api.GET("/work-orders/:id", h.WorkOrder.Get)
	api.POST("/work-orders/:id/plates", h.WorkOrder.BindPlate)
	api.POST("/work-orders/:id/approve", middleware.RequireGroup(entity.RoleSalesperson), h.WorkOrder.Approve)
	api.GET("/work-orders/:id/tasks", h.Task.ListByWorkOrder)

	return &apiEnv{router: router, repos: repos, services: services}
}

func (e *apiEnv) seedProduct(t *testing.T, code string, processCodes []string) *entity.Product {
	t.Helper()
	p, err := e.services.Product.CreateProduct(context.Background(), &service.ProductInput{
		Code:         code,
		Name:         "测试产品 " + code,
		ProcessCodes: processCodes,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestAPIRequiresToken(t *testing.T) {
	env := setupAPITest(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/processes", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.router, "GET", "/api/v1/processes", nil, "not-a-jwt")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for garbage token, got %d", w.Code)
	}
}

func TestProcessAPI(t *testing.T) {
	env := setupAPITest(t)
	testutil.SeedUser(t, env.repos.DB(), "test-admin-001", "Test Admin", entity.RoleAdmin)
	token := testutil.AdminToken()

	w := testutil.DoRequest(env.router, "POST", "/api/v1/processes",
		map[string]interface{}{"code": "QC", "name": "质检"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["code"] != "QC" {
		t.Errorf("Expected code QC, got %v", data["code"])
	}

	// 重复编码
	w = testutil.DoRequest(env.router, "POST", "/api/v1/processes",
		map[string]interface{}{"code": "QC", "name": "质检2"}, token)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// 按内置过滤
	w = testutil.DoRequest(env.router, "GET", "/api/v1/processes?builtin=false", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	list := resp["data"].(map[string]interface{})
	if total := list["pagination"].(map[string]interface{})["total"].(float64); total != 1 {
		t.Errorf("Expected 1 custom process, got %v", total)
	}
}

func TestWorkOrderAPI(t *testing.T) {
	env := setupAPITest(t)
	testutil.SeedUser(t, env.repos.DB(), "sales-001", "业务员", entity.RoleSalesperson)
	token := testutil.GenerateTestToken("sales-001", "业务员", []string{entity.RoleSalesperson})

	product := env.seedProduct(t, "P300", []string{"PRT", "TRIM"})

	w := testutil.DoRequest(env.router, "POST", "/api/v1/work-orders",
		map[string]interface{}{"product_id": product.ID, "production_quantity": 500}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	order := resp["data"].(map[string]interface{})
	orderID := order["id"].(string)
	if order["approval_status"] != entity.ApprovalStatusPending {
		t.Errorf("Expected pending approval, got %v", order["approval_status"])
	}

	// 印刷任务缺图稿，审批应失败
	w = testutil.DoRequest(env.router, "POST", "/api/v1/work-orders/"+orderID+"/approve",
		map[string]interface{}{"comment": "走单"}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 before plates are bound, got %d: %s", w.Code, w.Body.String())
	}

	// 建图稿并绑定
	w = testutil.DoRequest(env.router, "POST", "/api/v1/artworks",
		map[string]interface{}{"name": "外盒正面", "cmyk_colors": []string{"C", "M", "Y", "K"}}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	artworkID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.router, "POST", "/api/v1/work-orders/"+orderID+"/plates",
		map[string]interface{}{"kind": entity.PlateKindArtwork, "plate_id": artworkID}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/work-orders/"+orderID+"/approve",
		map[string]interface{}{"comment": "走单"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.router, "GET", "/api/v1/work-orders/"+orderID+"/tasks", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	tasks := testutil.ParseResponse(w)["data"].([]interface{})
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
}

func TestTaskAuthorizationAPI(t *testing.T) {
	env := setupAPITest(t)
	env.router.PUT("/api/v1/tasks/:id/status",
		middleware.JWTAuth(testutil.JWTSecret),
		middleware.LoadActor(env.repos.User),
		NewHandlers(env.services, nil, config.PageConfig{}).Task.ChangeStatus)

	testutil.SeedUser(t, env.repos.DB(), "sales-002", "业务员", entity.RoleSalesperson)
	token := testutil.GenerateTestToken("sales-002", "业务员", []string{entity.RoleSalesperson})

	product := env.seedProduct(t, "P301", []string{"TRIM"})
	w := testutil.DoRequest(env.router, "POST", "/api/v1/work-orders",
		map[string]interface{}{"product_id": product.ID, "production_quantity": 100}, token)
	orderID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.router, "GET", "/api/v1/work-orders/"+orderID+"/tasks", nil, token)
	task := testutil.ParseResponse(w)["data"].([]interface{})[0].(map[string]interface{})
	taskID := task["id"].(string)
	version := int(task["lock_version"].(float64))

	// 业务员指派可以
	w = testutil.DoRequest(env.router, "PUT", "/api/v1/tasks/"+taskID+"/status",
		map[string]interface{}{"status": entity.TaskStatusAssigned, "lock_version": version}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 开工不行
	w = testutil.DoRequest(env.router, "PUT", "/api/v1/tasks/"+taskID+"/status",
		map[string]interface{}{"status": entity.TaskStatusInProgress, "lock_version": version + 1}, token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}
}
