package service

import (
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/printmes/internal/config"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
)

// 事件类型
const (
	EventTaskCreated      = "task.created"
	EventTaskUpdated      = "task.updated"
	EventTaskStateChanged = "task.state_changed"
	EventWorkOrderUpdated = "workorder.updated"
)

// Event 领域事件，事务提交后投递
type Event struct {
	Type        string `json:"type"`
	WorkOrderID string `json:"work_order_id"`
	TaskID      string `json:"task_id,omitempty"`
	Ts          int64  `json:"ts"`
}

// NewEvent 创建事件
func NewEvent(eventType, workOrderID, taskID string) Event {
	return Event{
		Type:        eventType,
		WorkOrderID: workOrderID,
		TaskID:      taskID,
		Ts:          time.Now().Unix(),
	}
}

// EventPublisher 事件出口。投递失败由实现方记录，不回传给业务调用方。
type EventPublisher interface {
	Publish(event Event)
}

// NopPublisher 丢弃全部事件，测试与 CLI 场景使用
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// Services 服务集合
type Services struct {
	Auth      *AuthService
	Catalog   *CatalogService
	Plate     *PlateService
	Product   *ProductService
	WorkOrder *WorkOrderService
	Task      *TaskService
	Export    *ExportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, publisher EventPublisher, cfg *config.Config, logger *zap.Logger) *Services {
	if publisher == nil {
		publisher = NopPublisher{}
	}

	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio unavailable, design file upload disabled", zap.Error(err))
			minioClient = nil
		}
	}

	var locker *redislock.Client
	if rdb != nil {
		locker = redislock.New(rdb)
	}

	catalog := NewCatalogService(repos, logger)
	plate := NewPlateService(repos, minioClient, cfg.MinIO.Bucket, logger)
	workOrder := NewWorkOrderService(repos, catalog, locker, publisher, cfg, logger)
	plate.workOrders = workOrder

	return &Services{
		Auth:      NewAuthService(repos.User, cfg),
		Catalog:   catalog,
		Plate:     plate,
		Product:   NewProductService(repos, catalog, logger),
		WorkOrder: workOrder,
		Task:      NewTaskService(repos, catalog, publisher, logger),
		Export:    NewExportService(repos),
	}
}

// newID 生成32位主键
func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
