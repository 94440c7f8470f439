package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bitfantasy/printmes/internal/config"
	"github.com/bitfantasy/printmes/internal/middleware"
	"github.com/bitfantasy/printmes/internal/workorder/entity"
	"github.com/bitfantasy/printmes/internal/workorder/handler"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/service"
	"github.com/bitfantasy/printmes/internal/workorder/sse"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting printmes service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := autoMigrate(db); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	// 初始化 Redis
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis not reachable, work order mutations will fail", zap.Error(err))
	}

	repos := repository.NewRepositories(db)
	hub := sse.NewHub(zapLogger)
	services := service.NewServices(repos, rdb, hub, cfg, zapLogger)

	// 内置工序目录与角色组
	if err := service.SeedCatalog(context.Background(), repos, zapLogger); err != nil {
		zapLogger.Fatal("Seed process catalog failed", zap.Error(err))
	}
	if err := service.SeedGroups(context.Background(), repos, zapLogger); err != nil {
		zapLogger.Fatal("Seed groups failed", zap.Error(err))
	}
	if err := services.Catalog.Reload(context.Background()); err != nil {
		zapLogger.Fatal("Load process catalog failed", zap.Error(err))
	}

	handlers := handler.NewHandlers(services, hub, cfg.Page)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, repos, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.ProcessCategory{},
		&entity.Process{},
		&entity.Artwork{},
		&entity.Die{},
		&entity.FoilingPlate{},
		&entity.EmbossingPlate{},
		&entity.PlateLink{},
		&entity.Material{},
		&entity.Product{},
		&entity.ProductMaterial{},
		&entity.Customer{},
		&entity.User{},
		&entity.Group{},
		&entity.Department{},
		&entity.WorkOrder{},
		&entity.WorkOrderMaterial{},
		&entity.WorkOrderTask{},
		&entity.TaskLog{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, repos *repository.Repositories, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		v1.POST("/auth/login", h.Auth.Login)

		// 通知流（令牌通过 query 参数校验）
		v1.GET("/notifications/stream", h.SSE.Stream)

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		authorized.Use(middleware.LoadActor(repos.User))
		{
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/notify-token", h.Auth.NotifyToken)

			// 用户管理（仅管理员）
			users := authorized.Group("/users")
			users.Use(middleware.RequireGroup(entity.RoleAdmin))
			{
				users.POST("", h.Auth.CreateUser)
			}

			// 工序目录
			processes := authorized.Group("/processes")
			{
				processes.GET("", h.Catalog.ListProcesses)
				processes.GET("/:id", h.Catalog.GetProcess)
				processes.POST("", h.Catalog.CreateProcess)
				processes.PUT("/:id", h.Catalog.UpdateProcess)
				processes.DELETE("/:id", h.Catalog.DeleteProcess)
			}
			authorized.GET("/process-categories", h.Catalog.ListCategories)
			authorized.POST("/process-categories", h.Catalog.CreateCategory)

			// 图稿
			artworks := authorized.Group("/artworks")
			{
				artworks.POST("", h.Plate.CreateArtwork)
				artworks.GET("", h.Plate.ListArtworks)
				artworks.GET("/by-code/:base_code", h.Plate.GetArtworkVersion)
				artworks.GET("/:id", h.Plate.GetArtwork)
				artworks.PUT("/:id", h.Plate.UpdateArtwork)
				artworks.POST("/:id/revise", h.Plate.ReviseArtwork)
				artworks.POST("/:id/design-file", h.Plate.UploadDesignFile)
				artworks.GET("/:id/design-file-url", h.Plate.GetDesignFileURL)
			}

			// 刀模/烫版/压凸版
			dies := authorized.Group("/dies")
			{
				dies.POST("", h.Plate.CreateDie)
				dies.GET("", h.Plate.ListDies)
				dies.GET("/:id", h.Plate.GetDie)
			}
			foiling := authorized.Group("/foiling-plates")
			{
				foiling.POST("", h.Plate.CreateFoilingPlate)
				foiling.GET("", h.Plate.ListFoilingPlates)
				foiling.GET("/:id", h.Plate.GetFoilingPlate)
			}
			embossing := authorized.Group("/embossing-plates")
			{
				embossing.POST("", h.Plate.CreateEmbossingPlate)
				embossing.GET("", h.Plate.ListEmbossingPlates)
				embossing.GET("/:id", h.Plate.GetEmbossingPlate)
			}

			// 通用版操作与版间关联
			plates := authorized.Group("/plates")
			{
				plates.POST("/:kind/:id/confirm", h.Plate.ConfirmPlate)
				plates.DELETE("/:kind/:id", h.Plate.DeletePlate)
				plates.GET("/:kind/:id/links", h.Plate.ListPlateLinks)
			}
			authorized.POST("/plate-links", h.Plate.LinkPlates)
			authorized.DELETE("/plate-links", h.Plate.UnlinkPlates)

			// 产品/物料/客户
			products := authorized.Group("/products")
			{
				products.POST("", h.Product.CreateProduct)
				products.GET("", h.Product.ListProducts)
				products.GET("/:id", h.Product.GetProduct)
				products.PUT("/:id", h.Product.UpdateProduct)
				products.DELETE("/:id", h.Product.DeleteProduct)
			}
			materials := authorized.Group("/materials")
			{
				materials.POST("", h.Product.CreateMaterial)
				materials.GET("", h.Product.ListMaterials)
				materials.GET("/:id", h.Product.GetMaterial)
			}
			customers := authorized.Group("/customers")
			{
				customers.POST("", h.Product.CreateCustomer)
				customers.GET("", h.Product.ListCustomers)
				customers.GET("/:id", h.Product.GetCustomer)
			}

			// 施工单
			workOrders := authorized.Group("/work-orders")
			{
				workOrders.POST("", h.WorkOrder.Create)
				workOrders.GET("", h.WorkOrder.List)
				workOrders.GET("/:id", h.WorkOrder.Get)
				workOrders.PUT("/:id", h.WorkOrder.Update)
				workOrders.POST("/:id/plates", h.WorkOrder.BindPlate)
				workOrders.DELETE("/:id/plates/:kind/:plateId", h.WorkOrder.UnbindPlate)
				workOrders.PUT("/:id/processes", h.WorkOrder.SetProcesses)
				workOrders.PUT("/:id/printing-type", h.WorkOrder.SetPrintingType)
				workOrders.PUT("/:id/plate-type", h.WorkOrder.SetPlateType)
				workOrders.PUT("/:id/materials", h.WorkOrder.SetMaterials)
				workOrders.POST("/:id/rederive", h.WorkOrder.Rederive)
				// 审批仅业务员（及管理员）可操作
				workOrders.POST("/:id/approve", middleware.RequireGroup(entity.RoleSalesperson), h.WorkOrder.Approve)
				workOrders.POST("/:id/reject", middleware.RequireGroup(entity.RoleSalesperson), h.WorkOrder.Reject)
				workOrders.PUT("/:id/status", h.WorkOrder.SetStatus)
				workOrders.GET("/:id/tasks", h.Task.ListByWorkOrder)
				workOrders.GET("/:id/tasks/export", h.WorkOrder.ExportTasks)
			}

			// 任务
			tasks := authorized.Group("/tasks")
			{
				tasks.GET("", h.Task.List)
				tasks.GET("/:id", h.Task.Get)
				tasks.PUT("/:id/status", h.Task.ChangeStatus)
				tasks.PUT("/:id/assignment", h.Task.Assign)
				tasks.PUT("/:id/plate", h.Task.BindPlate)
				tasks.PUT("/:id/quantity", h.Task.UpdateQuantity)
				tasks.GET("/:id/logs", h.Task.Logs)
			}
		}
	}
}
