package container

import (
	"fmt"
	"time"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/anchor"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/api"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/auth"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/classifier"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/config"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/database"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/repository"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/service"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务、外部客户端
type Container struct {
	db            *gorm.DB
	logger        *logrus.Logger
	hub           *websocket.Hub
	classifier    classifier.Classifier
	anchorWorker  *anchor.Worker
	sampleService service.SampleService
	batchService  service.BatchService
	auditService  service.AuditLogService
	validator     *auth.TokenValidator
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化日志
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 2. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 3. 初始化分类网关客户端
	cls := classifier.NewHTTPClassifier(cfg.Classifier.BaseURL, time.Duration(cfg.Classifier.Timeout)*time.Second)

	// 4. 初始化 WebSocket Hub
	hub := websocket.NewHub()

	// 5. 初始化审计日志服务
	auditService := service.NewAuditLogService(repository.NewAuditLogRepository(db))

	// 6. 初始化锚定 worker（按配置开关）
	var anchorWorker *anchor.Worker
	var enqueuer service.BatchAnchorEnqueuer
	if cfg.Anchor.Enabled {
		anchorer := anchor.NewHTTPAnchorer(cfg.Anchor.BaseURL, time.Duration(cfg.Anchor.Timeout)*time.Second)
		anchorWorker = anchor.NewWorker(db, anchorer, logger, anchor.WorkerOptions{
			Workers:    cfg.Anchor.Workers,
			MaxRetries: cfg.Anchor.MaxRetries,
		})
		enqueuer = anchorWorker
	}

	// 7. 初始化业务服务
	sampleService := service.NewSampleService(db, cls, auditService, hub)
	batchService := service.NewBatchService(db, auditService, enqueuer, hub)

	return &Container{
		db:            db,
		logger:        logger,
		hub:           hub,
		classifier:    cls,
		anchorWorker:  anchorWorker,
		sampleService: sampleService,
		batchService:  batchService,
		auditService:  auditService,
	}, nil
}

// SetTokenValidator 设置 Token 验证器
// 生产环境由启动逻辑注入,开发环境保持 nil 走请求头身份
func (c *Container) SetTokenValidator(v *auth.TokenValidator) {
	c.validator = v
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Classifier 获取分类网关客户端
func (c *Container) Classifier() classifier.Classifier {
	return c.classifier
}

// AnchorWorker 获取锚定 worker,未启用时为 nil
func (c *Container) AnchorWorker() *anchor.Worker {
	return c.anchorWorker
}

// SampleService 获取样本服务
func (c *Container) SampleService() service.SampleService {
	return c.sampleService
}

// BatchService 获取批次服务
func (c *Container) BatchService() service.BatchService {
	return c.batchService
}

// AuditService 获取审计日志服务
func (c *Container) AuditService() service.AuditLogService {
	return c.auditService
}

// TokenValidator 获取 Token 验证器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.validator
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.anchorWorker != nil {
		c.anchorWorker.Stop()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
