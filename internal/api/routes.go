package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/docs" // 导入生成的 docs 包
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/auth"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/classifier"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/config"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/service"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/websocket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Config        *config.Config
	DB            *gorm.DB
	Hub           *websocket.Hub
	Validator     *auth.TokenValidator
	Classifier    classifier.Classifier
	SampleService service.SampleService
	BatchService  service.BatchService
	AuditService  service.AuditLogService
}

// SetupRoutes 配置路由
func SetupRoutes(deps *RouterDeps) *gin.Engine {
	if config.IsProduction(deps.Config) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(deps.Config.CORS.AllowedOrigins))
	if deps.Config.Tracing.Enabled {
		router.Use(TracingMiddleware())
	}

	// 健康检查
	healthController := NewHealthController(deps.DB, deps.Classifier)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// 版本信息
	router.GET("/version", VersionHandler)

	// WebSocket 路由,订阅样本状态变更
	if deps.Hub != nil {
		router.GET("/ws/samples/:id", websocket.SampleStreamHandler(deps.Hub, deps.Validator))
	}

	// Swagger UI 路由
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 未匹配路由返回 JSON 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", c.Request.URL.Path)
	})

	// 认证中间件: 生产环境验证 JWT,开发环境读 X-Actor-* 请求头
	var authMiddleware gin.HandlerFunc
	if deps.Validator != nil {
		authMiddleware = auth.TokenAuthMiddleware(deps.Validator)
	} else {
		authMiddleware = auth.DevActorMiddleware()
	}

	sampleController := NewSampleController(deps.SampleService)
	batchController := NewBatchController(deps.BatchService)
	auditController := NewAuditController(deps.AuditService)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(100, 200))
	v1.Use(authMiddleware)
	{
		// 样本生命周期路由
		samples := v1.Group("/samples")
		{
			samples.POST("", sampleController.Create)
			samples.GET("", sampleController.List)
			samples.GET("/:id", sampleController.Get)
			samples.GET("/:id/history", sampleController.History)
			samples.POST("/:id/decide", sampleController.Decide)
			samples.POST("/:id/appeal", sampleController.FileAppeal)
			samples.POST("/:id/resolve", sampleController.ResolveAppeal)
			samples.POST("/:id/force", sampleController.ForceDecide)
		}

		// 批次装配路由
		batches := v1.Group("/batches")
		{
			batches.POST("", batchController.Create)
			batches.GET("", batchController.List)
			batches.GET("/:id", batchController.Get)
			batches.GET("/:id/verify", batchController.Verify)
			batches.GET("/:id/anchor-jobs", batchController.AnchorJobs)
		}

		// 审计日志路由(仅管理员)
		audits := v1.Group("/audit-logs")
		{
			audits.GET("", auditController.ListRecent)
			audits.GET("/:resource_type/:resource_id", auditController.ListByResource)
		}
	}

	return router
}
