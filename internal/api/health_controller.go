package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/classifier"
	"gorm.io/gorm"
)

// HealthController 健康检查控制器
type HealthController struct {
	db         *gorm.DB
	classifier classifier.Classifier
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, cls classifier.Classifier) *HealthController {
	return &HealthController{
		db:         db,
		classifier: cls,
	}
}

// Check 健康检查
// @Summary      健康检查
// @Description  检查数据库与分类网关的连接状态
// @Tags         系统
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	// 检查数据库连接
	if c.db != nil {
		if err := c.checkDatabase(ctx.Request.Context()); err != nil {
			status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	// 分类网关不纳入整体健康判定,网关短暂不可用时样本查询仍可服务
	if c.classifier != nil {
		checks["classifier"] = "configured"
	} else {
		checks["classifier"] = "not configured"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// checkDatabase 检查数据库连接
func (c *HealthController) checkDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
