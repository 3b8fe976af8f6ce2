package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/authz"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/service"
)

// AuditController 审计日志控制器
type AuditController struct {
	auditService service.AuditLogService
}

// NewAuditController 创建审计日志控制器
func NewAuditController(auditService service.AuditLogService) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// requireAuditViewer 审计日志仅管理员可见
func (c *AuditController) requireAuditViewer(ctx *gin.Context) bool {
	role, _ := authz.ParseRole(ctx.GetString("user_role"))
	if !authz.CanPerform(role, authz.ActionViewAudit) {
		Error(ctx, http.StatusForbidden, "forbidden", "audit logs require admin role")
		return false
	}
	return true
}

// ListByResource 按资源查询审计日志
// @Summary      按资源查询审计日志
// @Description  返回指定样本或批次的全部审计记录
// @Tags         审计
// @Produce      json
// @Param        resource_type path string true "资源类型(sample/batch)"
// @Param        resource_id   path string true "资源 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /audit-logs/{resource_type}/{resource_id} [get]
// @Security     BearerAuth
func (c *AuditController) ListByResource(ctx *gin.Context) {
	if !c.requireAuditViewer(ctx) {
		return
	}

	resourceType := ctx.Param("resource_type")
	if resourceType != "sample" && resourceType != "batch" {
		Error(ctx, http.StatusBadRequest, "invalid resource type", resourceType)
		return
	}

	logs, err := c.auditService.ListByResource(resourceType, ctx.Param("resource_id"))
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, logs)
}

// ListRecent 最近的审计日志
// @Summary      最近的审计日志
// @Description  按时间倒序返回最近的审计记录
// @Tags         审计
// @Produce      json
// @Param        limit query int false "返回条数,默认 50"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /audit-logs [get]
// @Security     BearerAuth
func (c *AuditController) ListRecent(ctx *gin.Context) {
	if !c.requireAuditViewer(ctx) {
		return
	}

	limit := 50
	if s := ctx.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			Error(ctx, http.StatusBadRequest, "invalid limit", s)
			return
		}
		limit = n
	}

	logs, err := c.auditService.ListRecent(limit)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, logs)
}
