package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/service"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/utils"
)

// BatchController 批次控制器
type BatchController struct {
	batchService service.BatchService
}

// NewBatchController 创建批次控制器
func NewBatchController(batchService service.BatchService) *BatchController {
	return &BatchController{
		batchService: batchService,
	}
}

// validateBatchID 验证批次 ID 并返回错误响应（如果无效）
func (c *BatchController) validateBatchID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateBatchID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid batch ID", err.Error())
		return false
	}
	return true
}

// Create 创建批次
// @Summary      创建批次
// @Description  制造商把一组已通过质检的样本装配为批次,全员合格或整体失败
// @Tags         批次管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateBatchRequest true "批次信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /batches [post]
// @Security     BearerAuth
func (c *BatchController) Create(ctx *gin.Context) {
	var req service.CreateBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if req.ID != "" {
		if err := utils.ValidateBatchID(req.ID); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid batch ID", err.Error())
			return
		}
	}

	batch, err := c.batchService.Create(requestContext(ctx), &req)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Created(ctx, batch)
}

// Get 获取批次
// @Summary      获取批次详情
// @Description  根据 ID 获取批次详情,包含成员样本和锚定回执
// @Tags         批次管理
// @Produce      json
// @Param        id path string true "批次 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{id} [get]
// @Security     BearerAuth
func (c *BatchController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateBatchID(ctx, id) {
		return
	}

	batch, err := c.batchService.Get(id)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, batch)
}

// List 批次列表
// @Summary      批次列表
// @Description  列出全部批次,可按制造商过滤
// @Tags         批次管理
// @Produce      json
// @Param        manufacturer_id query string false "制造商过滤"
// @Success      200  {object}  Response
// @Router       /batches [get]
// @Security     BearerAuth
func (c *BatchController) List(ctx *gin.Context) {
	manufacturerID := ctx.Query("manufacturer_id")

	var batches interface{}
	var err error
	if manufacturerID != "" {
		batches, err = c.batchService.ListByManufacturer(manufacturerID)
	} else {
		batches, err = c.batchService.List()
	}
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, batches)
}

// Verify 校验批次
// @Summary      校验批次内容哈希
// @Description  重算批次内容哈希并与给定值比对,供第三方扫码校验
// @Tags         批次管理
// @Produce      json
// @Param        id   path  string true "批次 ID"
// @Param        hash query string true "待比对的内容哈希"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{id}/verify [get]
// @Security     BearerAuth
func (c *BatchController) Verify(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateBatchID(ctx, id) {
		return
	}

	hash := ctx.Query("hash")
	if hash == "" {
		Error(ctx, http.StatusBadRequest, "invalid request", "hash query parameter is required")
		return
	}

	result, err := c.batchService.Verify(id, hash)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, result)
}

// AnchorJobs 查询上链任务
// @Summary      查询批次的上链任务
// @Description  返回批次的锚定任务及其重试状态
// @Tags         批次管理
// @Produce      json
// @Param        id path string true "批次 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{id}/anchor-jobs [get]
// @Security     BearerAuth
func (c *BatchController) AnchorJobs(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateBatchID(ctx, id) {
		return
	}

	jobs, err := c.batchService.AnchorJobs(id)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, jobs)
}
