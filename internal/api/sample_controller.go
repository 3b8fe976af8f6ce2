package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/repository"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/service"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/utils"
)

// SampleController 样本控制器
type SampleController struct {
	sampleService service.SampleService
}

// NewSampleController 创建样本控制器
func NewSampleController(sampleService service.SampleService) *SampleController {
	return &SampleController{
		sampleService: sampleService,
	}
}

// validateSampleID 验证样本 ID 并返回错误响应（如果无效）
func (c *SampleController) validateSampleID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateSampleID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid sample ID", err.Error())
		return false
	}
	return true
}

// Create 提交样本
// @Summary      提交样本
// @Description  采集员上传样本,同步完成 AI 物种鉴定后进入待审状态
// @Tags         样本管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateSampleRequest true "样本信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /samples [post]
// @Security     BearerAuth
func (c *SampleController) Create(ctx *gin.Context) {
	var req service.CreateSampleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	sample, err := c.sampleService.Create(requestContext(ctx), &req)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Created(ctx, sample)
}

// Get 获取样本
// @Summary      获取样本详情
// @Description  根据 ID 获取样本详情,包含分析结果、质检记录和申诉记录
// @Tags         样本管理
// @Produce      json
// @Param        id path string true "样本 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /samples/{id} [get]
// @Security     BearerAuth
func (c *SampleController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSampleID(ctx, id) {
		return
	}

	sample, err := c.sampleService.Get(id)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, sample)
}

// List 样本列表
// @Summary      样本列表
// @Description  按状态、采集员、批次、时间范围过滤样本
// @Tags         样本管理
// @Produce      json
// @Param        status       query string false "状态过滤"
// @Param        collector_id query string false "采集员过滤"
// @Param        batch_id     query string false "批次过滤"
// @Param        start_time   query string false "开始时间(RFC3339)"
// @Param        end_time     query string false "结束时间(RFC3339)"
// @Param        limit        query int    false "返回条数,默认 100"
// @Param        offset       query int    false "偏移量"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /samples [get]
// @Security     BearerAuth
func (c *SampleController) List(ctx *gin.Context) {
	filter := &repository.SampleFilter{
		Status:      ctx.Query("status"),
		CollectorID: ctx.Query("collector_id"),
		BatchID:     ctx.Query("batch_id"),
		Limit:       100,
	}

	if s := ctx.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			Error(ctx, http.StatusBadRequest, "invalid limit", s)
			return
		}
		filter.Limit = n
	}
	if s := ctx.Query("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			Error(ctx, http.StatusBadRequest, "invalid offset", s)
			return
		}
		filter.Offset = n
	}

	if s := ctx.Query("start_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid start_time", err.Error())
			return
		}
		filter.StartTime = &t
	}
	if s := ctx.Query("end_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid end_time", err.Error())
			return
		}
		filter.EndTime = &t
	}

	samples, err := c.sampleService.List(filter)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, samples)
}

// History 状态流转历史
// @Summary      状态流转历史
// @Description  按时间顺序返回样本的状态变更记录
// @Tags         样本管理
// @Produce      json
// @Param        id path string true "样本 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /samples/{id}/history [get]
// @Security     BearerAuth
func (c *SampleController) History(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSampleID(ctx, id) {
		return
	}

	history, err := c.sampleService.History(id)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, history)
}

// Decide 质检裁定
// @Summary      质检裁定
// @Description  质检员通过或拒绝待审样本,拒绝必须附带理由
// @Tags         样本管理
// @Accept       json
// @Produce      json
// @Param        id path string true "样本 ID"
// @Param        request body service.DecideRequest true "裁定信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /samples/{id}/decide [post]
// @Security     BearerAuth
func (c *SampleController) Decide(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSampleID(ctx, id) {
		return
	}

	var req service.DecideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	sample, err := c.sampleService.Decide(requestContext(ctx), id, &req)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, sample)
}

// FileAppeal 提交申诉
// @Summary      提交申诉
// @Description  采集员对被拒样本提出申诉,每个样本仅允许一次
// @Tags         样本管理
// @Accept       json
// @Produce      json
// @Param        id path string true "样本 ID"
// @Param        request body service.AppealRequest true "申诉信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /samples/{id}/appeal [post]
// @Security     BearerAuth
func (c *SampleController) FileAppeal(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSampleID(ctx, id) {
		return
	}

	var req service.AppealRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	sample, err := c.sampleService.FileAppeal(requestContext(ctx), id, &req)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, sample)
}

// ResolveAppeal 裁决申诉
// @Summary      裁决申诉
// @Description  管理员改判(override)或维持原判(uphold)
// @Tags         样本管理
// @Accept       json
// @Produce      json
// @Param        id path string true "样本 ID"
// @Param        request body service.ResolveAppealRequest true "裁决信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /samples/{id}/resolve [post]
// @Security     BearerAuth
func (c *SampleController) ResolveAppeal(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSampleID(ctx, id) {
		return
	}

	var req service.ResolveAppealRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	sample, err := c.sampleService.ResolveAppeal(requestContext(ctx), id, &req)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, sample)
}

// ForceDecide 强制改判
// @Summary      强制改判
// @Description  管理员绕过申诉路径直接改判样本
// @Tags         样本管理
// @Accept       json
// @Produce      json
// @Param        id path string true "样本 ID"
// @Param        request body service.ForceDecideRequest true "改判信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /samples/{id}/force [post]
// @Security     BearerAuth
func (c *SampleController) ForceDecide(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateSampleID(ctx, id) {
		return
	}

	var req service.ForceDecideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	sample, err := c.sampleService.ForceDecide(requestContext(ctx), id, &req)
	if err != nil {
		RenderError(ctx, err)
		return
	}

	Success(ctx, sample)
}
