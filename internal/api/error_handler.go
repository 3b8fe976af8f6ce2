package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/lifecycle"
	"gorm.io/gorm"
)

// RenderError 把服务层错误映射为 HTTP 响应
// 并发冲突返回 409,调用方可重读后重试;非法请求返回 4xx
func RenderError(c *gin.Context, err error) {
	var workflowErr *lifecycle.WorkflowError
	if errors.As(err, &workflowErr) {
		switch workflowErr.Code {
		case "STALE_STATE", "CONCURRENT_MODIFICATION":
			Error(c, http.StatusConflict, workflowErr.Message, workflowErr.Code)
		case "NOT_OWNER", "NOT_ADMIN":
			Error(c, http.StatusForbidden, workflowErr.Message, workflowErr.Code)
		case "APPEAL_ALREADY_FILED":
			Error(c, http.StatusConflict, workflowErr.Message, workflowErr.Code)
		default:
			Error(c, http.StatusBadRequest, workflowErr.Message, workflowErr.Code)
		}
		return
	}

	var forbiddenErr *lifecycle.ForbiddenError
	if errors.As(err, &forbiddenErr) {
		Error(c, http.StatusForbidden, "forbidden", forbiddenErr.Error())
		return
	}

	var transitionErr *lifecycle.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		Error(c, http.StatusConflict, "invalid transition", transitionErr.Error())
		return
	}

	var stateErr *lifecycle.WrongStateError
	if errors.As(err, &stateErr) {
		Error(c, http.StatusConflict, "wrong state", stateErr.Error())
		return
	}

	var eligibleErr *lifecycle.NotEligibleError
	if errors.As(err, &eligibleErr) {
		Error(c, http.StatusUnprocessableEntity, "sample not eligible", eligibleErr.Error())
		return
	}

	var validationErr *lifecycle.ValidationError
	if errors.As(err, &validationErr) {
		Error(c, http.StatusBadRequest, "invalid request", validationErr.Error())
		return
	}

	var analysisErr *lifecycle.AnalysisError
	if errors.As(err, &analysisErr) {
		Error(c, http.StatusBadGateway, "analysis failed", analysisErr.Error())
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		Error(c, http.StatusNotFound, "not found", err.Error())
		return
	}

	Error(c, http.StatusInternalServerError, "internal server error", err.Error())
}
