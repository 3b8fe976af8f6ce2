package api

import (
	"runtime"

	"github.com/gin-gonic/gin"
)

// 构建信息,由 ldflags 注入
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// VersionHandler 版本信息
// @Summary      版本信息
// @Description  返回服务的版本号和构建信息
// @Tags         系统
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func VersionHandler(c *gin.Context) {
	Success(c, gin.H{
		"version":    Version,
		"git_commit": GitCommit,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
	})
}
