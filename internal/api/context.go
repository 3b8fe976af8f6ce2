package api

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext 构造下游服务使用的 context
// 把认证中间件写入 gin 上下文的身份信息和请求元数据带入请求 context
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	for _, key := range []string{"user_id", "user_name", "user_role", "request_id"} {
		if v, ok := c.Get(key); ok {
			ctx = context.WithValue(ctx, key, v)
		}
	}
	ctx = context.WithValue(ctx, "ip", c.ClientIP())
	return ctx
}
