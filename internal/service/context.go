package service

import (
	"context"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/authz"
)

// Actor 发起操作的主体
// 身份由上游认证层建立,本服务只做授权判断
type Actor struct {
	ID   string
	Name string
	Role authz.Role
}

// actorFromContext 从 context 中获取操作者身份（由认证中间件设置）
func actorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	actor := Actor{}
	if v, ok := ctx.Value("user_id").(string); ok {
		actor.ID = v
	}
	if v, ok := ctx.Value("user_name").(string); ok {
		actor.Name = v
	}
	if v, ok := ctx.Value("user_role").(string); ok {
		if role, valid := authz.ParseRole(v); valid {
			actor.Role = role
		}
	}
	return actor
}

// StatusNotifier 样本状态变更通知接口
// 由 websocket hub 实现,服务层在每次成功的状态转换后调用
type StatusNotifier interface {
	NotifyStatusChange(sampleID, fromStatus, toStatus string)
}
