package authz_test

import (
	"testing"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/authz"
	"github.com/stretchr/testify/assert"
)

// TestCanPerform 测试授权矩阵
func TestCanPerform(t *testing.T) {
	// 采集员: 提交样本和申诉
	assert.True(t, authz.CanPerform(authz.RoleCollector, authz.ActionSubmitSample))
	assert.True(t, authz.CanPerform(authz.RoleCollector, authz.ActionFileAppeal))
	assert.False(t, authz.CanPerform(authz.RoleCollector, authz.ActionQCDecide))
	assert.False(t, authz.CanPerform(authz.RoleCollector, authz.ActionCreateBatch))
	assert.False(t, authz.CanPerform(authz.RoleCollector, authz.ActionResolveAppeal))

	// 质检员: 只有裁定权
	assert.True(t, authz.CanPerform(authz.RoleQC, authz.ActionQCDecide))
	assert.False(t, authz.CanPerform(authz.RoleQC, authz.ActionSubmitSample))
	assert.False(t, authz.CanPerform(authz.RoleQC, authz.ActionResolveAppeal))
	assert.False(t, authz.CanPerform(authz.RoleQC, authz.ActionForceDecide))

	// 管理员: 裁决、强制改判、角色管理、审计
	assert.True(t, authz.CanPerform(authz.RoleAdmin, authz.ActionResolveAppeal))
	assert.True(t, authz.CanPerform(authz.RoleAdmin, authz.ActionForceDecide))
	assert.True(t, authz.CanPerform(authz.RoleAdmin, authz.ActionManageRoles))
	assert.True(t, authz.CanPerform(authz.RoleAdmin, authz.ActionViewAudit))
	assert.False(t, authz.CanPerform(authz.RoleAdmin, authz.ActionQCDecide))
	assert.False(t, authz.CanPerform(authz.RoleAdmin, authz.ActionSubmitSample))

	// 制造商: 只能创建批次
	assert.True(t, authz.CanPerform(authz.RoleManufacturer, authz.ActionCreateBatch))
	assert.False(t, authz.CanPerform(authz.RoleManufacturer, authz.ActionSubmitSample))
	assert.False(t, authz.CanPerform(authz.RoleManufacturer, authz.ActionQCDecide))
}

// TestCanPerform_UnknownRole 测试未知角色没有任何权限
func TestCanPerform_UnknownRole(t *testing.T) {
	assert.False(t, authz.CanPerform(authz.Role("superuser"), authz.ActionSubmitSample))
	assert.False(t, authz.CanPerform(authz.Role(""), authz.ActionQCDecide))
}

// TestCanGrantRole 测试角色授予规则
func TestCanGrantRole(t *testing.T) {
	// 管理员可以授予任何角色
	assert.True(t, authz.CanGrantRole(authz.RoleAdmin, authz.RoleCollector))
	assert.True(t, authz.CanGrantRole(authz.RoleAdmin, authz.RoleQC))
	assert.True(t, authz.CanGrantRole(authz.RoleAdmin, authz.RoleManufacturer))
	assert.True(t, authz.CanGrantRole(authz.RoleAdmin, authz.RoleAdmin))

	// 没有 manage_roles 权限的角色不能授予任何角色
	assert.False(t, authz.CanGrantRole(authz.RoleQC, authz.RoleCollector))
	assert.False(t, authz.CanGrantRole(authz.RoleCollector, authz.RoleCollector))
	assert.False(t, authz.CanGrantRole(authz.RoleManufacturer, authz.RoleCollector))
}

// TestPrivilegeLevel 测试特权级别
func TestPrivilegeLevel(t *testing.T) {
	assert.Equal(t, 1, authz.PrivilegeLevel(authz.RoleCollector))
	assert.Equal(t, 1, authz.PrivilegeLevel(authz.RoleManufacturer))
	assert.Equal(t, 2, authz.PrivilegeLevel(authz.RoleQC))
	assert.Equal(t, 3, authz.PrivilegeLevel(authz.RoleAdmin))
	assert.Equal(t, 0, authz.PrivilegeLevel(authz.Role("unknown")))
}

// TestParseRole 测试角色解析
func TestParseRole(t *testing.T) {
	role, ok := authz.ParseRole("collector")
	assert.True(t, ok)
	assert.Equal(t, authz.RoleCollector, role)

	role, ok = authz.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, authz.RoleAdmin, role)

	_, ok = authz.ParseRole("root")
	assert.False(t, ok)

	_, ok = authz.ParseRole("")
	assert.False(t, ok)
}
