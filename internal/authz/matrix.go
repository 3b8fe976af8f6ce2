package authz

// Role 角色
type Role string

// 角色定义
const (
	RoleCollector    Role = "collector"    // 采集员
	RoleQC           Role = "qc"           // 质检员
	RoleAdmin        Role = "admin"        // 管理员
	RoleManufacturer Role = "manufacturer" // 制造商
)

// Action 受控操作
type Action string

// 操作定义
const (
	ActionSubmitSample  Action = "submit_sample"  // 提交样本
	ActionQCDecide      Action = "qc_decide"      // 质检裁定
	ActionFileAppeal    Action = "file_appeal"    // 提交申诉
	ActionResolveAppeal Action = "resolve_appeal" // 裁决申诉
	ActionForceDecide   Action = "force_decide"   // 强制改判
	ActionCreateBatch   Action = "create_batch"   // 创建批次
	ActionManageRoles   Action = "manage_roles"   // 角色管理
	ActionViewAudit     Action = "view_audit"     // 查看审计日志
)

// matrix 授权矩阵
// 所有变更操作在触碰状态之前都先查这张表,权限规则集中一处,可独立测试
var matrix = map[Role]map[Action]bool{
	RoleCollector: {
		ActionSubmitSample: true,
		ActionFileAppeal:   true,
	},
	RoleQC: {
		ActionQCDecide: true,
	},
	RoleAdmin: {
		ActionResolveAppeal: true,
		ActionForceDecide:   true,
		ActionManageRoles:   true,
		ActionViewAudit:     true,
	},
	RoleManufacturer: {
		ActionCreateBatch: true,
	},
}

// privilege 角色特权级别,用于角色授予规则
var privilege = map[Role]int{
	RoleCollector:    1,
	RoleManufacturer: 1,
	RoleQC:           2,
	RoleAdmin:        3,
}

// CanPerform 判断角色是否允许执行操作
func CanPerform(role Role, action Action) bool {
	if row, ok := matrix[role]; ok {
		return row[action]
	}
	return false
}

// CanGrantRole 判断授予人是否可以把目标角色授予他人
// 任何人都不能授予超过自身特权级别的角色
func CanGrantRole(granter, target Role) bool {
	if !CanPerform(granter, ActionManageRoles) {
		return false
	}
	gp, ok := privilege[granter]
	if !ok {
		return false
	}
	tp, ok := privilege[target]
	if !ok {
		return false
	}
	return tp <= gp
}

// PrivilegeLevel 返回角色的特权级别,未知角色返回 0
func PrivilegeLevel(role Role) int {
	return privilege[role]
}

// ParseRole 解析角色字符串
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCollector, RoleQC, RoleAdmin, RoleManufacturer:
		return Role(s), true
	}
	return "", false
}
