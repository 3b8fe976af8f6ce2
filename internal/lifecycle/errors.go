package lifecycle

import (
	"errors"
	"fmt"
)

// WorkflowError 工作流错误
// 所有守卫失败都返回带错误码的类型化错误,调用方据此区分
// "稍后重试" 与 "请求本身非法"
type WorkflowError struct {
	Code    string
	Message string
}

func (e *WorkflowError) Error() string {
	return e.Message
}

// 错误定义
var (
	// ErrStaleState 读取后状态已被其他操作者修改,CAS 写入未命中
	ErrStaleState = &WorkflowError{Code: "STALE_STATE", Message: "sample state changed since it was read"}
	// ErrConcurrentModification 批次装配的资格快照与提交之间状态发生变化
	ErrConcurrentModification = &WorkflowError{Code: "CONCURRENT_MODIFICATION", Message: "sample state changed between eligibility check and commit"}
	// ErrNotOwner 申诉人不是样本的提交者
	ErrNotOwner = &WorkflowError{Code: "NOT_OWNER", Message: "only the submitting collector may appeal this sample"}
	// ErrNotAdmin 裁决人不是管理员
	ErrNotAdmin = &WorkflowError{Code: "NOT_ADMIN", Message: "only an admin may resolve an appeal"}
	// ErrAppealAlreadyFiled 样本已有申诉记录
	ErrAppealAlreadyFiled = &WorkflowError{Code: "APPEAL_ALREADY_FILED", Message: "an appeal has already been filed for this sample"}
)

// InvalidTransitionError 非法状态转换
// 错误信息包含当前状态和请求状态,便于上层渲染可操作的提示
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: sample is %s, cannot move to %s", e.From, e.To)
}

// WrongStateError 操作要求的状态与样本当前状态不符
type WrongStateError struct {
	Current  string
	Required string
}

func (e *WrongStateError) Error() string {
	return fmt.Sprintf("wrong state: sample is %s, operation requires %s", e.Current, e.Required)
}

// NotEligibleError 样本不满足入批条件
type NotEligibleError struct {
	SampleID string
	Reason   string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("sample %s is not eligible for batching: %s", e.SampleID, e.Reason)
}

// ForbiddenError 角色无权执行操作
type ForbiddenError struct {
	Role   string
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %s is not permitted to %s", e.Role, e.Action)
}

// AnalysisError AI 分析失败
// 来源于外部依赖,与内部不变量违规区分上报
type AnalysisError struct {
	Cause error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %v", e.Cause)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// ValidationError 输入校验错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsStale 判断错误是否为并发写入冲突
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleState) || errors.Is(err, ErrConcurrentModification)
}
