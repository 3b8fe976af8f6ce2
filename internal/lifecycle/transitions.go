package lifecycle

import (
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
)

// Event 状态机事件
type Event string

// 事件定义
const (
	EventQCApprove       Event = "qc_approve"       // 质检通过
	EventQCReject        Event = "qc_reject"        // 质检拒绝
	EventFileAppeal      Event = "file_appeal"      // 提交申诉
	EventResolveOverride Event = "resolve_override" // 申诉改判通过
	EventResolveUphold   Event = "resolve_uphold"   // 申诉维持拒绝
	EventForceApprove    Event = "force_approve"    // 管理员强制通过
	EventForceReject     Event = "force_reject"     // 管理员强制拒绝
	EventBatch           Event = "batch"            // 纳入批次
)

// transitions 状态转换表
// 表外的任何转换一律视为非法
var transitions = map[string]map[Event]string{
	model.StatusPendingReview: {
		EventQCApprove: model.StatusApproved,
		EventQCReject:  model.StatusRejected,
	},
	model.StatusRejected: {
		EventFileAppeal:   model.StatusAppealed,
		EventForceApprove: model.StatusApproved,
	},
	model.StatusAppealed: {
		EventResolveOverride: model.StatusApproved,
		EventResolveUphold:   model.StatusRejected,
	},
	model.StatusApproved: {
		EventForceReject: model.StatusRejected,
		EventBatch:       model.StatusBatched,
	},
}

// Next 计算事件触发后的目标状态
// 转换表中不存在的组合返回 InvalidTransitionError
func Next(from string, event Event) (string, error) {
	if row, ok := transitions[from]; ok {
		if to, ok := row[event]; ok {
			return to, nil
		}
	}
	return "", &InvalidTransitionError{From: from, To: targetOf(event)}
}

// CanTransition 判断转换是否合法
func CanTransition(from string, event Event) bool {
	_, err := Next(from, event)
	return err == nil
}

// IsTerminal 判断状态是否为终态
// rejected 在申诉被消耗前仍可申诉,batched 永远是终态
func IsTerminal(status string) bool {
	return status == model.StatusBatched
}

// targetOf 事件的名义目标状态,仅用于错误信息
func targetOf(event Event) string {
	switch event {
	case EventQCApprove, EventResolveOverride, EventForceApprove:
		return model.StatusApproved
	case EventQCReject, EventResolveUphold, EventForceReject:
		return model.StatusRejected
	case EventFileAppeal:
		return model.StatusAppealed
	case EventBatch:
		return model.StatusBatched
	}
	return string(event)
}
