package lifecycle_test

import (
	"testing"

	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/lifecycle"
	"github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestNext_LegalTransitions 测试转换表中的合法转换
func TestNext_LegalTransitions(t *testing.T) {
	cases := []struct {
		from  string
		event lifecycle.Event
		to    string
	}{
		{model.StatusPendingReview, lifecycle.EventQCApprove, model.StatusApproved},
		{model.StatusPendingReview, lifecycle.EventQCReject, model.StatusRejected},
		{model.StatusRejected, lifecycle.EventFileAppeal, model.StatusAppealed},
		{model.StatusRejected, lifecycle.EventForceApprove, model.StatusApproved},
		{model.StatusAppealed, lifecycle.EventResolveOverride, model.StatusApproved},
		{model.StatusAppealed, lifecycle.EventResolveUphold, model.StatusRejected},
		{model.StatusApproved, lifecycle.EventForceReject, model.StatusRejected},
		{model.StatusApproved, lifecycle.EventBatch, model.StatusBatched},
	}

	for _, c := range cases {
		to, err := lifecycle.Next(c.from, c.event)
		assert.NoError(t, err, "%s + %s", c.from, c.event)
		assert.Equal(t, c.to, to)
	}
}

// TestNext_IllegalTransitions 测试表外转换一律拒绝
func TestNext_IllegalTransitions(t *testing.T) {
	cases := []struct {
		from  string
		event lifecycle.Event
	}{
		// 待审样本不能直接申诉或入批
		{model.StatusPendingReview, lifecycle.EventFileAppeal},
		{model.StatusPendingReview, lifecycle.EventBatch},
		// 已通过的样本不能再走质检
		{model.StatusApproved, lifecycle.EventQCApprove},
		{model.StatusApproved, lifecycle.EventFileAppeal},
		// 申诉中的样本不能质检或入批
		{model.StatusAppealed, lifecycle.EventQCApprove},
		{model.StatusAppealed, lifecycle.EventBatch},
		// 已拒绝的样本不能直接入批
		{model.StatusRejected, lifecycle.EventBatch},
		// batched 是终态
		{model.StatusBatched, lifecycle.EventForceApprove},
		{model.StatusBatched, lifecycle.EventForceReject},
		{model.StatusBatched, lifecycle.EventQCReject},
	}

	for _, c := range cases {
		_, err := lifecycle.Next(c.from, c.event)
		assert.Error(t, err, "%s + %s should be rejected", c.from, c.event)

		var transitionErr *lifecycle.InvalidTransitionError
		assert.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, c.from, transitionErr.From)
	}
}

// TestCanTransition 测试转换判断
func TestCanTransition(t *testing.T) {
	assert.True(t, lifecycle.CanTransition(model.StatusPendingReview, lifecycle.EventQCApprove))
	assert.False(t, lifecycle.CanTransition(model.StatusBatched, lifecycle.EventQCApprove))
	assert.False(t, lifecycle.CanTransition("unknown", lifecycle.EventQCApprove))
}

// TestIsTerminal 测试终态判断
func TestIsTerminal(t *testing.T) {
	assert.True(t, lifecycle.IsTerminal(model.StatusBatched))
	assert.False(t, lifecycle.IsTerminal(model.StatusRejected))
	assert.False(t, lifecycle.IsTerminal(model.StatusApproved))
	assert.False(t, lifecycle.IsTerminal(model.StatusPendingReview))
	assert.False(t, lifecycle.IsTerminal(model.StatusAppealed))
}

// TestIsStale 测试并发冲突错误判断
func TestIsStale(t *testing.T) {
	assert.True(t, lifecycle.IsStale(lifecycle.ErrStaleState))
	assert.True(t, lifecycle.IsStale(lifecycle.ErrConcurrentModification))
	assert.False(t, lifecycle.IsStale(lifecycle.ErrNotOwner))
	assert.False(t, lifecycle.IsStale(nil))
}
