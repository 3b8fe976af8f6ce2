package websocket_test

import (
	"encoding/json"
	"testing"
	"time"

	ws "github.com/rdr-cyber/AgriVision-SIH-2k25-sub000/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerClient 注册一个订阅指定样本的测试客户端
func registerClient(t *testing.T, hub *ws.Hub, id, sampleID string) *ws.Client {
	t.Helper()
	client := ws.NewClient(id, "user-"+id, sampleID, hub, nil)
	hub.Register <- client

	// 等待 hub 完成注册
	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return client
}

// receiveEvent 从客户端的发送队列读取一条状态事件
func receiveEvent(t *testing.T, client *ws.Client) *ws.StatusEvent {
	t.Helper()
	select {
	case message := <-client.Send:
		var event ws.StatusEvent
		require.NoError(t, json.Unmarshal(message, &event))
		return &event
	case <-time.After(time.Second):
		t.Fatalf("client %s received no event", client.ID)
		return nil
	}
}

// TestHub_RegisterUnregister 测试客户端注册与注销
func TestHub_RegisterUnregister(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()

	client := registerClient(t, hub, "c1", "")
	assert.Equal(t, 1, hub.GetClientCount())

	hub.Unregister <- client
	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 0, hub.GetClientCount())

	// 注销时关闭了发送队列
	_, open := <-client.Send
	assert.False(t, open)
}

// TestHub_NotifyStatusChange 测试状态变更事件广播
func TestHub_NotifyStatusChange(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()

	client := registerClient(t, hub, "c1", "")

	hub.NotifyStatusChange("HC-001", "pending_review", "approved")

	event := receiveEvent(t, client)
	assert.Equal(t, "sample_status_changed", event.Type)
	assert.Equal(t, "HC-001", event.SampleID)
	assert.Equal(t, "pending_review", event.FromStatus)
	assert.Equal(t, "approved", event.ToStatus)
	assert.False(t, event.Timestamp.IsZero())
}

// TestHub_SampleSubscriptionFilter 测试按样本订阅的过滤
func TestHub_SampleSubscriptionFilter(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()

	subscribed := registerClient(t, hub, "c1", "HC-001")
	other := ws.NewClient("c2", "user-c2", "HC-999", hub, nil)
	hub.Register <- other
	all := ws.NewClient("c3", "user-c3", "", hub, nil)
	hub.Register <- all

	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() != 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 3, hub.GetClientCount())

	hub.NotifyStatusChange("HC-001", "rejected", "appealed")

	// 订阅了该样本和订阅全部的客户端收到事件
	assert.Equal(t, "HC-001", receiveEvent(t, subscribed).SampleID)
	assert.Equal(t, "HC-001", receiveEvent(t, all).SampleID)

	// 订阅其他样本的客户端没有收到
	select {
	case message := <-other.Send:
		t.Fatalf("client c2 should not receive event, got %s", message)
	case <-time.After(50 * time.Millisecond):
	}
}
