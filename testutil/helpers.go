package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BaSui01/chatbridge/llm/streaming"
)

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// CollectStream 拉取整条流，返回拼接文本、全部事件与终止错误。
func CollectStream(t *testing.T, s *streaming.Stream) (string, []streaming.Event, error) {
	t.Helper()

	var (
		text   string
		events []streaming.Event
		err    error
	)
	for ev := range s.Events(TestContext(t)) {
		events = append(events, ev)
		switch ev.Type {
		case streaming.EventTextDelta:
			text += ev.Text
		case streaming.EventError:
			err = ev.Err
		}
	}
	return text, events, err
}

// EventTypes 返回事件类型序列，便于断言
func EventTypes(events []streaming.Event) []streaming.EventType {
	out := make([]streaming.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	if !WaitFor(condition, timeout) {
		t.Errorf("condition did not become true within %v", timeout)
	}
}

// WaitFor 等待条件满足或超时
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// MustJSON 将值转换为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MustParseJSON 解析 JSON 字符串，失败时 panic
func MustParseJSON[T any](s string) T {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}
