package streaming

import (
	"github.com/BaSui01/chatbridge/types"
)

// EventType 是规范化流事件的标签。
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventCitations EventType = "citations"
	EventError     EventType = "error"
	EventDone      EventType = "done"
)

// Event 是所有供应商流协议归约后的唯一事件类型。
type Event struct {
	Type      EventType        `json:"type"`
	Text      string           `json:"text,omitempty"`
	Citations []types.Citation `json:"citations,omitempty"`
	Err       types.Typed      `json:"-"`
}

// TextDelta 构造文本增量事件。
func TextDelta(text string) Event { return Event{Type: EventTextDelta, Text: text} }

// CitationsEvent 构造引用事件。
func CitationsEvent(c []types.Citation) Event { return Event{Type: EventCitations, Citations: c} }

// ErrorEvent 构造终止错误事件。
func ErrorEvent(err types.Typed) Event { return Event{Type: EventError, Err: err} }

// DoneEvent 构造正常结束事件。
func DoneEvent() Event { return Event{Type: EventDone} }

// IsTerminal 报告事件是否结束流。
func (e Event) IsTerminal() bool { return e.Type == EventDone || e.Type == EventError }

// Message 返回错误事件的可展示文本。
func (e Event) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Base().UserMessage
}

// Retryable 报告错误事件是否可重试。
func (e Event) Retryable() bool {
	return e.Err != nil && e.Err.Base().Retryable
}

// State 是单条流的生命周期状态。
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateDelivering
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateDelivering:
		return "delivering"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsFinal 报告状态是否为终态。
func (s State) IsFinal() bool { return s == StateCompleted || s == StateFailed }
