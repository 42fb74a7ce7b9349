package llm

import (
	"context"

	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// Adapter 是单个供应商对统一 send/stream 契约的实现。
// 实例在构造后只读，可被多个 goroutine 并发调用。
type Adapter interface {
	// Name 返回供应商标识（如 "openai"、"anthropic"）。
	Name() string

	// Capabilities 返回该实例声明的能力，不做任何 I/O。
	Capabilities() types.Capabilities

	// SendMessage 发起一次完整往返，不产生部分输出。
	SendMessage(ctx context.Context, req *SendRequest) (*SendResult, error)

	// StreamMessage 建立连接并返回规范化事件流。
	// 连接阶段的失败（鉴权、状态码、网络）以类型化错误直接返回；
	// 之后的失败以流内单个 Error 事件出现。取消 ctx 或调用 Stream.Close 会静默结束流。
	StreamMessage(ctx context.Context, req *SendRequest) (*streaming.Stream, error)
}

// ContinuationInstruction 是续写请求追加的固定用户指令。
const ContinuationInstruction = "Continue your previous response exactly where it stopped. Do not repeat any text you already wrote."

// ResumptionContext 描述一次被中断的回答，用于请求供应商续写。
type ResumptionContext struct {
	PartialResponse string `json:"partial_response"`
}

// SendRequest 是一次 send/stream 调用的输入。
type SendRequest struct {
	Message      string             `json:"message"`
	History      []types.Message    `json:"history,omitempty"`
	Attachments  []types.Attachment `json:"attachments,omitempty"`
	Resumption   *ResumptionContext `json:"resumption,omitempty"`
	Model        string             `json:"model,omitempty"`         // 覆盖默认模型
	SystemPrompt string             `json:"system_prompt,omitempty"` // 供应商与模型允许时注入
	Temperature  *float64           `json:"temperature,omitempty"`
	MaxTokens    int                `json:"max_tokens,omitempty"`

	// OnEvent 接收非文本侧信道事件（引用、结束、错误），在事件交付给消费者时调用。
	OnEvent func(streaming.Event) `json:"-"`
}

// ResultMetadata 是响应的附加信息。
type ResultMetadata struct {
	Citations []types.Citation `json:"citations,omitempty"`
}

// SendResult 是 SendMessage 的返回值。
type SendResult struct {
	Response  string          `json:"response"`
	ModelUsed string          `json:"model_used"`
	Usage     *types.Usage    `json:"usage,omitempty"`
	Metadata  *ResultMetadata `json:"metadata,omitempty"`
}

// Citations 返回结果中的引用，可能为 nil。
func (r *SendResult) Citations() []types.Citation {
	if r == nil || r.Metadata == nil {
		return nil
	}
	return r.Metadata.Citations
}
