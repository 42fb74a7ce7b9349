package anthropic

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/BaSui01/chatbridge/llm/citations"
	"github.com/BaSui01/chatbridge/llm/errnorm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// streamEvent 是所有 SSE 事件的外层结构，Type 决定哪些字段有值。
type streamEvent struct {
	Type         string          `json:"type"`
	Message      *claudeResponse `json:"message,omitempty"`       // message_start
	ContentBlock *claudeContent  `json:"content_block,omitempty"` // content_block_start
	Delta        *streamDelta    `json:"delta,omitempty"`         // content_block_delta / message_delta
	Usage        *claudeUsage    `json:"usage,omitempty"`         // message_delta
}

// streamDelta 按 Type 区分：text_delta 带 Text，citations_delta 带 Citation，
// message_delta 无 Type 而带 StopReason。
type streamDelta struct {
	Type       string          `json:"type,omitempty"`
	Text       string          `json:"text,omitempty"`
	Citation   *claudeCitation `json:"citation,omitempty"`
	StopReason string          `json:"stop_reason,omitempty"`
}

// StreamSSE 解析 Messages API 的 SSE 流。
func StreamSSE(sink *streaming.Sink, body io.Reader, provider string) error {
	n := &normalizer{sink: sink, provider: provider, refs: citations.NewBuilder()}
	if err := providers.PumpSSE(sink, body, provider, n.handle); err != nil {
		return err
	}
	n.finish()
	return nil
}

type normalizer struct {
	sink     *streaming.Sink
	provider string
	refs     *citations.Builder

	inputTokens  int
	outputTokens int
}

func (n *normalizer) handle(frame streaming.SSEEvent) (bool, error) {
	var ev streamEvent
	if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
		return false, types.NewAPIError(types.ErrAPIInvalidResponse,
			fmt.Sprintf("%s sent an undecodable stream event: %v", n.provider, err),
			http.StatusOK, n.provider, err)
	}
	if ev.Type == "" {
		ev.Type = frame.Event
	}

	switch ev.Type {
	case "message_start":
		if ev.Message != nil && ev.Message.Usage != nil {
			n.inputTokens = ev.Message.Usage.InputTokens
			n.outputTokens = ev.Message.Usage.OutputTokens
		}

	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "text" {
			n.sink.Text(ev.ContentBlock.Text)
		}

	case "content_block_delta":
		if ev.Delta == nil {
			return false, nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			n.sink.Text(ev.Delta.Text)
		case "citations_delta":
			if c := ev.Delta.Citation; c != nil {
				n.refs.Add(c.URL, c.Title, c.CitedText)
			}
		}

	case "message_delta":
		if ev.Usage != nil {
			n.outputTokens = ev.Usage.OutputTokens
		}
		if ev.Delta != nil && ev.Delta.StopReason == "refusal" {
			return false, errnorm.FromStreamPayload(refusalPayload, n.provider)
		}

	case "message_stop":
		n.finish()
		return true, nil

	case "error":
		return false, errnorm.FromStreamPayload(frame.Data, n.provider)
	}
	// ping / content_block_stop 无需处理
	return false, nil
}

func (n *normalizer) finish() {
	if n.sink.Terminated() {
		return
	}
	if n.inputTokens > 0 || n.outputTokens > 0 {
		n.sink.Usage(types.NewUsage(n.inputTokens, n.outputTokens, 0))
	}
	if n.refs.Len() > 0 {
		n.sink.Citations(n.refs.List())
	} else {
		n.sink.Citations(citations.FromMarkdown(n.sink.Accumulated()))
	}
	n.sink.Done()
}
