package cohere

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/BaSui01/chatbridge/llm/citations"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// streamEvent 同时容纳 v2（type）与 v1（event_type）事件。
type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Message *struct {
			Content *struct {
				Text string `json:"text"`
			} `json:"content,omitempty"`
			Citations *chatCitation `json:"citations,omitempty"`
		} `json:"message,omitempty"`
		FinishReason string     `json:"finish_reason,omitempty"`
		Usage        *chatUsage `json:"usage,omitempty"`
	} `json:"delta,omitempty"`

	// v1
	EventType    string `json:"event_type"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
	Response     *struct {
		Text string `json:"text"`
	} `json:"response,omitempty"`
}

// StreamSSE 解析 Cohere chat 的 SSE 流。
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
}

func (n *normalizer) handle(frame streaming.SSEEvent) (bool, error) {
	var ev streamEvent
	if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
		return false, types.NewAPIError(types.ErrAPIInvalidResponse,
			fmt.Sprintf("%s sent an undecodable stream event: %v", n.provider, err),
			http.StatusOK, n.provider, err)
	}
	kind := ev.Type
	if kind == "" {
		kind = ev.EventType
	}
	if kind == "" {
		kind = frame.Event
	}

	switch kind {
	case "content-delta":
		if ev.Delta != nil && ev.Delta.Message != nil && ev.Delta.Message.Content != nil {
			n.sink.Text(ev.Delta.Message.Content.Text)
		}

	case "citation-start":
		if ev.Delta != nil && ev.Delta.Message != nil && ev.Delta.Message.Citations != nil {
			addSources(n.refs, *ev.Delta.Message.Citations)
		}

	case "message-end":
		if ev.Delta != nil {
			if err := finishError(ev.Delta.FinishReason, n.provider); err != nil {
				return false, err
			}
			n.sink.Usage(ev.Delta.Usage.toUsage())
		}
		n.finish()
		return true, nil

	case "text-generation":
		n.sink.Text(ev.Text)

	case "stream-end":
		if err := finishError(ev.FinishReason, n.provider); err != nil {
			return false, err
		}
		if n.sink.Deltas() == 0 && ev.Response != nil {
			n.sink.Text(ev.Response.Text)
		}
		n.finish()
		return true, nil
	}
	return false, nil
}

func (n *normalizer) finish() {
	if n.sink.Terminated() {
		return
	}
	if n.refs.Len() > 0 {
		n.sink.Citations(n.refs.List())
	} else {
		n.sink.Citations(citations.FromMarkdown(n.sink.Accumulated()))
	}
	n.sink.Done()
}
