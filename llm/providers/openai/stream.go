package openai

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

// responsesEvent 是 Responses 事件流中一帧的并集。
type responsesEvent struct {
	Type       string               `json:"type"`
	Delta      string               `json:"delta"`
	Text       string               `json:"text"`
	Annotation *responsesAnnotation `json:"annotation,omitempty"`
	Response   *responsesResponse   `json:"response,omitempty"`
	Code       string               `json:"code,omitempty"`
	Message    string               `json:"message,omitempty"`
}

// StreamResponses 解析 Responses API 的事件流并推送规范事件。
func StreamResponses(sink *streaming.Sink, body io.Reader, provider string) error {
	n := &responsesNormalizer{sink: sink, provider: provider, refs: citations.NewBuilder()}
	if err := providers.PumpSSE(sink, body, provider, n.handle); err != nil {
		return err
	}
	n.finish()
	return nil
}

type responsesNormalizer struct {
	sink     *streaming.Sink
	provider string
	refs     *citations.Builder

	// partDeltas 是当前 output_text 段已收到的增量数。
	partDeltas int
}

func (n *responsesNormalizer) handle(frame streaming.SSEEvent) (bool, error) {
	if frame.IsDone() {
		n.finish()
		return true, nil
	}

	var ev responsesEvent
	if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
		return false, types.NewAPIError(types.ErrAPIInvalidResponse,
			fmt.Sprintf("%s sent an undecodable stream event: %v", n.provider, err),
			http.StatusOK, n.provider, err)
	}
	if ev.Type == "" {
		ev.Type = frame.Event
	}

	switch ev.Type {
	case "response.output_text.delta":
		if ev.Delta != "" {
			n.partDeltas++
			n.sink.Text(ev.Delta)
		}

	case "response.output_text.done":
		// 没有增量的段只在 done 中携带完整文本
		if n.partDeltas == 0 {
			n.sink.Text(ev.Text)
		}
		n.partDeltas = 0

	case "response.output_text.annotation.added":
		if ev.Annotation != nil && ev.Annotation.Type == "url_citation" {
			n.refs.Add(ev.Annotation.URL, ev.Annotation.Title, "")
		}

	case "response.completed", "response.incomplete":
		if ev.Response != nil {
			if err := ev.Response.failure(n.provider); err != nil {
				return false, err
			}
			if n.sink.Deltas() == 0 {
				n.sink.Text(ev.Response.text())
			}
			ev.Response.addAnnotations(n.refs)
			n.sink.Usage(ev.Response.Usage.toUsage())
		}
		n.finish()
		return true, nil

	case "response.failed":
		if ev.Response != nil {
			if err := ev.Response.failure(n.provider); err != nil {
				return false, err
			}
		}
		return false, errnorm.FromStreamPayload(frame.Data, n.provider)

	case "error":
		return false, errnorm.FromStreamPayload(frame.Data, n.provider)
	}
	return false, nil
}

// finish 推送引用与 Done；没有注解时从正文提取 markdown 链接。
func (n *responsesNormalizer) finish() {
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
