// =============================================================================
// 📦 测试数据工厂 - 各供应商线上格式样例
// =============================================================================
// 提供 SSE 帧与完整响应体，供适配器测试喂给 testutil.FakeVendor
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/chatbridge/testutil"
)

// =============================================================================
// 🎯 OpenAI 兼容 chat completions
// =============================================================================

// OpenAICompatFrames 返回逐个 delta 的流，末尾带 finish_reason、usage 和 [DONE]。
func OpenAICompatFrames(deltas ...string) []string {
	frames := []string{testutil.SSEData(map[string]any{
		"id": "chatcmpl-1", "model": "test-model",
		"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"role": "assistant"}}},
	})}
	for _, d := range deltas {
		frames = append(frames, testutil.SSEData(map[string]any{
			"id": "chatcmpl-1", "model": "test-model",
			"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": d}}},
		}))
	}
	frames = append(frames,
		testutil.SSEData(map[string]any{
			"id": "chatcmpl-1", "model": "test-model",
			"choices": []any{map[string]any{"index": 0, "delta": map[string]any{}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 7, "completion_tokens": len(deltas), "total_tokens": 7 + len(deltas)},
		}),
		testutil.SSEData("[DONE]"),
	)
	return frames
}

// OpenAICompatErrorFrame 返回流内错误分片。
func OpenAICompatErrorFrame(message, typ string) string {
	return testutil.SSEData(map[string]any{
		"error": map[string]any{"message": message, "type": typ},
	})
}

// OpenAICompatCompletion 返回完整的非流式响应体。
func OpenAICompatCompletion(content, model string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-1",
		"model": model,
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
	}
}

// =============================================================================
// 🌊 OpenAI Responses API
// =============================================================================

// ResponsesFrames 返回 Responses API 的事件流。
func ResponsesFrames(deltas ...string) []string {
	frames := []string{testutil.SSENamed("response.created", map[string]any{
		"type": "response.created", "response": map[string]any{"id": "resp_1", "model": "gpt-4o"},
	})}
	full := ""
	for _, d := range deltas {
		full += d
		frames = append(frames, testutil.SSENamed("response.output_text.delta", map[string]any{
			"type": "response.output_text.delta", "output_index": 0, "content_index": 0, "delta": d,
		}))
	}
	frames = append(frames,
		testutil.SSENamed("response.output_text.done", map[string]any{
			"type": "response.output_text.done", "output_index": 0, "content_index": 0, "text": full,
		}),
		testutil.SSENamed("response.completed", map[string]any{
			"type":     "response.completed",
			"response": ResponsesCompletion(full, nil),
		}),
	)
	return frames
}

// ResponsesAnnotationFrame 返回一个 url_citation 注解事件。
func ResponsesAnnotationFrame(url, title string) string {
	return testutil.SSENamed("response.output_text.annotation.added", map[string]any{
		"type":       "response.output_text.annotation.added",
		"annotation": map[string]any{"type": "url_citation", "url": url, "title": title},
	})
}

// ResponsesFailedFrame 返回 response.failed 事件。
func ResponsesFailedFrame(code, message string) string {
	return testutil.SSENamed("response.failed", map[string]any{
		"type": "response.failed",
		"response": map[string]any{
			"id": "resp_1", "status": "failed",
			"error": map[string]any{"code": code, "message": message},
		},
	})
}

// ResponsesCompletion 返回 Responses API 的完整响应体。
func ResponsesCompletion(text string, annotations []map[string]any) map[string]any {
	if annotations == nil {
		annotations = []map[string]any{}
	}
	return map[string]any{
		"id":     "resp_1",
		"model":  "gpt-4o",
		"status": "completed",
		"output": []any{map[string]any{
			"type": "message", "role": "assistant",
			"content": []any{map[string]any{
				"type": "output_text", "text": text, "annotations": annotations,
			}},
		}},
		"usage": map[string]any{"input_tokens": 7, "output_tokens": 3, "total_tokens": 10},
	}
}

// =============================================================================
// 🧠 Anthropic Messages
// =============================================================================

// AnthropicFrames 返回 Messages API 的事件流。
func AnthropicFrames(deltas ...string) []string {
	frames := []string{
		testutil.SSENamed("message_start", map[string]any{
			"type": "message_start",
			"message": map[string]any{
				"id": "msg_1", "model": "claude-sonnet-4-5",
				"usage": map[string]any{"input_tokens": 7, "output_tokens": 1},
			},
		}),
		testutil.SSENamed("content_block_start", map[string]any{
			"type": "content_block_start", "index": 0,
			"content_block": map[string]any{"type": "text", "text": ""},
		}),
		testutil.SSENamed("ping", map[string]any{"type": "ping"}),
	}
	for _, d := range deltas {
		frames = append(frames, AnthropicTextDelta(d))
	}
	frames = append(frames,
		testutil.SSENamed("content_block_stop", map[string]any{"type": "content_block_stop", "index": 0}),
		testutil.SSENamed("message_delta", map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": "end_turn"},
			"usage": map[string]any{"output_tokens": len(deltas)},
		}),
		testutil.SSENamed("message_stop", map[string]any{"type": "message_stop"}),
	)
	return frames
}

// AnthropicTextDelta 返回单个 text_delta 事件。
func AnthropicTextDelta(text string) string {
	return testutil.SSENamed("content_block_delta", map[string]any{
		"type": "content_block_delta", "index": 0,
		"delta": map[string]any{"type": "text_delta", "text": text},
	})
}

// AnthropicCitationDelta 返回单个 citations_delta 事件。
func AnthropicCitationDelta(url, title, citedText string) string {
	return testutil.SSENamed("content_block_delta", map[string]any{
		"type": "content_block_delta", "index": 0,
		"delta": map[string]any{
			"type": "citations_delta",
			"citation": map[string]any{
				"type": "web_search_result_location", "url": url, "title": title, "cited_text": citedText,
			},
		},
	})
}

// AnthropicErrorFrame 返回流内 error 事件。
func AnthropicErrorFrame(typ, message string) string {
	return testutil.SSENamed("error", map[string]any{
		"type":  "error",
		"error": map[string]any{"type": typ, "message": message},
	})
}

// AnthropicMessage 返回完整的非流式响应体。
func AnthropicMessage(text string) map[string]any {
	return map[string]any{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
		"content":     []any{map[string]any{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 7, "output_tokens": 3},
	}
}

// =============================================================================
// 🔶 Cohere v2 chat
// =============================================================================

// CohereFrames 返回 v2 chat 的类型化事件流。
func CohereFrames(finishReason string, deltas ...string) []string {
	frames := []string{
		testutil.SSENamed("message-start", map[string]any{"type": "message-start", "id": "c-1"}),
		testutil.SSENamed("content-start", map[string]any{"type": "content-start", "index": 0}),
	}
	for _, d := range deltas {
		frames = append(frames, testutil.SSENamed("content-delta", map[string]any{
			"type": "content-delta", "index": 0,
			"delta": map[string]any{"message": map[string]any{"content": map[string]any{"text": d}}},
		}))
	}
	frames = append(frames,
		testutil.SSENamed("content-end", map[string]any{"type": "content-end", "index": 0}),
		testutil.SSENamed("message-end", map[string]any{
			"type": "message-end",
			"delta": map[string]any{
				"finish_reason": finishReason,
				"usage": map[string]any{
					"billed_units": map[string]any{"input_tokens": 7, "output_tokens": len(deltas)},
				},
			},
		}),
	)
	return frames
}

// CohereCitationFrame 返回 citation-start 事件。
func CohereCitationFrame(url, title, text string) string {
	return testutil.SSENamed("citation-start", map[string]any{
		"type": "citation-start", "index": 0,
		"delta": map[string]any{"message": map[string]any{"citations": map[string]any{
			"start": 0, "end": len(text), "text": text,
			"sources": []any{map[string]any{
				"type": "document", "id": "doc-1",
				"document": map[string]any{"url": url, "title": title},
			}},
		}}},
	})
}

// CohereLegacyFrames 返回旧版 text-generation / stream-end 事件（无 event 行）。
func CohereLegacyFrames(deltas ...string) []string {
	var frames []string
	full := ""
	for _, d := range deltas {
		full += d
		frames = append(frames, testutil.SSEData(map[string]any{
			"event_type": "text-generation", "text": d,
		}))
	}
	frames = append(frames, testutil.SSEData(map[string]any{
		"event_type":    "stream-end",
		"finish_reason": "COMPLETE",
		"response":      map[string]any{"text": full},
	}))
	return frames
}

// CohereChat 返回 v2 chat 的完整响应体。
func CohereChat(text string) map[string]any {
	return map[string]any{
		"id":            "c-1",
		"finish_reason": "COMPLETE",
		"message": map[string]any{
			"role":    "assistant",
			"content": []any{map[string]any{"type": "text", "text": text}},
		},
		"usage": map[string]any{
			"billed_units": map[string]any{"input_tokens": 7, "output_tokens": 3},
		},
	}
}

// =============================================================================
// 🔎 Perplexity
// =============================================================================

// PerplexityCompletion 返回带 citations 与 search_results 的响应体。
func PerplexityCompletion(content string, urls []string, results []map[string]any) map[string]any {
	body := OpenAICompatCompletion(content, "sonar")
	if urls != nil {
		body["citations"] = urls
	}
	if results != nil {
		body["search_results"] = results
	}
	return body
}
