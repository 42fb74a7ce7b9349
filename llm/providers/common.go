package providers

import (
	"encoding/json"

	"github.com/BaSui01/chatbridge/llm/citations"
	"github.com/BaSui01/chatbridge/types"
)

// OpenAI 兼容 chat completions 的线上结构，被 openaicompat、deepseek、
// mistral、grok、perplexity 共同使用。

// OpenAICompatMessage 表示 OpenAI 兼容的消息格式。
// Content 为 string 或 []OpenAICompatContentPart。
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// OpenAICompatContentPart 是多模态消息中的一段内容。
type OpenAICompatContentPart struct {
	Type     string                `json:"type"`
	Text     string                `json:"text,omitempty"`
	ImageURL *OpenAICompatImageURL `json:"image_url,omitempty"`
	File     *OpenAICompatFile     `json:"file,omitempty"`
}

// OpenAICompatImageURL 图片引用，URL 可以是 data URI。
type OpenAICompatImageURL struct {
	URL string `json:"url"`
}

// OpenAICompatFile 文档附件。
type OpenAICompatFile struct {
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data"`
}

// OpenAICompatStreamOptions 请求在流末尾附带 usage。
type OpenAICompatStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// OpenAICompatRequest 表示 OpenAI 兼容的聊天完成请求。
type OpenAICompatRequest struct {
	Model               string                     `json:"model"`
	Messages            []OpenAICompatMessage      `json:"messages"`
	MaxTokens           int                        `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                        `json:"max_completion_tokens,omitempty"`
	Temperature         *float64                   `json:"temperature,omitempty"`
	Stream              bool                       `json:"stream,omitempty"`
	StreamOptions       *OpenAICompatStreamOptions `json:"stream_options,omitempty"`
}

// OpenAICompatDelta 流式增量。
type OpenAICompatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// OpenAICompatChoice 表示响应或流分片中的一个选项。
type OpenAICompatChoice struct {
	Index        int                  `json:"index"`
	FinishReason string               `json:"finish_reason,omitempty"`
	Message      *OpenAICompatMessage `json:"message,omitempty"`
	Delta        *OpenAICompatDelta   `json:"delta,omitempty"`
}

// OpenAICompatUsage token 用量。
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToUsage 转换为统一的 types.Usage，nil 安全。
func (u *OpenAICompatUsage) ToUsage() *types.Usage {
	if u == nil {
		return nil
	}
	return types.NewUsage(u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

// OpenAICompatErrorBody 是流内或响应体中的错误信封。
type OpenAICompatErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// OpenAICompatResponse 表示完整响应或单个流分片。
// Citations / SearchResults 仅由支持检索的供应商返回。
type OpenAICompatResponse struct {
	ID            string                   `json:"id"`
	Model         string                   `json:"model"`
	Choices       []OpenAICompatChoice     `json:"choices"`
	Usage         *OpenAICompatUsage       `json:"usage,omitempty"`
	Citations     []string                 `json:"citations,omitempty"`
	SearchResults []citations.SearchResult `json:"search_results,omitempty"`
	Error         *OpenAICompatErrorBody   `json:"error,omitempty"`
}

// FirstText 返回第一个 choice 的文本：完整响应取 message，流分片取 delta。
func (r *OpenAICompatResponse) FirstText() string {
	if len(r.Choices) == 0 {
		return ""
	}
	c := r.Choices[0]
	if c.Delta != nil {
		return c.Delta.Content
	}
	if c.Message != nil {
		return ContentText(c.Message.Content)
	}
	return ""
}

// ContentText 把 string 或分段形式的 content 折叠为纯文本。
func ContentText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []OpenAICompatContentPart:
		var out string
		for _, p := range v {
			out += p.Text
		}
		return out
	case []any:
		var out string
		for _, raw := range v {
			if m, ok := raw.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					out += s
				}
			}
		}
		return out
	default:
		return ""
	}
}

// DecodeOpenAICompatChunk 解析一个流分片。
func DecodeOpenAICompatChunk(data string) (*OpenAICompatResponse, error) {
	var chunk OpenAICompatResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}
