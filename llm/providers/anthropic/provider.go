package anthropic

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/citations"
	"github.com/BaSui01/chatbridge/llm/errnorm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	DefaultModel   = "claude-sonnet-4-5"

	// APIVersion 是 anthropic-version 请求头的取值。
	APIVersion = "2023-06-01"
)

// Quirks: system 走顶层字段，且要求严格交替。
var Quirks = providers.QuirkTable{
	Default: providers.ModelQuirks{System: providers.SystemTopLevel, StrictAlternation: true},
}

// refusalPayload 是 stop_reason=refusal 时交给错误归一化的负载。
const refusalPayload = `{"error":{"type":"content_filter","message":"The response was blocked by the content filter."}}`

// ClaudeProvider 实现 Anthropic Messages API 适配器。
type ClaudeProvider struct {
	*providers.Base
}

// NewClaudeProvider 创建 Claude 适配器。
func NewClaudeProvider(cfg providers.BaseProviderConfig, logger *zap.Logger) *ClaudeProvider {
	base := providers.ProviderConfig{
		Name:         "anthropic",
		BaseURL:      DefaultBaseURL,
		DefaultModel: DefaultModel,
		EndpointPath: "/messages",
		BuildHeaders: buildHeaders,
		Capabilities: types.Capabilities{
			Streaming:         true,
			Attachments:       true,
			SupportsImages:    true,
			SupportsDocuments: true,
			FunctionCalling:   true,
			SystemPrompt:      true,
			MaxTokens:         8192,
			ContextWindow:     200000,
		},
		Quirks: Quirks,
	}.Merge(cfg)
	return &ClaudeProvider{Base: providers.NewBase(base, logger)}
}

func buildHeaders(req *http.Request, apiKey string) {
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", APIVersion)
	req.Header.Set("Content-Type", "application/json")
}

// Compile-time interface check.
var _ llm.Adapter = (*ClaudeProvider)(nil)

// --- Messages API Types ---

type claudeRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	Source    *claudeSource    `json:"source,omitempty"`
	Citations []claudeCitation `json:"citations,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type claudeCitation struct {
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	CitedText string `json:"cited_text,omitempty"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeResponse struct {
	ID         string          `json:"id"`
	Model      string          `json:"model"`
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      *claudeUsage    `json:"usage,omitempty"`
}

// buildRequest 构造 Messages API 请求体。
func (p *ClaudeProvider) buildRequest(req *llm.SendRequest, model string, stream bool) claudeRequest {
	q := p.Quirks(model)
	turns := providers.EnsureAlternation(providers.BuildTurns(req))

	body := claudeRequest{
		Model:       model,
		Messages:    make([]claudeMessage, 0, len(turns)),
		MaxTokens:   req.MaxTokens,
		Temperature: q.Temperature(req.Temperature),
		Stream:      stream,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = p.Capabilities().MaxTokens
	}
	if q.System == providers.SystemTopLevel {
		body.System = req.SystemPrompt
	}
	for _, t := range turns {
		body.Messages = append(body.Messages, claudeMessage{Role: string(t.Role), Content: contentBlocks(t)})
	}

	p.Logger.Debug("request built",
		zap.String("model", model),
		zap.Int("messages", len(body.Messages)),
		zap.Bool("stream", stream),
	)
	return body
}

// contentBlocks 先放附件再放文本，附件使用裸 base64。
func contentBlocks(t providers.Turn) []claudeContent {
	blocks := make([]claudeContent, 0, len(t.Attachments)+1)
	for _, a := range t.Attachments {
		kind := "document"
		if a.IsImage() {
			kind = "image"
		}
		src := &claudeSource{Type: "base64", MediaType: a.MimeType, Data: providers.EncodeAttachment(a, providers.EncodingRawBase64)}
		if a.Base64 == "" {
			src = &claudeSource{Type: "url", URL: a.URI}
		}
		blocks = append(blocks, claudeContent{Type: kind, Source: src})
	}
	if t.Content != "" {
		blocks = append(blocks, claudeContent{Type: "text", Text: t.Content})
	}
	return blocks
}

// SendMessage 发起一次非流式调用。
func (p *ClaudeProvider) SendMessage(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error) {
	model := p.ResolveModel(req)
	if err := p.Validate(ctx, req, model); err != nil {
		return nil, err
	}

	var resp claudeResponse
	if err := p.PostJSON(ctx, "", p.buildRequest(req, model, false), &resp); err != nil {
		return nil, err
	}
	if resp.StopReason == "refusal" {
		return nil, errnorm.FromStreamPayload(refusalPayload, p.Name())
	}

	refs := citations.NewBuilder()
	var text string
	for _, c := range resp.Content {
		if c.Type != "text" {
			continue
		}
		text += c.Text
		for _, ct := range c.Citations {
			refs.Add(ct.URL, ct.Title, ct.CitedText)
		}
	}

	result := &llm.SendResult{Response: text, ModelUsed: model}
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	if resp.Usage != nil {
		result.Usage = types.NewUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens, 0)
	}
	c := refs.List()
	if len(c) == 0 {
		c = citations.FromMarkdown(text)
	}
	if len(c) > 0 {
		result.Metadata = &llm.ResultMetadata{Citations: c}
	}
	return result, nil
}

// StreamMessage 发起流式调用。
func (p *ClaudeProvider) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	model := p.ResolveModel(req)
	if err := p.Validate(ctx, req, model); err != nil {
		return nil, err
	}
	return p.StartStream(ctx, "", p.buildRequest(req, model, true), req.OnEvent,
		func(ctx context.Context, sink *streaming.Sink, body io.Reader) error {
			return StreamSSE(sink, body, p.Name())
		})
}
