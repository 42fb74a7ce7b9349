package cohere

import (
	"context"
	"encoding/json"
	"fmt"
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
	DefaultBaseURL = "https://api.cohere.com/v2"
	DefaultModel   = "command-a-03-2025"
)

// CohereProvider 实现 Cohere v2 chat 适配器。
type CohereProvider struct {
	*providers.Base
}

// NewCohereProvider 创建 Cohere 适配器。
func NewCohereProvider(cfg providers.BaseProviderConfig, logger *zap.Logger) *CohereProvider {
	base := providers.ProviderConfig{
		Name:         "cohere",
		BaseURL:      DefaultBaseURL,
		DefaultModel: DefaultModel,
		EndpointPath: "/chat",
		Capabilities: types.Capabilities{
			Streaming:      true,
			Attachments:    true,
			SupportsImages: true,
			SystemPrompt:   true,
			MaxTokens:      8000,
			ContextWindow:  256000,
		},
	}.Merge(cfg)
	return &CohereProvider{Base: providers.NewBase(base, logger)}
}

// Compile-time interface check.
var _ llm.Adapter = (*CohereProvider)(nil)

// --- v2 chat Types ---

type chatRequest struct {
	Model       string                          `json:"model"`
	Messages    []providers.OpenAICompatMessage `json:"messages"`
	MaxTokens   int                             `json:"max_tokens,omitempty"`
	Temperature *float64                        `json:"temperature,omitempty"`
	Stream      bool                            `json:"stream"`
}

type chatContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatSource struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Document struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"document"`
}

type chatCitation struct {
	Text    string       `json:"text"`
	Sources []chatSource `json:"sources"`
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   []chatContent  `json:"content"`
	Citations []chatCitation `json:"citations,omitempty"`
}

type chatUsage struct {
	BilledUnits struct {
		InputTokens  float64 `json:"input_tokens"`
		OutputTokens float64 `json:"output_tokens"`
	} `json:"billed_units"`
}

func (u *chatUsage) toUsage() *types.Usage {
	if u == nil {
		return nil
	}
	return types.NewUsage(int(u.BilledUnits.InputTokens), int(u.BilledUnits.OutputTokens), 0)
}

type chatResponse struct {
	ID           string      `json:"id"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
	Usage        *chatUsage  `json:"usage,omitempty"`
}

// addSources 把引用中的来源加入 b；没有 URL 的来源（纯文档 ID）被忽略。
func addSources(b *citations.Builder, cs ...chatCitation) {
	for _, c := range cs {
		for _, s := range c.Sources {
			b.Add(s.Document.URL, s.Document.Title, s.Document.Snippet)
		}
	}
}

// finishError 把异常 finish_reason 转为错误；正常结束返回 nil。
func finishError(reason, provider string) *types.APIError {
	switch reason {
	case "ERROR_TOXIC":
		return errnorm.FromStreamPayload(`{"error":{"type":"content_filter","message":"The response was flagged as toxic."}}`, provider)
	case "ERROR", "ERROR_LIMIT":
		payload, _ := json.Marshal(map[string]any{"error": map[string]any{
			"message": fmt.Sprintf("generation finished with %s", reason),
		}})
		return errnorm.FromStreamPayload(string(payload), provider)
	}
	return nil
}

func (p *CohereProvider) buildRequest(req *llm.SendRequest, model string, stream bool) chatRequest {
	q := p.Quirks(model)
	turns := providers.ApplySystem(providers.BuildTurns(req), req.SystemPrompt, q.System)
	body := chatRequest{
		Model:       model,
		Messages:    providers.OpenAICompatMessages(turns),
		MaxTokens:   req.MaxTokens,
		Temperature: q.Temperature(req.Temperature),
		Stream:      stream,
	}
	p.Logger.Debug("request built",
		zap.String("model", model),
		zap.Int("messages", len(body.Messages)),
		zap.Bool("stream", stream),
	)
	return body
}

// SendMessage 发起一次非流式调用。
func (p *CohereProvider) SendMessage(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error) {
	model := p.ResolveModel(req)
	if err := p.Validate(ctx, req, model); err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := p.PostJSON(ctx, "", p.buildRequest(req, model, false), &resp); err != nil {
		return nil, err
	}
	if err := finishError(resp.FinishReason, p.Name()); err != nil {
		return nil, err
	}
	if len(resp.Message.Content) == 0 {
		return nil, types.NewAPIError(types.ErrAPIInvalidResponse,
			fmt.Sprintf("%s returned no content", p.Name()), http.StatusOK, p.Name(), nil)
	}

	var text string
	for _, c := range resp.Message.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	result := &llm.SendResult{Response: text, ModelUsed: model, Usage: resp.Usage.toUsage()}

	refs := citations.NewBuilder()
	addSources(refs, resp.Message.Citations...)
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
func (p *CohereProvider) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	model := p.ResolveModel(req)
	if err := p.Validate(ctx, req, model); err != nil {
		return nil, err
	}
	return p.StartStream(ctx, "", p.buildRequest(req, model, true), req.OnEvent,
		func(ctx context.Context, sink *streaming.Sink, body io.Reader) error {
			return StreamSSE(sink, body, p.Name())
		})
}
