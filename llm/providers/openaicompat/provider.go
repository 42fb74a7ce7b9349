// =============================================================================
// ChatBridge OpenAI-Compatible Adapter Base
// =============================================================================
// Shared implementation for all OpenAI-compatible vendors.
// Adapters like DeepSeek, Mistral and Grok embed this and only override
// what differs (name, base URL, default model, capabilities, quirks).
// =============================================================================

package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/citations"
	"github.com/BaSui01/chatbridge/llm/errnorm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// DefaultCapabilities 是未显式声明时使用的能力。
var DefaultCapabilities = types.Capabilities{
	Streaming:     true,
	SystemPrompt:  true,
	MaxTokens:     4096,
	ContextWindow: 128000,
}

// Config holds the configuration for an OpenAI-compatible adapter.
type Config struct {
	// ProviderName is the unique identifier for this adapter (e.g., "deepseek").
	ProviderName string

	// APIKey is the authentication key for the vendor's API.
	APIKey string

	// BaseURL is the base URL including the version segment (e.g., "https://api.mistral.ai/v1").
	BaseURL string

	// DefaultModel is the model to use when the request does not override it.
	DefaultModel string

	// Timeout is the HTTP client timeout. Defaults to 60s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions endpoint path. Defaults to "/chat/completions".
	EndpointPath string

	// RequestsPerSecond enables client-side throttling when positive.
	RequestsPerSecond float64

	// BuildHeaders is an optional function to set custom headers on each request.
	// If nil, the default "Authorization: Bearer <apiKey>" header is used.
	BuildHeaders func(req *http.Request, apiKey string)

	// Capabilities declared by this adapter. Zero value means DefaultCapabilities.
	Capabilities *types.Capabilities

	// Quirks are model-id keyed parameter overrides.
	Quirks providers.QuirkTable

	// RequestHook is an optional function to modify the request body before sending.
	RequestHook func(req *llm.SendRequest, body *providers.OpenAICompatRequest)

	// HTTPClient / StreamClient override the hardened default clients (tests).
	HTTPClient   *http.Client
	StreamClient *http.Client
}

// Provider is the base implementation for all OpenAI-compatible adapters.
type Provider struct {
	*providers.Base
	hook func(req *llm.SendRequest, body *providers.OpenAICompatRequest)
}

// New creates a new OpenAI-compatible adapter with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/chat/completions"
	}
	caps := DefaultCapabilities
	if cfg.Capabilities != nil {
		caps = *cfg.Capabilities
	}
	return &Provider{
		Base: providers.NewBase(providers.ProviderConfig{
			Name:              cfg.ProviderName,
			BaseURL:           cfg.BaseURL,
			DefaultModel:      cfg.DefaultModel,
			APIKey:            cfg.APIKey,
			Timeout:           cfg.Timeout,
			EndpointPath:      cfg.EndpointPath,
			RequestsPerSecond: cfg.RequestsPerSecond,
			BuildHeaders:      cfg.BuildHeaders,
			Capabilities:      caps,
			Quirks:            cfg.Quirks,
			HTTPClient:        cfg.HTTPClient,
			StreamClient:      cfg.StreamClient,
		}, logger),
		hook: cfg.RequestHook,
	}
}

// Compile-time interface check.
var _ llm.Adapter = (*Provider)(nil)

// BuildRequest 构造 chat completions 请求体：历史、系统提示与模型怪癖在此统一处理。
func (p *Provider) BuildRequest(req *llm.SendRequest, model string, stream bool) providers.OpenAICompatRequest {
	q := p.Quirks(model)

	turns := providers.BuildTurns(req)
	if q.StrictAlternation {
		turns = providers.EnsureAlternation(turns)
	}
	if p.Capabilities().SystemPrompt {
		turns = providers.ApplySystem(turns, req.SystemPrompt, q.System)
	}

	body := providers.OpenAICompatRequest{
		Model:       model,
		Messages:    providers.OpenAICompatMessages(turns),
		Temperature: q.Temperature(req.Temperature),
		Stream:      stream,
	}
	q.MaxTokens(&body, req.MaxTokens)
	if stream {
		body.StreamOptions = &providers.OpenAICompatStreamOptions{IncludeUsage: true}
	}
	if p.hook != nil {
		p.hook(req, &body)
	}

	p.Logger.Debug("request built",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
		zap.Bool("stream", stream),
		zap.Bool("strict_alternation", q.StrictAlternation),
	)
	return body
}

// SendMessage performs a non-streaming chat completion.
func (p *Provider) SendMessage(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error) {
	model := p.ResolveModel(req)
	if err := p.Validate(ctx, req, model); err != nil {
		return nil, err
	}

	var resp providers.OpenAICompatResponse
	if err := p.PostJSON(ctx, "", p.BuildRequest(req, model, false), &resp); err != nil {
		return nil, err
	}
	return p.ToResult(&resp, model)
}

// ToResult 把完整响应转换为 SendResult；响应体内的 error 对象按流内错误归一化。
func (p *Provider) ToResult(resp *providers.OpenAICompatResponse, model string) (*llm.SendResult, error) {
	if resp.Error != nil {
		return nil, errnorm.FromStreamPayload(errorPayload(resp.Error), p.Name())
	}
	if len(resp.Choices) == 0 {
		return nil, types.NewAPIError(types.ErrAPIInvalidResponse,
			fmt.Sprintf("%s returned no choices", p.Name()), http.StatusOK, p.Name(), nil)
	}

	text := resp.FirstText()
	result := &llm.SendResult{
		Response:  text,
		ModelUsed: model,
		Usage:     resp.Usage.ToUsage(),
	}
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	if c := responseCitations(resp, text); len(c) > 0 {
		result.Metadata = &llm.ResultMetadata{Citations: c}
	}
	return result, nil
}

// StreamMessage performs a streaming chat completion via SSE.
func (p *Provider) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	model := p.ResolveModel(req)
	if err := p.Validate(ctx, req, model); err != nil {
		return nil, err
	}
	return p.StartStream(ctx, "", p.BuildRequest(req, model, true), req.OnEvent,
		func(ctx context.Context, sink *streaming.Sink, body io.Reader) error {
			return StreamSSE(sink, body, p.Name())
		})
}

// responseCitations 优先使用供应商返回的引用，否则从正文的 markdown 链接提取。
func responseCitations(resp *providers.OpenAICompatResponse, text string) []types.Citation {
	if len(resp.Citations) > 0 || len(resp.SearchResults) > 0 {
		return citations.FromSearchResults(resp.Citations, resp.SearchResults)
	}
	return citations.FromMarkdown(text)
}

// errorPayload 重新编码错误信封，让分类与消息提取看到与流内错误相同的形状。
func errorPayload(e *providers.OpenAICompatErrorBody) string {
	data, err := json.Marshal(map[string]any{"error": e})
	if err != nil {
		return e.Message
	}
	return string(data)
}
