package openai

import (
	"context"
	"io"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/providers/openaicompat"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"

	responsesPath = "/responses"
)

// Quirks 是 OpenAI 推理模型的参数覆盖。规则按顺序合并，o1-mini/o1-preview 的丢弃规则在后。
var Quirks = providers.QuirkTable{
	Rules: []providers.QuirkRule{
		{
			Pattern: regexp.MustCompile(`^(o1|o3|o4|gpt-5)`),
			Quirks: providers.ModelQuirks{
				FixedTemperature: providers.Float(1),
				MaxTokensField:   "max_completion_tokens",
				System:           providers.SystemDeveloper,
			},
		},
		{
			Pattern: regexp.MustCompile(`^o1-(mini|preview)`),
			Quirks:  providers.ModelQuirks{System: providers.SystemDropped},
		},
	},
}

// previousResponseIDKey 是 Responses API 中 previous_response_id 的 context key。
type previousResponseIDKey struct{}

// WithPreviousResponseID 在 ctx 中写入 previous_response_id。
func WithPreviousResponseID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, previousResponseIDKey{}, id)
}

// PreviousResponseIDFromContext 从 ctx 读取 previous_response_id。
func PreviousResponseIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(previousResponseIDKey{}).(string)
	return v, ok && v != ""
}

// OpenAIProvider 实现 OpenAI 适配器.
// 传统 API 通过嵌入的 openaicompat.Provider 处理；Responses API 通过覆写 SendMessage / StreamMessage 实现.
type OpenAIProvider struct {
	*openaicompat.Provider
	openaiCfg providers.OpenAIConfig
}

// NewOpenAIProvider 创建新的 OpenAI 适配器实例.
func NewOpenAIProvider(cfg providers.OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	caps := types.Capabilities{
		Streaming:         true,
		Attachments:       true,
		SupportsImages:    true,
		SupportsDocuments: true,
		FunctionCalling:   true,
		SystemPrompt:      true,
		MaxTokens:         16384,
		ContextWindow:     128000,
	}
	organization := cfg.Organization
	return &OpenAIProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:      "openai",
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			DefaultModel:      cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Capabilities:      &caps,
			Quirks:            Quirks,
			// Organization 支持
			BuildHeaders: func(req *http.Request, apiKey string) {
				providers.BearerHeaders(req, apiKey)
				if organization != "" {
					req.Header.Set("OpenAI-Organization", organization)
				}
			},
		}, logger),
		openaiCfg: cfg,
	}
}

// UsesResponsesAPI 报告该实例是否走 /v1/responses。
func (p *OpenAIProvider) UsesResponsesAPI() bool { return p.openaiCfg.UseResponsesAPI }

// SendMessage 覆写基类方法，支持 Responses API 路由.
func (p *OpenAIProvider) SendMessage(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error) {
	if !p.openaiCfg.UseResponsesAPI {
		return p.Provider.SendMessage(ctx, req)
	}
	model := p.ResolveModel(req)
	if err := p.Validate(ctx, req, model); err != nil {
		return nil, err
	}

	var resp responsesResponse
	if err := p.PostJSON(ctx, responsesPath, p.buildResponsesRequest(ctx, req, model, false), &resp); err != nil {
		return nil, err
	}
	return p.toResult(&resp, model)
}

// StreamMessage 覆写基类方法，UseResponsesAPI 时解析 Responses 事件流.
func (p *OpenAIProvider) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	if !p.openaiCfg.UseResponsesAPI {
		return p.Provider.StreamMessage(ctx, req)
	}
	model := p.ResolveModel(req)
	if err := p.Validate(ctx, req, model); err != nil {
		return nil, err
	}
	return p.StartStream(ctx, responsesPath, p.buildResponsesRequest(ctx, req, model, true), req.OnEvent,
		func(ctx context.Context, sink *streaming.Sink, body io.Reader) error {
			return StreamResponses(sink, body, p.Name())
		})
}

// Compile-time interface check.
var _ llm.Adapter = (*OpenAIProvider)(nil)
