package grok

import (
	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/providers/openaicompat"
	"github.com/BaSui01/chatbridge/types"
)

const (
	DefaultBaseURL = "https://api.x.ai/v1"
	DefaultModel   = "grok-4"
)

// GrokProvider 实现 xAI Grok 适配器.
type GrokProvider struct {
	*openaicompat.Provider
}

// NewGrokProvider 创建新的 Grok 适配器实例.
func NewGrokProvider(cfg providers.BaseProviderConfig, logger *zap.Logger) *GrokProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	caps := types.Capabilities{
		Streaming:      true,
		Attachments:    true,
		SupportsImages: true,
		SystemPrompt:   true,
		MaxTokens:      16384,
		ContextWindow:  256000,
	}
	return &GrokProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:      "grok",
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			DefaultModel:      cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Capabilities:      &caps,
		}, logger),
	}
}
