package deepseek

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/providers/openaicompat"
	"github.com/BaSui01/chatbridge/types"
)

const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"
)

// Quirks 是 DeepSeek 的模型怪癖表。
var Quirks = providers.QuirkTable{
	Rules: []providers.QuirkRule{{
		Pattern: regexp.MustCompile(`^deepseek-reasoner`),
		Quirks:  providers.ModelQuirks{StrictAlternation: true, OmitTemperature: true},
	}},
}

// DeepSeekProvider 实现 DeepSeek 适配器.
type DeepSeekProvider struct {
	*openaicompat.Provider
}

// NewDeepSeekProvider 创建新的 DeepSeek 适配器实例.
func NewDeepSeekProvider(cfg providers.BaseProviderConfig, logger *zap.Logger) *DeepSeekProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	caps := types.Capabilities{
		Streaming:     true,
		SystemPrompt:  true,
		MaxTokens:     8192,
		ContextWindow: 64000,
	}
	return &DeepSeekProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:      "deepseek",
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			DefaultModel:      cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			EndpointPath:      "/chat/completions",
			Capabilities:      &caps,
			Quirks:            Quirks,
		}, logger),
	}
}
