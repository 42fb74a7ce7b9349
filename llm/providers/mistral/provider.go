package mistral

import (
	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/providers/openaicompat"
	"github.com/BaSui01/chatbridge/types"
)

const (
	DefaultBaseURL = "https://api.mistral.ai/v1"
	DefaultModel   = "mistral-large-latest"
)

// MistralProvider 实现 Mistral AI 适配器.
type MistralProvider struct {
	*openaicompat.Provider
}

// NewMistralProvider 创建新的 Mistral 适配器实例.
func NewMistralProvider(cfg providers.BaseProviderConfig, logger *zap.Logger) *MistralProvider {
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
		MaxTokens:      8192,
		ContextWindow:  128000,
	}
	return &MistralProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:      "mistral",
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			DefaultModel:      cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Capabilities:      &caps,
		}, logger),
	}
}
