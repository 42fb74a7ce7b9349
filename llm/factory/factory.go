package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/providers/anthropic"
	"github.com/BaSui01/chatbridge/llm/providers/cohere"
	"github.com/BaSui01/chatbridge/llm/providers/deepseek"
	"github.com/BaSui01/chatbridge/llm/providers/grok"
	"github.com/BaSui01/chatbridge/llm/providers/mistral"
	"github.com/BaSui01/chatbridge/llm/providers/openai"
	"github.com/BaSui01/chatbridge/llm/providers/openaicompat"
	"github.com/BaSui01/chatbridge/llm/providers/perplexity"
)

// ProviderConfig is the generic configuration accepted by the factory function.
// Vendor-specific fields travel in Extra.
type ProviderConfig struct {
	providers.BaseProviderConfig `yaml:",inline"`
	Extra                        map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Wrapper decorates a freshly built adapter (retry, instrumentation).
type Wrapper func(llm.Adapter) llm.Adapter

// NewAdapterFromConfig creates an adapter based on the vendor name and a
// generic ProviderConfig.
//
// Supported names: openai, anthropic (alias claude), cohere, perplexity,
// deepseek, mistral, grok. Any other name with a base_url is treated as a
// generic OpenAI-compatible vendor.
func NewAdapterFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BaseProviderConfig

	switch name {
	case "openai":
		oc := providers.OpenAIConfig{BaseProviderConfig: base}
		if v, ok := cfg.Extra["organization"].(string); ok {
			oc.Organization = v
		}
		if v, ok := cfg.Extra["use_responses_api"].(bool); ok {
			oc.UseResponsesAPI = v
		}
		return openai.NewOpenAIProvider(oc, logger), nil

	case "anthropic", "claude":
		return anthropic.NewClaudeProvider(base, logger), nil

	case "cohere":
		return cohere.NewCohereProvider(base, logger), nil

	case "perplexity":
		return perplexity.NewPerplexityProvider(base, logger), nil

	case "deepseek":
		return deepseek.NewDeepSeekProvider(base, logger), nil

	case "mistral":
		return mistral.NewMistralProvider(base, logger), nil

	case "grok", "xai":
		return grok.NewGrokProvider(base, logger), nil

	default:
		// 通用 OpenAI 兼容供应商：任意名称 + base_url 即可接入
		// 支持 Groq、Fireworks、OpenRouter、Ollama、vLLM 等
		if base.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q: built-in provider not found, and base_url is required for generic OpenAI-compatible provider", name)
		}
		oc := openaicompat.Config{
			ProviderName:      name,
			APIKey:            base.APIKey,
			BaseURL:           base.BaseURL,
			DefaultModel:      base.Model,
			Timeout:           base.Timeout,
			RequestsPerSecond: base.RequestsPerSecond,
		}
		if v, ok := cfg.Extra["endpoint_path"].(string); ok {
			oc.EndpointPath = v
		}
		logger.Info("creating generic OpenAI-compatible adapter",
			zap.String("provider", name),
			zap.String("base_url", base.BaseURL))
		return openaicompat.New(oc, logger), nil
	}
}

// SupportedProviders returns the list of built-in vendor names.
// Any name not in this list is treated as a generic OpenAI-compatible
// vendor, requiring base_url in the configuration.
func SupportedProviders() []string {
	return []string{
		"openai", "anthropic", "claude", "cohere", "perplexity",
		"deepseek", "mistral", "grok", "xai",
	}
}

// RegistryConfig describes multiple vendors and which one is the default.
type RegistryConfig struct {
	// Default is the name of the default vendor (must match a key in Providers).
	Default string `json:"default" yaml:"default"`
	// Providers maps vendor names to their configurations.
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
}

// NewRegistryFromConfig creates an AdapterRegistry populated with every
// vendor in cfg, each passed through wrap in order. Vendors that fail to
// initialize are logged and skipped.
func NewRegistryFromConfig(cfg RegistryConfig, logger *zap.Logger, wrap ...Wrapper) (*llm.AdapterRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := llm.NewAdapterRegistry()

	for name, pcfg := range cfg.Providers {
		a, err := NewAdapterFromConfig(name, pcfg, logger)
		if err != nil {
			logger.Warn("skipping provider: initialization failed",
				zap.String("provider", name),
				zap.Error(err))
			continue
		}
		for _, w := range wrap {
			a = w(a)
		}
		reg.Register(name, a)
		logger.Info("provider registered", zap.String("provider", name))
	}

	if cfg.Default != "" {
		if err := reg.SetDefault(cfg.Default); err != nil {
			return reg, fmt.Errorf("failed to set default provider %q: %w", cfg.Default, err)
		}
	}

	return reg, nil
}
