package providers

import (
	"net/http"
	"time"

	"github.com/BaSui01/chatbridge/types"
)

// BaseProviderConfig 所有供应商共享的配置字段，由 config 包从 YAML/环境变量加载。
type BaseProviderConfig struct {
	APIKey            string        `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL           string        `json:"base_url,omitempty" yaml:"base_url,omitempty" env:"BASE_URL"`
	Model             string        `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	Timeout           time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	RequestsPerSecond float64       `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" env:"REQUESTS_PER_SECOND"`
}

// OpenAIConfig OpenAI 专有配置。
type OpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Organization       string `json:"organization,omitempty" yaml:"organization,omitempty" env:"ORGANIZATION"`
	UseResponsesAPI    bool   `json:"use_responses_api,omitempty" yaml:"use_responses_api,omitempty" env:"USE_RESPONSES_API"`
}

// ProviderConfig 是适配器私有的配置，构造后只读。
type ProviderConfig struct {
	Name         string
	BaseURL      string
	DefaultModel string
	APIKey       string
	Timeout      time.Duration

	// EndpointPath 相对 BaseURL 的对话端点，如 "/chat/completions"。
	EndpointPath string

	// RequestsPerSecond > 0 时启用客户端限流。
	RequestsPerSecond float64

	// BuildHeaders 写入鉴权与供应商特有的请求头；为 nil 时使用 Bearer 鉴权。
	BuildHeaders func(req *http.Request, apiKey string)

	Capabilities types.Capabilities
	Quirks       QuirkTable

	// HTTPClient / StreamClient 为空时使用 tlsutil 构造的加固客户端。
	HTTPClient   *http.Client
	StreamClient *http.Client
}

// Merge 用 override 中的非零字段覆盖 cfg 的连接参数。
func (cfg ProviderConfig) Merge(override BaseProviderConfig) ProviderConfig {
	if override.APIKey != "" {
		cfg.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		cfg.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		cfg.DefaultModel = override.Model
	}
	if override.Timeout > 0 {
		cfg.Timeout = override.Timeout
	}
	if override.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = override.RequestsPerSecond
	}
	return cfg
}

// BearerHeaders 是大多数供应商使用的鉴权头。
func BearerHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
}
