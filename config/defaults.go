// =============================================================================
// 📦 ChatBridge 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/chatbridge/llm/circuitbreaker"
	"github.com/BaSui01/chatbridge/llm/retry"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		DefaultProvider: "openai",
		Providers:       DefaultProvidersConfig(),
		Retry:           DefaultRetryConfig(),
		CircuitBreaker:  DefaultCircuitBreakerConfig(),
		Log:             DefaultLogConfig(),
		Telemetry:       DefaultTelemetryConfig(),
		Metrics:         DefaultMetricsConfig(),
	}
}

// DefaultProvidersConfig 返回默认厂商配置，仅设置超时
func DefaultProvidersConfig() ProvidersConfig {
	const timeout = 60 * time.Second
	p := ProvidersConfig{}
	p.OpenAI.Timeout = timeout
	p.Anthropic.Timeout = timeout
	p.Cohere.Timeout = timeout
	p.Perplexity.Timeout = timeout
	p.DeepSeek.Timeout = timeout
	p.Mistral.Timeout = timeout
	p.Grok.Timeout = timeout
	return p
}

// DefaultRetryConfig 返回默认重试配置，与 retry.DefaultConfig 一致
func DefaultRetryConfig() RetryConfig {
	r := retry.DefaultConfig()
	return RetryConfig{
		MaxAttempts:       r.MaxAttempts,
		BaseDelay:         r.BaseDelay,
		MaxDelay:          r.MaxDelay,
		BackoffMultiplier: r.BackoffMultiplier,
		Jitter:            r.Jitter,
	}
}

// DefaultCircuitBreakerConfig 返回默认熔断配置，与 circuitbreaker.DefaultConfig 一致
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	b := circuitbreaker.DefaultConfig()
	return CircuitBreakerConfig{
		Enabled:          true,
		Threshold:        b.Threshold,
		ResetTimeout:     b.ResetTimeout,
		HalfOpenMaxCalls: b.HalfOpenMaxCalls,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "chatbridge",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "chatbridge",
	}
}
