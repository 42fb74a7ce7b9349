// =============================================================================
// 📦 ChatBridge 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("chatbridge.yaml").
//	    WithEnvPrefix("CHATBRIDGE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/chatbridge/llm/circuitbreaker"
	"github.com/BaSui01/chatbridge/llm/factory"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/retry"
	"github.com/BaSui01/chatbridge/types"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ChatBridge 的完整配置结构
type Config struct {
	// DefaultProvider 默认厂商名称
	DefaultProvider string `yaml:"default_provider" env:"DEFAULT_PROVIDER"`

	// SystemPrompt 未显式指定时使用的系统提示
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`

	// Providers 各厂商配置
	Providers ProvidersConfig `yaml:"providers" env:"PROVIDERS"`

	// Retry 重试策略
	Retry RetryConfig `yaml:"retry" env:"RETRY"`

	// CircuitBreaker 每个厂商的熔断策略
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" env:"CIRCUIT_BREAKER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ProvidersConfig 各厂商的连接配置
type ProvidersConfig struct {
	OpenAI     providers.OpenAIConfig       `yaml:"openai" env:"OPENAI"`
	Anthropic  providers.BaseProviderConfig `yaml:"anthropic" env:"ANTHROPIC"`
	Cohere     providers.BaseProviderConfig `yaml:"cohere" env:"COHERE"`
	Perplexity providers.BaseProviderConfig `yaml:"perplexity" env:"PERPLEXITY"`
	DeepSeek   providers.BaseProviderConfig `yaml:"deepseek" env:"DEEPSEEK"`
	Mistral    providers.BaseProviderConfig `yaml:"mistral" env:"MISTRAL"`
	Grok       providers.BaseProviderConfig `yaml:"grok" env:"GROK"`
}

// RetryConfig 重试策略配置，对应 retry.Config
type RetryConfig struct {
	// 总尝试次数（含首次）
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// 首次重试延迟
	BaseDelay time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	// 单次延迟上限
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	// 指数退避倍数
	BackoffMultiplier float64 `yaml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER"`
	// 是否启用抖动
	Jitter bool `yaml:"jitter" env:"JITTER"`
	// 仅这些错误码可重试，为空时按错误自身的 retryable 标记
	RetryableCodes []string `yaml:"retryable_codes" env:"RETRYABLE_CODES"`
}

// CircuitBreakerConfig 熔断配置，对应 circuitbreaker.Config
type CircuitBreakerConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 连续失败多少次后打开
	Threshold int `yaml:"threshold" env:"THRESHOLD"`
	// 打开后多久放行试探请求
	ResetTimeout time.Duration `yaml:"reset_timeout" env:"RESET_TIMEOUT"`
	// 半开状态的试探请求数
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" env:"HALF_OPEN_MAX_CALLS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否暴露 /metrics
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "CHATBRIDGE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 从 YAML 文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 匿名嵌入的结构体沿用外层前缀
		if fieldType.Anonymous && field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, prefix); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置，一次返回全部问题
func (c *Config) Validate() error {
	var errs []error

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry delays must not be negative"))
	}
	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		errs = append(errs, errors.New("retry.base_delay exceeds retry.max_delay"))
	}
	if c.Retry.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("retry.backoff_multiplier must be at least 1"))
	}
	known := types.AllErrorCodes()
	for _, code := range c.Retry.RetryableCodes {
		if !slices.Contains(known, types.ErrorCode(code)) {
			errs = append(errs, fmt.Errorf("retry.retryable_codes: unknown code %q", code))
		}
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.Threshold < 1 {
			errs = append(errs, errors.New("circuit_breaker.threshold must be at least 1"))
		}
		if c.CircuitBreaker.ResetTimeout <= 0 {
			errs = append(errs, errors.New("circuit_breaker.reset_timeout must be positive"))
		}
		if c.CircuitBreaker.HalfOpenMaxCalls < 1 {
			errs = append(errs, errors.New("circuit_breaker.half_open_max_calls must be at least 1"))
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, errors.New("telemetry.sample_rate must be between 0 and 1"))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}

	if c.DefaultProvider != "" {
		if _, ok := c.providerMap()[c.DefaultProvider]; !ok {
			errs = append(errs, fmt.Errorf("default_provider %q is not a known provider", c.DefaultProvider))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %w", errors.Join(errs...))
	}
	return nil
}

// RetryPolicy 转换为 retry.Config
func (c *Config) RetryPolicy() retry.Config {
	codes := make([]types.ErrorCode, 0, len(c.Retry.RetryableCodes))
	for _, code := range c.Retry.RetryableCodes {
		codes = append(codes, types.ErrorCode(code))
	}
	return retry.Config{
		MaxAttempts:       c.Retry.MaxAttempts,
		BaseDelay:         c.Retry.BaseDelay,
		MaxDelay:          c.Retry.MaxDelay,
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		Jitter:            c.Retry.Jitter,
		RetryableCodes:    codes,
	}
}

// BreakerPolicy 转换为 circuitbreaker.Config
func (c *Config) BreakerPolicy() circuitbreaker.Config {
	return circuitbreaker.Config{
		Threshold:        c.CircuitBreaker.Threshold,
		ResetTimeout:     c.CircuitBreaker.ResetTimeout,
		HalfOpenMaxCalls: c.CircuitBreaker.HalfOpenMaxCalls,
	}
}

// providerMap 按 factory 名称索引全部厂商配置
func (c *Config) providerMap() map[string]factory.ProviderConfig {
	p := c.Providers
	return map[string]factory.ProviderConfig{
		"openai": {
			BaseProviderConfig: p.OpenAI.BaseProviderConfig,
			Extra: map[string]any{
				"organization":      p.OpenAI.Organization,
				"use_responses_api": p.OpenAI.UseResponsesAPI,
			},
		},
		"anthropic":  {BaseProviderConfig: p.Anthropic},
		"cohere":     {BaseProviderConfig: p.Cohere},
		"perplexity": {BaseProviderConfig: p.Perplexity},
		"deepseek":   {BaseProviderConfig: p.DeepSeek},
		"mistral":    {BaseProviderConfig: p.Mistral},
		"grok":       {BaseProviderConfig: p.Grok},
	}
}

// Registry 转换为 factory.RegistryConfig，只包含配置了 API Key 的厂商
func (c *Config) Registry() factory.RegistryConfig {
	out := factory.RegistryConfig{
		Default:   c.DefaultProvider,
		Providers: make(map[string]factory.ProviderConfig),
	}
	for name, pc := range c.providerMap() {
		if pc.APIKey == "" {
			continue
		}
		out.Providers[name] = pc
	}
	return out
}
