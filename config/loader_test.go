// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatbridge/types"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "chatbridge.yaml")

	yamlContent := `
default_provider: anthropic
system_prompt: "be brief"

providers:
  openai:
    api_key: "sk-openai"
    organization: "org-1"
    use_responses_api: true
  anthropic:
    api_key: "sk-ant"
    model: "claude-opus-4"
    timeout: 90s

retry:
  max_attempts: 5
  base_delay: 500ms
  max_delay: 8s
  backoff_multiplier: 1.5
  jitter: false
  retryable_codes: ["API_RATE_LIMITED", "NETWORK_TIMEOUT"]

log:
  level: "debug"
  format: "console"

metrics:
  enabled: true
  addr: ":9200"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.DefaultProvider)
	assert.Equal(t, "be brief", cfg.SystemPrompt)

	assert.Equal(t, "sk-openai", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "org-1", cfg.Providers.OpenAI.Organization)
	assert.True(t, cfg.Providers.OpenAI.UseResponsesAPI)
	assert.Equal(t, "sk-ant", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, "claude-opus-4", cfg.Providers.Anthropic.Model)
	assert.Equal(t, 90*time.Second, cfg.Providers.Anthropic.Timeout)
	// 未出现在 YAML 中的厂商保留默认值
	assert.Equal(t, 60*time.Second, cfg.Providers.Cohere.Timeout)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 8*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 1.5, cfg.Retry.BackoffMultiplier)
	assert.False(t, cfg.Retry.Jitter)
	assert.Equal(t, []string{"API_RATE_LIMITED", "NETWORK_TIMEOUT"}, cfg.Retry.RetryableCodes)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("CHATBRIDGE_DEFAULT_PROVIDER", "deepseek")
	t.Setenv("CHATBRIDGE_PROVIDERS_DEEPSEEK_API_KEY", "sk-ds")
	t.Setenv("CHATBRIDGE_PROVIDERS_DEEPSEEK_TIMEOUT", "15s")
	t.Setenv("CHATBRIDGE_PROVIDERS_OPENAI_API_KEY", "sk-env")
	t.Setenv("CHATBRIDGE_PROVIDERS_OPENAI_ORGANIZATION", "org-env")
	t.Setenv("CHATBRIDGE_PROVIDERS_OPENAI_USE_RESPONSES_API", "true")
	t.Setenv("CHATBRIDGE_RETRY_MAX_ATTEMPTS", "4")
	t.Setenv("CHATBRIDGE_RETRY_RETRYABLE_CODES", "API_RATE_LIMITED, API_SERVER_ERROR")
	t.Setenv("CHATBRIDGE_LOG_OUTPUT_PATHS", "stdout, /tmp/chatbridge.log")
	t.Setenv("CHATBRIDGE_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("CHATBRIDGE_CIRCUIT_BREAKER_RESET_TIMEOUT", "2m")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.DefaultProvider)
	assert.Equal(t, "sk-ds", cfg.Providers.DeepSeek.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Providers.DeepSeek.Timeout)
	// 嵌入的 BaseProviderConfig 使用外层前缀
	assert.Equal(t, "sk-env", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "org-env", cfg.Providers.OpenAI.Organization)
	assert.True(t, cfg.Providers.OpenAI.UseResponsesAPI)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, []string{"API_RATE_LIMITED", "API_SERVER_ERROR"}, cfg.Retry.RetryableCodes)
	assert.Equal(t, []string{"stdout", "/tmp/chatbridge.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.Equal(t, 2*time.Minute, cfg.CircuitBreaker.ResetTimeout)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "chatbridge.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: warn\n"), 0o644))
	t.Setenv("CHATBRIDGE_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("BRIDGE_LOG_LEVEL", "debug")

	cfg, err := NewLoader().WithEnvPrefix("BRIDGE").Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("CHATBRIDGE_RETRY_BASE_DELAY", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHATBRIDGE_RETRY_BASE_DELAY")
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("retry: [unclosed"), 0o644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("CHATBRIDGE_LOG_LEVEL", "verbose")

	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	t.Setenv("CHATBRIDGE_RETRY_MAX_ATTEMPTS", "0")
	assert.Panics(t, func() { MustLoad("") })
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{
			name:    "zero attempts",
			modify:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "retry.max_attempts",
		},
		{
			name:    "base delay above max",
			modify:  func(c *Config) { c.Retry.BaseDelay = time.Minute },
			wantErr: "retry.base_delay",
		},
		{
			name:    "multiplier below one",
			modify:  func(c *Config) { c.Retry.BackoffMultiplier = 0.5 },
			wantErr: "backoff_multiplier",
		},
		{
			name:    "unknown retryable code",
			modify:  func(c *Config) { c.Retry.RetryableCodes = []string{"SOMETHING_ODD"} },
			wantErr: "SOMETHING_ODD",
		},
		{
			name:    "breaker threshold zero",
			modify:  func(c *Config) { c.CircuitBreaker.Threshold = 0 },
			wantErr: "circuit_breaker.threshold",
		},
		{
			name:   "disabled breaker skips checks",
			modify: func(c *Config) { c.CircuitBreaker = CircuitBreakerConfig{} },
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
		{
			name:    "sample rate out of range",
			modify:  func(c *Config) { c.Telemetry.SampleRate = 2 },
			wantErr: "sample_rate",
		},
		{
			name:    "metrics without addr",
			modify:  func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" },
			wantErr: "metrics.addr",
		},
		{
			name:    "unknown default provider",
			modify:  func(c *Config) { c.DefaultProvider = "acme" },
			wantErr: "acme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateCollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.MaxAttempts = 0
	cfg.Log.Level = "loud"
	cfg.DefaultProvider = "acme"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.max_attempts")
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "acme")
}

func TestConfig_RetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.RetryableCodes = []string{"API_RATE_LIMITED"}

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, []types.ErrorCode{types.ErrAPIRateLimited}, p.RetryableCodes)
}

func TestConfig_BreakerPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CircuitBreaker.Threshold = 2
	cfg.CircuitBreaker.ResetTimeout = time.Minute

	p := cfg.BreakerPolicy()
	assert.Equal(t, 2, p.Threshold)
	assert.Equal(t, time.Minute, p.ResetTimeout)
	assert.Equal(t, 1, p.HalfOpenMaxCalls)
}

func TestConfig_RegistrySkipsUnconfiguredProviders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultProvider = "anthropic"
	cfg.Providers.Anthropic.APIKey = "sk-ant"
	cfg.Providers.OpenAI.APIKey = "sk-oai"
	cfg.Providers.OpenAI.UseResponsesAPI = true

	reg := cfg.Registry()
	assert.Equal(t, "anthropic", reg.Default)
	assert.Len(t, reg.Providers, 2)
	assert.Equal(t, "sk-ant", reg.Providers["anthropic"].APIKey)
	assert.Equal(t, true, reg.Providers["openai"].Extra["use_responses_api"])
	assert.NotContains(t, reg.Providers, "cohere")
}
