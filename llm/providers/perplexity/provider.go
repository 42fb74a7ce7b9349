package perplexity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/providers/openaicompat"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

const (
	DefaultBaseURL = "https://api.perplexity.ai"
	DefaultModel   = "sonar"
)

// Quirks: 所有模型都要求严格交替。
var Quirks = providers.QuirkTable{
	Default: providers.ModelQuirks{StrictAlternation: true},
}

// PerplexityProvider 实现 Perplexity 适配器。
type PerplexityProvider struct {
	*openaicompat.Provider

	// ChunkSize / ChunkDelay 控制模拟流式的切片与节奏。
	ChunkSize  int
	ChunkDelay time.Duration
}

// NewPerplexityProvider 创建 Perplexity 适配器。
func NewPerplexityProvider(cfg providers.BaseProviderConfig, logger *zap.Logger) *PerplexityProvider {
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
		MaxTokens:      8000,
		ContextWindow:  127000,
	}
	return &PerplexityProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:      "perplexity",
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			DefaultModel:      cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Capabilities:      &caps,
			Quirks:            Quirks,
		}, logger),
		ChunkSize:  streaming.DefaultChunkSize,
		ChunkDelay: streaming.DefaultChunkDelay,
	}
}

// StreamMessage 先阻塞取得完整响应（保留引用），再模拟增量投递。
func (p *PerplexityProvider) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	res, err := p.SendMessage(ctx, req)
	if err != nil {
		return nil, err
	}
	p.Logger.Debug("simulating stream",
		zap.Int("chars", len([]rune(res.Response))),
		zap.Int("citations", len(res.Citations())),
	)
	return streaming.Simulate(ctx, p.Name(), res.Response, streaming.SimulateConfig{
		ChunkSize: p.ChunkSize,
		Delay:     p.ChunkDelay,
		Citations: res.Citations(),
		Usage:     res.Usage,
	}, streaming.WithLogger(p.Logger), streaming.WithObserver(req.OnEvent)), nil
}

// Compile-time interface check.
var _ llm.Adapter = (*PerplexityProvider)(nil)
