package circuitbreaker

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// Adapter 在 llm.Adapter 外加一层熔断。
type Adapter struct {
	inner   llm.Adapter
	breaker *Breaker
}

// NewAdapter 为 inner 创建独立的熔断器。
func NewAdapter(inner llm.Adapter, cfg Config, logger *zap.Logger) *Adapter {
	return &Adapter{
		inner:   inner,
		breaker: New(inner.Name(), cfg, logger),
	}
}

// Wrapper 返回可交给 factory.NewRegistryFromConfig 的装饰函数，每个供应商一个熔断器。
func Wrapper(cfg Config, logger *zap.Logger) func(llm.Adapter) llm.Adapter {
	return func(inner llm.Adapter) llm.Adapter {
		return NewAdapter(inner, cfg, logger)
	}
}

// Compile-time interface check.
var _ llm.Adapter = (*Adapter)(nil)

func (a *Adapter) Name() string                     { return a.inner.Name() }
func (a *Adapter) Capabilities() types.Capabilities { return a.inner.Capabilities() }

// Unwrap 返回被包装的适配器。
func (a *Adapter) Unwrap() llm.Adapter { return a.inner }

// Breaker 返回该适配器使用的熔断器。
func (a *Adapter) Breaker() *Breaker { return a.breaker }

// SendMessage 在熔断打开时直接返回 API_SERVICE_UNAVAILABLE。
func (a *Adapter) SendMessage(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error) {
	return Do(a.breaker, ctx, func(ctx context.Context) (*llm.SendResult, error) {
		return a.inner.SendMessage(ctx, req)
	})
}

// StreamMessage 只按连接阶段的结果计数；流内的 Error 事件不影响熔断状态。
func (a *Adapter) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	return Do(a.breaker, ctx, func(ctx context.Context) (*streaming.Stream, error) {
		return a.inner.StreamMessage(ctx, req)
	})
}
