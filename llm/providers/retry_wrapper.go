package providers

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/retry"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// RetryableAdapter 为 llm.Adapter 增加指数退避重试。
type RetryableAdapter struct {
	inner   llm.Adapter
	retryer retry.Retryer
	logger  *zap.Logger
}

// NewRetryableAdapter 包装 inner。onRetry 可为 nil。
func NewRetryableAdapter(inner llm.Adapter, cfg retry.Config, onRetry retry.OnRetryFunc, logger *zap.Logger) *RetryableAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "retry_adapter"), zap.String("provider", inner.Name()))
	return &RetryableAdapter{
		inner:   inner,
		retryer: retry.NewBackoffRetryer(cfg, onRetry, logger),
		logger:  logger,
	}
}

// Compile-time interface check.
var _ llm.Adapter = (*RetryableAdapter)(nil)

func (a *RetryableAdapter) Name() string                     { return a.inner.Name() }
func (a *RetryableAdapter) Capabilities() types.Capabilities { return a.inner.Capabilities() }

// Unwrap 返回被包装的适配器。
func (a *RetryableAdapter) Unwrap() llm.Adapter { return a.inner }

// SendMessage 在可重试错误上重试整个往返。
func (a *RetryableAdapter) SendMessage(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error) {
	return retry.DoWithResultTyped(a.retryer, ctx, func(ctx context.Context) (*llm.SendResult, error) {
		return a.inner.SendMessage(ctx, req)
	})
}

// StreamMessage 只重试连接阶段；流一旦建立，后续失败不会重放，
// 因为部分输出已经交付给调用方。
func (a *RetryableAdapter) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	return retry.DoWithResultTyped(a.retryer, ctx, func(ctx context.Context) (*streaming.Stream, error) {
		return a.inner.StreamMessage(ctx, req)
	})
}
