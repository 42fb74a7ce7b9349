package retry

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm/errnorm"
	"github.com/BaSui01/chatbridge/types"
)

// OnRetryFunc 在每次重试等待前调用，attempt 为刚失败的尝试序号（从 1 开始）。
type OnRetryFunc func(attempt int, err error, delay time.Duration)

// ShouldRetry 判断错误是否值得重试。
// 类型化错误以 Retryable 为准；提供 allow 列表时只看错误码是否在列表中。
// 不可恢复与已取消的错误永不重试。未类型化的错误先检查不可重试关键词，
// 再按与 errnorm 相同的文本启发式推断。
func ShouldRetry(err error, allow []types.ErrorCode) bool {
	if err == nil {
		return false
	}

	if base, ok := types.AsAppError(err); ok {
		if !base.Recoverable || base.Code == types.ErrAppCancelled {
			return false
		}
		if len(allow) > 0 {
			return slices.Contains(allow, base.Code)
		}
		return base.Retryable
	}

	if errnorm.IsNonRetryableText(err.Error()) {
		return false
	}
	c := errnorm.ClassifyText(err.Error())
	if len(allow) > 0 {
		return slices.Contains(allow, c.Code)
	}
	return c.Retryable
}

// Retryer 重试器接口
type Retryer interface {
	// Do 执行函数，失败时根据策略重试
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// DoWithResult 执行函数并返回结果，失败时根据策略重试
	DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
}

// backoffRetryer 基于指数退避的重试器实现
type backoffRetryer struct {
	cfg     Config
	onRetry OnRetryFunc
	logger  *zap.Logger
}

// NewBackoffRetryer 创建指数退避重试器
func NewBackoffRetryer(cfg Config, onRetry OnRetryFunc, logger *zap.Logger) Retryer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backoffRetryer{
		cfg:     cfg.normalized(),
		onRetry: onRetry,
		logger:  logger.With(zap.String("component", "retry")),
	}
}

// Do 实现 Retryer.Do
func (r *backoffRetryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := r.DoWithResult(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// DoWithResult 实现 Retryer.DoWithResult。
// 最后一次失败原样返回，不做额外包装。
func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err, lastErr)
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if attempt == r.cfg.MaxAttempts {
			break
		}
		if !ShouldRetry(err, r.cfg.RetryableCodes) {
			r.logger.Debug("error not retryable",
				zap.String("code", string(types.GetErrorCode(err))),
				zap.Error(err),
			)
			return nil, err
		}

		delay := CalculateDelay(attempt, r.cfg)
		r.logger.Warn("retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if r.onRetry != nil {
			r.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, cancelled(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	if r.cfg.MaxAttempts > 1 {
		r.logger.Warn("retries exhausted",
			zap.Int("attempts", r.cfg.MaxAttempts),
			zap.Error(lastErr),
		)
	}
	return nil, lastErr
}

// cancelled 构造退避期间被取消时返回的错误。
func cancelled(ctxErr, lastErr error) error {
	e := types.NewAppError(types.ErrAppCancelled, "retry cancelled", ctxErr)
	if lastErr != nil {
		e.WithContext("last_error", lastErr.Error())
	}
	return e
}

// Do 以 cfg 执行 op，失败时按退避策略重试，返回类型安全的结果。
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error), onRetry OnRetryFunc) (T, error) {
	return DoWithResultTyped(NewBackoffRetryer(cfg, onRetry, nil), ctx, op)
}

// DoWithResultTyped is a type-safe generic wrapper around Retryer.DoWithResult.
//
//	val, err := retry.DoWithResultTyped(r, ctx, func(ctx context.Context) (int, error) {
//	    return 42, nil
//	})
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := r.DoWithResult(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := result.(T)
	return v, nil
}
