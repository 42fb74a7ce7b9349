package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm/retry"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// SendWithRetry 以 cfg 重试 SendMessage。最终失败时返回最后一次的原始错误。
func SendWithRetry(ctx context.Context, a Adapter, req *SendRequest, cfg retry.Config, onRetry retry.OnRetryFunc) (*SendResult, error) {
	return retry.Do(ctx, cfg, func(ctx context.Context) (*SendResult, error) {
		return a.SendMessage(ctx, req)
	}, onRetry)
}

// streamFallbackCodes 是打开流失败后允许降级为非流式请求的错误码。
var streamFallbackCodes = map[types.ErrorCode]bool{
	types.ErrAPIStreamingFailed:      true,
	types.ErrAPIVerificationRequired: true,
}

// StreamWithFallback 优先使用真实流式；适配器不支持流式，或打开流时
// 返回 API_STREAMING_FAILED / API_VERIFICATION_REQUIRED 时，改为 SendMessage
// 并以模拟流式投递结果。其他错误原样返回。
func StreamWithFallback(ctx context.Context, a Adapter, req *SendRequest, logger *zap.Logger) (*streaming.Stream, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("provider", a.Name()))

	if !a.Capabilities().Streaming {
		logger.Debug("adapter does not stream, simulating")
		return SimulateSend(ctx, a, req, logger)
	}

	s, err := a.StreamMessage(ctx, req)
	if err == nil {
		return s, nil
	}
	if !streamFallbackCodes[types.GetErrorCode(err)] {
		return nil, err
	}
	logger.Info("streaming unavailable, falling back to send",
		zap.String("code", string(types.GetErrorCode(err))),
	)
	return SimulateSend(ctx, a, req, logger)
}

// SimulateSend 调用 SendMessage，并把结果以 8 字符分片的模拟流返回。
func SimulateSend(ctx context.Context, a Adapter, req *SendRequest, logger *zap.Logger) (*streaming.Stream, error) {
	res, err := a.SendMessage(ctx, req)
	if err != nil {
		return nil, err
	}
	return streaming.Simulate(ctx, a.Name(), res.Response, streaming.SimulateConfig{
		ChunkSize: streaming.DefaultChunkSize,
		Delay:     streaming.DefaultChunkDelay,
		Citations: res.Citations(),
		Usage:     res.Usage,
	}, streaming.WithLogger(logger), streaming.WithObserver(req.OnEvent)), nil
}
