package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/internal/metrics"
	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

const (
	statusOK        = "ok"
	statusError     = "error"
	statusCancelled = "cancelled"
)

// Option 配置 InstrumentedAdapter。
type Option func(*InstrumentedAdapter)

// WithCollector 额外把指标写入 Prometheus 收集器。
func WithCollector(c *metrics.Collector) Option {
	return func(a *InstrumentedAdapter) { a.collector = c }
}

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(a *InstrumentedAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// InstrumentedAdapter 为 send/stream 调用记录 span、OTel 指标与可选的
// Prometheus 指标，不改变被包装适配器的行为。
type InstrumentedAdapter struct {
	inner     llm.Adapter
	metrics   *Metrics
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewInstrumentedAdapter 包装 inner。
func NewInstrumentedAdapter(inner llm.Adapter, m *Metrics, opts ...Option) *InstrumentedAdapter {
	a := &InstrumentedAdapter{
		inner:   inner,
		metrics: m,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "observability"), zap.String("provider", inner.Name()))
	return a
}

// Wrapper 返回可交给 factory.NewRegistryFromConfig 的包装函数。
func Wrapper(m *Metrics, opts ...Option) func(llm.Adapter) llm.Adapter {
	return func(inner llm.Adapter) llm.Adapter {
		return NewInstrumentedAdapter(inner, m, opts...)
	}
}

func (a *InstrumentedAdapter) Name() string                     { return a.inner.Name() }
func (a *InstrumentedAdapter) Capabilities() types.Capabilities { return a.inner.Capabilities() }

// Unwrap 返回被包装的适配器。
func (a *InstrumentedAdapter) Unwrap() llm.Adapter { return a.inner }

func (a *InstrumentedAdapter) attrs(ctx context.Context, op string, req *llm.SendRequest) RequestAttrs {
	attrs := RequestAttrs{Provider: a.inner.Name(), Operation: op}
	if req != nil {
		attrs.Model = req.Model
	}
	if id, ok := types.RequestID(ctx); ok {
		attrs.RequestID = id
	}
	return attrs
}

// SendMessage 记录一次完整往返。
func (a *InstrumentedAdapter) SendMessage(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error) {
	attrs := a.attrs(ctx, "send", req)
	start := time.Now()
	ctx, span := a.metrics.StartRequest(ctx, attrs)

	res, err := a.inner.SendMessage(ctx, req)

	resp := ResponseAttrs{Status: statusOK, Duration: time.Since(start)}
	switch {
	case err != nil && types.GetErrorCode(err) == types.ErrAppCancelled:
		resp.Status = statusCancelled
	case err != nil:
		resp.Status = statusError
		resp.Err = err
	default:
		resp.Usage = res.Usage
		if attrs.Model == "" {
			attrs.Model = res.ModelUsed
		}
	}
	a.record(ctx, span, attrs, resp)
	return res, err
}

// StreamMessage 打开内部流并通过新的 Stream 转发事件，在终止或取消时结束 span。
// req.OnEvent 挂在外层流上，保证回调与消费者看到的事件同步。
func (a *InstrumentedAdapter) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	attrs := a.attrs(ctx, "stream", req)
	start := time.Now()
	spanCtx, span := a.metrics.StartRequest(ctx, attrs)
	if a.collector != nil {
		a.collector.StreamOpened(attrs.Provider)
	}

	var observer func(streaming.Event)
	innerReq := req
	if req != nil && req.OnEvent != nil {
		observer = req.OnEvent
		cp := *req
		cp.OnEvent = nil
		innerReq = &cp
	}

	inner, err := a.inner.StreamMessage(spanCtx, innerReq)
	if err != nil {
		a.finishStream(spanCtx, span, attrs, start, statusError, err, nil)
		return nil, err
	}

	relay := func(ctx context.Context, sink *streaming.Sink) error {
		defer inner.Close()
		status := statusCancelled
		var failure error
		defer func() {
			a.finishStream(spanCtx, span, attrs, start, status, failure, inner.Usage())
		}()

		sink.Open()
		for {
			ev, ok := inner.Next(ctx)
			if !ok {
				return nil
			}
			if a.collector != nil {
				a.collector.RecordStreamEvent(attrs.Provider, string(ev.Type))
			}
			switch ev.Type {
			case streaming.EventTextDelta:
				sink.Text(ev.Text)
			case streaming.EventCitations:
				sink.Citations(ev.Citations)
			case streaming.EventDone:
				status = statusOK
				sink.Usage(inner.Usage())
				sink.Done()
				return nil
			case streaming.EventError:
				status = statusError
				failure = ev.Err
				sink.Usage(inner.Usage())
				sink.Fail(ev.Err)
				return nil
			}
		}
	}

	return streaming.Start(ctx, attrs.Provider, relay,
		streaming.WithLogger(a.logger),
		streaming.WithObserver(observer),
	), nil
}

func (a *InstrumentedAdapter) finishStream(ctx context.Context, span trace.Span, attrs RequestAttrs, start time.Time, status string, err error, usage *types.Usage) {
	if a.collector != nil {
		a.collector.StreamClosed(attrs.Provider)
	}
	a.record(ctx, span, attrs, ResponseAttrs{
		Status:   status,
		Err:      err,
		Usage:    usage,
		Duration: time.Since(start),
	})
}

func (a *InstrumentedAdapter) record(ctx context.Context, span trace.Span, attrs RequestAttrs, resp ResponseAttrs) {
	a.metrics.EndRequest(ctx, span, attrs, resp)

	if a.collector != nil {
		a.collector.RecordRequest(attrs.Provider, attrs.Operation, resp.Status, resp.Duration)
		if resp.Err != nil {
			a.collector.RecordError(attrs.Provider, types.GetErrorCode(resp.Err))
		}
		a.collector.RecordUsage(attrs.Provider, attrs.Model, resp.Usage)
	}

	fields := []zap.Field{
		zap.String("operation", attrs.Operation),
		zap.String("status", resp.Status),
		zap.Duration("duration", resp.Duration),
	}
	if attrs.RequestID != "" {
		fields = append(fields, zap.String("request_id", attrs.RequestID))
	}
	if resp.Err != nil {
		fields = append(fields, zap.String("code", string(types.GetErrorCode(resp.Err))))
		a.logger.Warn("adapter call failed", fields...)
		return
	}
	a.logger.Debug("adapter call finished", fields...)
}
