package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/BaSui01/chatbridge/types"
)

const instrumentationName = "github.com/BaSui01/chatbridge/llm"

// Metrics 基于 OpenTelemetry 的调用指标与追踪。
type Metrics struct {
	tracer trace.Tracer
	meter  metric.Meter
	// 计数器
	requestTotal metric.Int64Counter
	tokenTotal   metric.Int64Counter
	errorTotal   metric.Int64Counter
	// 直方图
	requestDuration metric.Float64Histogram
	// 活跃流
	activeStreams metric.Int64UpDownCounter
}

// NewMetrics 创建指标收集器。tracer 或 meter 为 nil 时使用全局 Provider。
func NewMetrics(tracer trace.Tracer, meter metric.Meter) (*Metrics, error) {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	m := &Metrics{
		tracer: tracer,
		meter:  meter,
	}

	var err error

	m.requestTotal, err = meter.Int64Counter("chatbridge.request.total",
		metric.WithDescription("Total number of adapter calls"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	m.tokenTotal, err = meter.Int64Counter("chatbridge.token.total",
		metric.WithDescription("Tokens reported by vendors"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.errorTotal, err = meter.Int64Counter("chatbridge.error.total",
		metric.WithDescription("Typed errors surfaced to callers"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.requestDuration, err = meter.Float64Histogram("chatbridge.request.duration",
		metric.WithDescription("Adapter call duration, streams measured until termination"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.activeStreams, err = meter.Int64UpDownCounter("chatbridge.stream.active",
		metric.WithDescription("Streams currently open"),
		metric.WithUnit("{stream}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RequestAttrs 请求属性
type RequestAttrs struct {
	Provider  string
	Operation string // send 或 stream
	Model     string
	RequestID string
}

// ResponseAttrs 响应属性
type ResponseAttrs struct {
	Status   string // ok、error、cancelled
	Err      error
	Usage    *types.Usage
	Duration time.Duration
}

// StartRequest 开始请求追踪
func (m *Metrics) StartRequest(ctx context.Context, attrs RequestAttrs) (context.Context, trace.Span) {
	kv := []attribute.KeyValue{
		attribute.String("chatbridge.provider", attrs.Provider),
		attribute.String("chatbridge.operation", attrs.Operation),
	}
	if attrs.Model != "" {
		kv = append(kv, attribute.String("chatbridge.model", attrs.Model))
	}
	if attrs.RequestID != "" {
		kv = append(kv, attribute.String("chatbridge.request_id", attrs.RequestID))
	}
	ctx, span := m.tracer.Start(ctx, "chatbridge."+attrs.Operation, trace.WithAttributes(kv...))

	if attrs.Operation == "stream" {
		m.activeStreams.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", attrs.Provider)))
	}
	return ctx, span
}

// EndRequest 结束请求追踪
func (m *Metrics) EndRequest(ctx context.Context, span trace.Span, req RequestAttrs, resp ResponseAttrs) {
	defer span.End()

	common := metric.WithAttributes(
		attribute.String("provider", req.Provider),
		attribute.String("operation", req.Operation),
		attribute.String("status", resp.Status),
	)

	if req.Operation == "stream" {
		m.activeStreams.Add(ctx, -1, metric.WithAttributes(attribute.String("provider", req.Provider)))
	}

	m.requestTotal.Add(ctx, 1, common)
	m.requestDuration.Record(ctx, resp.Duration.Seconds(), common)

	if u := resp.Usage; u != nil {
		tokenAttrs := func(kind string) metric.AddOption {
			return metric.WithAttributes(
				attribute.String("provider", req.Provider),
				attribute.String("model", req.Model),
				attribute.String("type", kind))
		}
		m.tokenTotal.Add(ctx, int64(u.PromptTokens), tokenAttrs("prompt"))
		m.tokenTotal.Add(ctx, int64(u.CompletionTokens), tokenAttrs("completion"))
		span.SetAttributes(
			attribute.Int("chatbridge.tokens.prompt", u.PromptTokens),
			attribute.Int("chatbridge.tokens.completion", u.CompletionTokens))
	}

	if base, ok := types.AsAppError(resp.Err); ok {
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", req.Provider),
			attribute.String("error_code", string(base.Code))))
		span.SetAttributes(
			attribute.String("error.code", string(base.Code)),
			attribute.Bool("chatbridge.retryable", base.Retryable))
		span.RecordError(resp.Err)
		span.SetStatus(codes.Error, string(base.Code))
	}

	span.SetAttributes(attribute.String("chatbridge.status", resp.Status))
	if resp.Status == statusCancelled {
		span.SetAttributes(attribute.Bool("chatbridge.cancelled", true))
	}
}

// Tracer 获取 Tracer
func (m *Metrics) Tracer() trace.Tracer {
	return m.tracer
}
