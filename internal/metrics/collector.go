// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/types"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 请求指标
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// 流指标
	streamEvents  *prometheus.CounterVec
	activeStreams *prometheus.GaugeVec

	// 错误与重试
	retriesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	// 熔断状态：0 关闭、1 半开、2 打开
	breakerState *prometheus.GaugeVec

	// Token 用量
	tokensUsed *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到 prometheus.DefaultRegisterer。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of adapter calls",
		},
		[]string{"provider", "operation", "status"},
	)

	c.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Adapter call duration in seconds, measured until the stream terminates",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "operation"},
	)

	c.streamEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Normalized stream events delivered to consumers",
		},
		[]string{"provider", "type"},
	)

	c.activeStreams = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Streams currently open",
		},
		[]string{"provider"},
	)

	c.retriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries scheduled after a failed attempt",
		},
		[]string{"provider", "code"},
	)

	c.breakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)

	c.errorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Typed errors surfaced to callers",
		},
		[]string{"provider", "code"},
	)

	c.tokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Tokens reported by vendors",
		},
		[]string{"provider", "model", "type"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordRequest 记录一次 send 或 stream 调用
func (c *Collector) RecordRequest(provider, operation, status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(provider, operation, status).Inc()
	c.requestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordStreamEvent 记录一个交付给消费者的流事件
func (c *Collector) RecordStreamEvent(provider, eventType string) {
	c.streamEvents.WithLabelValues(provider, eventType).Inc()
}

// StreamOpened 活跃流加一
func (c *Collector) StreamOpened(provider string) {
	c.activeStreams.WithLabelValues(provider).Inc()
}

// StreamClosed 活跃流减一
func (c *Collector) StreamClosed(provider string) {
	c.activeStreams.WithLabelValues(provider).Dec()
}

// RecordRetry 记录一次重试，code 为触发重试的错误码
func (c *Collector) RecordRetry(provider string, code types.ErrorCode) {
	c.retriesTotal.WithLabelValues(provider, codeLabel(code)).Inc()
}

// SetBreakerState 记录熔断器当前状态
func (c *Collector) SetBreakerState(provider string, state float64) {
	c.breakerState.WithLabelValues(provider).Set(state)
}

// RecordError 记录返回给调用方的类型化错误
func (c *Collector) RecordError(provider string, code types.ErrorCode) {
	c.errorsTotal.WithLabelValues(provider, codeLabel(code)).Inc()
}

// RecordUsage 记录 Token 用量，usage 为 nil 时忽略
func (c *Collector) RecordUsage(provider, model string, usage *types.Usage) {
	if usage == nil {
		return
	}
	if usage.PromptTokens > 0 {
		c.tokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		c.tokensUsed.WithLabelValues(provider, model, "completion").Add(float64(usage.CompletionTokens))
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func codeLabel(code types.ErrorCode) string {
	if code == "" {
		return "unknown"
	}
	return string(code)
}
