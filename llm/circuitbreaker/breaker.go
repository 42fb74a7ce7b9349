package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/types"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常放行）
	StateClosed State = iota
	// StateOpen 打开状态（直接拒绝）
	StateOpen
	// StateHalfOpen 半开状态（限量试探）
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
type Config struct {
	// Threshold 连续失败次数阈值
	Threshold int

	// ResetTimeout 打开后多久进入半开
	ResetTimeout time.Duration

	// HalfOpenMaxCalls 半开状态允许同时试探的调用数
	HalfOpenMaxCalls int

	// OnStateChange 状态变更回调，在锁外同步调用
	OnStateChange func(from, to State)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = d.ResetTimeout
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
	return c
}

// ErrCircuitOpen 是熔断拒绝时返回的 APIError 的底层原因，可用 errors.Is 判断。
var ErrCircuitOpen = errors.New("circuit breaker is open")

// outcome 描述一次调用对熔断器的影响。
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeIgnored
)

// classify 只把服务端的瞬时故障计为失败。
// 请求本身的问题（鉴权、参数、内容过滤）说明供应商是健康的；取消不反映供应商状态。
func classify(err error) outcome {
	if err == nil {
		return outcomeSuccess
	}
	if errors.Is(err, context.Canceled) || types.GetErrorCode(err) == types.ErrAppCancelled {
		return outcomeIgnored
	}
	if base, ok := types.AsAppError(err); ok {
		if base.Retryable {
			return outcomeFailure
		}
		return outcomeSuccess
	}
	// 未分类的错误（含超时）按失败计
	return outcomeFailure
}

// Breaker 是单个供应商的熔断器，并发安全。
type Breaker struct {
	name   string
	config Config
	logger *zap.Logger
	now    func() time.Time

	mu               sync.Mutex
	state            State
	failureCount     int
	openedAt         time.Time
	halfOpenInFlight int
}

// New 创建熔断器。name 用于日志与拒绝错误中的 provider 字段。
func New(name string, config Config, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		name:   name,
		config: config.normalized(),
		logger: logger.With(zap.String("component", "circuit_breaker"), zap.String("provider", name)),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Do 在熔断器允许时执行 fn，并按 fn 的错误更新状态。
func Do[T any](b *Breaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	probe, err := b.acquire()
	if err != nil {
		return zero, err
	}
	result, err := fn(ctx)
	b.release(classify(err), probe)
	if err != nil {
		return zero, err
	}
	return result, nil
}

// Allow 报告当前是否会放行调用，不占用半开名额。
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		return b.now().Sub(b.openedAt) >= b.config.ResetTimeout
	case StateHalfOpen:
		return b.halfOpenInFlight < b.config.HalfOpenMaxCalls
	default:
		return true
	}
}

// acquire 占用一次调用许可。probe 为 true 表示本次调用占用了半开试探名额。
func (b *Breaker) acquire() (probe bool, err error) {
	b.mu.Lock()
	opened := false

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.ResetTimeout {
			b.mu.Unlock()
			return false, b.rejection()
		}
		b.state = StateHalfOpen
		b.halfOpenInFlight = 1
		opened, probe = true, true
		b.logger.Info("circuit breaker half-open")
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.config.HalfOpenMaxCalls {
			b.mu.Unlock()
			return false, b.rejection()
		}
		b.halfOpenInFlight++
		probe = true
	}
	b.mu.Unlock()

	if opened {
		b.notify(StateOpen, StateHalfOpen)
	}
	return probe, nil
}

func (b *Breaker) release(o outcome, probe bool) {
	b.mu.Lock()
	from := b.state
	halfOpen := probe && b.state == StateHalfOpen
	if halfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	switch o {
	case outcomeSuccess:
		b.failureCount = 0
		if halfOpen {
			b.state = StateClosed
			b.logger.Info("circuit breaker closed")
		}
	case outcomeFailure:
		b.failureCount++
		if halfOpen || (b.state == StateClosed && b.failureCount >= b.config.Threshold) {
			b.state = StateOpen
			b.openedAt = b.now()
			b.halfOpenInFlight = 0
			b.logger.Warn("circuit breaker opened",
				zap.Int("failure_count", b.failureCount),
				zap.Int("threshold", b.config.Threshold),
			)
		}
	}
	to := b.state
	b.mu.Unlock()

	if from != to {
		b.notify(from, to)
	}
}

func (b *Breaker) rejection() error {
	e := types.NewAPIError(types.ErrAPIServiceUnavailable,
		b.name+" temporarily disabled after repeated failures", 0, b.name, ErrCircuitOpen)
	e.Retryable = false
	return e
}

func (b *Breaker) notify(from, to State) {
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(from, to)
	}
}

// State 返回当前状态。打开状态超过 ResetTimeout 时仍返回 open，直到下一次调用触发试探。
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset 手动恢复为关闭状态。
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.failureCount = 0
	b.halfOpenInFlight = 0
	b.mu.Unlock()

	b.logger.Info("circuit breaker reset", zap.Stringer("from_state", from))
	if from != StateClosed {
		b.notify(from, StateClosed)
	}
}
