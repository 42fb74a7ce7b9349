package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/testutil"
	"github.com/BaSui01/chatbridge/testutil/mocks"
	"github.com/BaSui01/chatbridge/types"
)

// fakeClock 手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	b := New("mock", cfg, zap.NewNop())
	b.now = clock.Now
	return b, clock
}

var (
	errServer = types.NewAPIError(types.ErrAPIServerError, "upstream 500", 500, "mock", nil)
	errAuth   = types.NewAPIError(types.ErrAPIUnauthorized, "bad key", 401, "mock", nil)
)

func call(b *Breaker, err error) error {
	_, got := Do(b, context.Background(), func(context.Context) (struct{}, error) {
		return struct{}{}, err
	})
	return got
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.Threshold)
	assert.Equal(t, 30*time.Second, cfg.ResetTimeout)
	assert.Equal(t, 1, cfg.HalfOpenMaxCalls)
	assert.Nil(t, cfg.OnStateChange)
}

func TestConfig_Normalized(t *testing.T) {
	got := Config{Threshold: 0, ResetTimeout: -1, HalfOpenMaxCalls: -3}.normalized()
	assert.Equal(t, DefaultConfig().Threshold, got.Threshold)
	assert.Equal(t, DefaultConfig().ResetTimeout, got.ResetTimeout)
	assert.Equal(t, DefaultConfig().HalfOpenMaxCalls, got.HalfOpenMaxCalls)

	custom := Config{Threshold: 2, ResetTimeout: time.Second, HalfOpenMaxCalls: 4}.normalized()
	assert.Equal(t, 2, custom.Threshold)
	assert.Equal(t, time.Second, custom.ResetTimeout)
	assert.Equal(t, 4, custom.HalfOpenMaxCalls)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}

// ---------------------------------------------------------------------------
// 状态机
// ---------------------------------------------------------------------------

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 3, ResetTimeout: time.Minute})

	for range 2 {
		require.ErrorIs(t, call(b, errServer), errServer)
		assert.Equal(t, StateClosed, b.State())
	}
	require.ErrorIs(t, call(b, errServer), errServer)
	assert.Equal(t, StateOpen, b.State())

	err := call(b, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, types.ErrAPIServiceUnavailable, types.GetErrorCode(err))

	base, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.False(t, base.Retryable)
	assert.Equal(t, "mock", base.Context["provider"])
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 2})

	_ = call(b, errServer)
	require.NoError(t, call(b, nil))
	_ = call(b, errServer)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_FailureClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want outcome
	}{
		{"nil", nil, outcomeSuccess},
		{"retryable api error", errServer, outcomeFailure},
		{"rate limited", types.NewAPIError(types.ErrAPIRateLimited, "429", 429, "mock", nil), outcomeFailure},
		{"network timeout", types.NewNetworkError(types.ErrNetworkTimeout, "timeout", nil), outcomeFailure},
		{"unauthorized", errAuth, outcomeSuccess},
		{"content filtered", types.NewAPIError(types.ErrAPIContentFiltered, "blocked", 0, "mock", nil), outcomeSuccess},
		{"validation", types.NewValidationError(types.ErrValidationRequired, "empty", "message", ""), outcomeSuccess},
		{"cancelled app error", types.NewAppError(types.ErrAppCancelled, "cancelled", nil), outcomeIgnored},
		{"context canceled", context.Canceled, outcomeIgnored},
		{"plain error", errors.New("boom"), outcomeFailure},
		{"deadline", context.DeadlineExceeded, outcomeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestBreaker_ClientErrorsDoNotOpen(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1})

	for range 5 {
		require.ErrorIs(t, call(b, errAuth), errAuth)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
	)
	b, clock := newTestBreaker(Config{
		Threshold:    1,
		ResetTimeout: 10 * time.Second,
		OnStateChange: func(from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = call(b, errServer)
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	clock.Advance(10 * time.Second)
	assert.True(t, b.Allow())
	require.NoError(t, call(b, nil))
	assert.Equal(t, StateClosed, b.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second})

	_ = call(b, errServer)
	clock.Advance(time.Second)
	require.ErrorIs(t, call(b, errServer), errServer)
	assert.Equal(t, StateOpen, b.State())

	// 重新打开后需要再等一个 ResetTimeout
	assert.ErrorIs(t, call(b, nil), ErrCircuitOpen)
	clock.Advance(time.Second)
	assert.NoError(t, call(b, nil))
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenMaxCalls: 1})
	_ = call(b, errServer)
	clock.Advance(time.Second)

	probeStarted := make(chan struct{})
	releaseProbe := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Do(b, context.Background(), func(context.Context) (int, error) {
			close(probeStarted)
			<-releaseProbe
			return 1, nil
		})
		done <- err
	}()

	<-probeStarted
	assert.Equal(t, StateHalfOpen, b.State())
	assert.ErrorIs(t, call(b, nil), ErrCircuitOpen)

	close(releaseProbe)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CancelledProbeKeepsHalfOpen(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second})
	_ = call(b, errServer)
	clock.Advance(time.Second)

	require.ErrorIs(t, call(b, context.Canceled), context.Canceled)
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1})
	_ = call(b, errServer)
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, call(b, nil))
}

func TestBreaker_ConcurrentCalls(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1000})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_ = call(b, errServer)
			} else {
				_ = call(b, nil)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, StateClosed, b.State())
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

func TestAdapter_SendOpensAndRejects(t *testing.T) {
	inner := mocks.NewMockAdapter().WithName("deepseek").WithError(errServer)
	a := NewAdapter(inner, Config{Threshold: 2, ResetTimeout: time.Hour}, zap.NewNop())

	assert.Equal(t, "deepseek", a.Name())
	assert.Equal(t, inner.Capabilities(), a.Capabilities())
	assert.Same(t, llm.Adapter(inner), a.Unwrap())

	ctx := testutil.TestContext(t)
	req := &llm.SendRequest{Message: "hi"}
	for range 2 {
		_, err := a.SendMessage(ctx, req)
		require.ErrorIs(t, err, errServer)
	}
	assert.Equal(t, StateOpen, a.Breaker().State())

	_, err := a.SendMessage(ctx, req)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.GetCallCount(), "rejected call must not reach the vendor")
}

func TestAdapter_StreamCountsConnectionOnly(t *testing.T) {
	inner := mocks.NewMockAdapter().
		WithStreamChunks("a", "b").
		WithStreamError(errServer)
	a := NewAdapter(inner, Config{Threshold: 1}, zap.NewNop())

	s, err := a.StreamMessage(testutil.TestContext(t), &llm.SendRequest{Message: "hi"})
	require.NoError(t, err)
	text, _, streamErr := testutil.CollectStream(t, s)
	assert.Equal(t, "ab", text)
	require.Error(t, streamErr)

	assert.Equal(t, StateClosed, a.Breaker().State())
}

func TestAdapter_StreamConnectFailure(t *testing.T) {
	inner := mocks.NewMockAdapter().WithErrors(errServer)
	a := NewAdapter(inner, Config{Threshold: 1, ResetTimeout: time.Hour}, zap.NewNop())

	_, err := a.StreamMessage(testutil.TestContext(t), &llm.SendRequest{Message: "hi"})
	require.ErrorIs(t, err, errServer)
	assert.Equal(t, StateOpen, a.Breaker().State())
}

func TestWrapper_OneBreakerPerAdapter(t *testing.T) {
	wrap := Wrapper(Config{Threshold: 1, ResetTimeout: time.Hour}, nil)
	failing := wrap(mocks.NewMockAdapter().WithName("a").WithError(errServer)).(*Adapter)
	healthy := wrap(mocks.NewMockAdapter().WithName("b")).(*Adapter)

	ctx := testutil.TestContext(t)
	_, _ = failing.SendMessage(ctx, &llm.SendRequest{Message: "x"})
	assert.Equal(t, StateOpen, failing.Breaker().State())

	res, err := healthy.SendMessage(ctx, &llm.SendRequest{Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response", res.Response)
	assert.Equal(t, StateClosed, healthy.Breaker().State())
}
