package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/types"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:       attempts,
		BaseDelay:         time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestDo_SuccessFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDo_AlwaysFailingRetryableCallsMaxAttempts(t *testing.T) {
	orig := types.NewAPIError(types.ErrAPIServerError, "boom", 500, "openai", nil)
	calls := 0
	var retried []int

	_, err := Do(context.Background(), fastConfig(3), func(context.Context) (int, error) {
		calls++
		return 0, orig
	}, func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
		assert.Same(t, orig, err)
	})

	assert.Equal(t, 3, calls)
	assert.Same(t, orig, err)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(5), func(context.Context) (int, error) {
		calls++
		return 0, types.NewAPIError(types.ErrAPIUnauthorized, "bad key", 401, "openai", nil)
	}, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, types.ErrAPIUnauthorized, types.GetErrorCode(err))
}

func TestDo_RecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(4), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset by peer")
		}
		return 42, nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_CancelDuringBackoff(t *testing.T) {
	cfg := Config{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second, BackoffMultiplier: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	_, err := Do(ctx, cfg, func(context.Context) (int, error) {
		calls++
		return 0, types.NewNetworkError(types.ErrNetworkTimeout, "slow", nil)
	}, nil)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.Equal(t, types.ErrAppCancelled, types.GetErrorCode(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_AllowListOverridesTaxonomy(t *testing.T) {
	cfg := fastConfig(3)
	cfg.RetryableCodes = []types.ErrorCode{types.ErrAPIBadRequest}

	calls := 0
	_, _ = Do(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, types.NewAPIError(types.ErrAPIBadRequest, "bad", 400, "", nil)
	}, nil)
	assert.Equal(t, 3, calls)

	calls = 0
	_, _ = Do(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, types.NewAPIError(types.ErrAPIRateLimited, "slow", 429, "", nil)
	}, nil)
	assert.Equal(t, 1, calls)
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		allow []types.ErrorCode
		want  bool
	}{
		{"nil", nil, nil, false},
		{"typed retryable", types.NewAPIError(types.ErrAPIRateLimited, "", 429, "", nil), nil, true},
		{"typed non retryable", types.NewAPIError(types.ErrAPINotFound, "", 404, "", nil), nil, false},
		{"allow forces", types.NewAPIError(types.ErrAPINotFound, "", 404, "", nil), []types.ErrorCode{types.ErrAPINotFound}, true},
		{"allow restricts", types.NewAPIError(types.ErrAPIRateLimited, "", 429, "", nil), []types.ErrorCode{types.ErrAPIServerError}, false},
		{"non recoverable", types.NewAuthError(types.ErrAuthUserDisabled, "", "", nil).WithRetryable(true), nil, false},
		{"cancelled", types.NewAppError(types.ErrAppCancelled, "", nil), []types.ErrorCode{types.ErrAppCancelled}, false},
		{"untyped network", errors.New("network error: socket closed"), nil, true},
		{"untyped 503", errors.New("upstream (503)"), nil, true},
		{"untyped forbidden overrides", errors.New("connection forbidden"), nil, false},
		{"untyped permission", errors.New("timeout: permission denied"), nil, false},
		{"untyped 404", errors.New("API error (404): connection"), nil, false},
		{"untyped unknown", errors.New("weird"), nil, false},
		{"untyped allow", errors.New("rate limit exceeded"), []types.ErrorCode{types.ErrAPIRateLimited}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err, tt.allow))
		})
	}
}

func TestBackoffRetryer_LogsAndReturnsResult(t *testing.T) {
	r := NewBackoffRetryer(fastConfig(2), nil, zap.NewNop())

	calls := 0
	got, err := DoWithResultTyped(r, context.Background(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("dns lookup failed")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestBackoffRetryer_NilInterfaceResult(t *testing.T) {
	r := NewBackoffRetryer(fastConfig(1), nil, nil)
	got, err := DoWithResultTyped(r, context.Background(), func(context.Context) (error, error) {
		return nil, nil
	})
	assert.NoError(t, err)
	assert.Nil(t, got)
}
