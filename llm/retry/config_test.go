package retry

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
	assert.True(t, cfg.Jitter)
}

func TestCalculateMaxWaitTime(t *testing.T) {
	cfg := Config{MaxAttempts: 4, BaseDelay: 500 * time.Millisecond, BackoffMultiplier: 2}
	assert.Equal(t, 3500*time.Millisecond, CalculateMaxWaitTime(cfg))

	cfg.Jitter = true
	assert.Equal(t, 4375*time.Millisecond, CalculateMaxWaitTime(cfg))

	assert.Zero(t, CalculateMaxWaitTime(Config{MaxAttempts: 1, BaseDelay: time.Second}))
}

func TestCalculateDelay_CapsAtMaxDelay(t *testing.T) {
	cfg := Config{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 10 * time.Second, BackoffMultiplier: 2}
	assert.Equal(t, time.Second, CalculateDelay(1, cfg))
	assert.Equal(t, 2*time.Second, CalculateDelay(2, cfg))
	assert.Equal(t, 8*time.Second, CalculateDelay(4, cfg))
	assert.Equal(t, 10*time.Second, CalculateDelay(5, cfg))
	assert.Equal(t, 10*time.Second, CalculateDelay(9, cfg))
}

func TestProperty_DelayWithinJitterBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("jittered delay stays within [base, base*1.25]", prop.ForAll(
		func(attempt int, baseMs int, maxMs int, multiplier float64) bool {
			cfg := Config{
				MaxAttempts:       10,
				BaseDelay:         time.Duration(baseMs) * time.Millisecond,
				MaxDelay:          time.Duration(baseMs+maxMs) * time.Millisecond,
				BackoffMultiplier: multiplier,
				Jitter:            true,
			}
			want := baseDelay(attempt, cfg.normalized())
			got := CalculateDelay(attempt, cfg)
			upper := want + time.Duration(float64(want)*jitterFraction)
			if got < want || got > upper {
				t.Logf("attempt=%d got=%v want in [%v, %v]", attempt, got, want, upper)
				return false
			}
			return got <= cfg.MaxDelay+time.Duration(float64(cfg.MaxDelay)*jitterFraction)
		},
		gen.IntRange(1, 12),
		gen.IntRange(1, 2000),
		gen.IntRange(1, 20000),
		gen.Float64Range(1, 4),
	))

	properties.Property("delay without jitter is non-decreasing", prop.ForAll(
		func(attempt int, multiplier float64) bool {
			cfg := Config{BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, BackoffMultiplier: multiplier}
			return CalculateDelay(attempt+1, cfg) >= CalculateDelay(attempt, cfg)
		},
		gen.IntRange(1, 20),
		gen.Float64Range(1, 3),
	))

	properties.TestingRun(t)
}
