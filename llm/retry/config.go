package retry

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/BaSui01/chatbridge/types"
)

// jitterFraction 是抖动可放大延迟的最大比例。
const jitterFraction = 0.25

// Config 定义一次调用的重试策略。值对象，调用期间不可变。
type Config struct {
	MaxAttempts       int               // 总尝试次数（含首次）
	BaseDelay         time.Duration     // 首次重试前的延迟
	MaxDelay          time.Duration     // 单次延迟上限
	BackoffMultiplier float64           // 指数退避倍数
	Jitter            bool              // 是否放大最多 25% 的随机抖动
	RetryableCodes    []types.ErrorCode // 非空时只有列表中的错误码可重试
}

// DefaultConfig 返回默认策略 {3, 1s, 10s, 2, jitter}。
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            true,
	}
}

// normalized 修正非法参数。
func (c Config) normalized() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = max(c.BaseDelay, 10*time.Second)
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = 1
	}
	c.RetryableCodes = slices.Clone(c.RetryableCodes)
	return c
}

// baseDelay 返回不含抖动的第 attempt 次重试延迟：
// min(BaseDelay * multiplier^(attempt-1), MaxDelay)。
func baseDelay(attempt int, cfg Config) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// CalculateDelay 计算第 attempt 次失败后的等待时间。
// 开启抖动时在基础延迟上额外放大 [0, 25%)。
func CalculateDelay(attempt int, cfg Config) time.Duration {
	cfg = cfg.normalized()
	delay := baseDelay(attempt, cfg)
	if cfg.Jitter {
		delay += time.Duration(float64(delay) * jitterFraction * rand.Float64())
	}
	return delay
}

// CalculateMaxWaitTime 返回耗尽所有尝试时的最长累计等待时间。
// 开启抖动时返回上界（每次延迟放大 25%）。
func CalculateMaxWaitTime(cfg Config) time.Duration {
	cfg = cfg.normalized()
	var total time.Duration
	for attempt := 1; attempt < cfg.MaxAttempts; attempt++ {
		d := baseDelay(attempt, cfg)
		if cfg.Jitter {
			d += time.Duration(float64(d) * jitterFraction)
		}
		total += d
	}
	return total
}
