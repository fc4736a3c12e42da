package extract

import (
	"context"
	"math"
	"time"
)

// Backoff is the retry schedule of the extractor.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
}

// DefaultBackoff is 3 attempts waiting 2s then 4s.
var DefaultBackoff = Backoff{MaxAttempts: 3, BaseDelay: 2 * time.Second, Factor: 2}

// Delay returns how long to wait before the given 1-based attempt. The first
// attempt never waits.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 1 || b.BaseDelay <= 0 {
		return 0
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	return time.Duration(float64(b.BaseDelay) * math.Pow(factor, float64(attempt-2)))
}

// Schedule lists the waits between consecutive attempts.
func (b Backoff) Schedule() []time.Duration {
	if b.MaxAttempts <= 1 {
		return nil
	}
	out := make([]time.Duration, 0, b.MaxAttempts-1)
	for attempt := 2; attempt <= b.MaxAttempts; attempt++ {
		out = append(out, b.Delay(attempt))
	}
	return out
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
