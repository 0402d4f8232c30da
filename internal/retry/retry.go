// Package retry implements a simple "loop; on Err log+sleep; on Ok break"
// macro for RPC/DB calls, backed by true exponential backoff, plus the
// signature cursor's dedicated linear 1s→5s ramp for empty signature
// batches.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Forever repeats fn with exponential backoff until it returns a nil error
// or ctx is cancelled. Use it for any RPC or database operation that must
// make eventual progress.
func Forever[T any](ctx context.Context, log *slog.Logger, op string, fn func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil {
			log.Warn("retrying operation", "op", op, "error", err)
			return v, err
		}
		return v, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()))
}

// LinearRamp implements the signature cursor's empty-batch backoff: 1s,
// 2s, 3s, 4s, capped at 5s, reset to 1s whenever a non-empty batch arrives.
type LinearRamp struct {
	step time.Duration
	max  time.Duration
	cur  time.Duration
}

func NewLinearRamp() *LinearRamp {
	return &LinearRamp{step: time.Second, max: 5 * time.Second}
}

// Next advances the ramp and returns the delay to sleep for.
func (r *LinearRamp) Next() time.Duration {
	r.cur += r.step
	if r.cur > r.max {
		r.cur = r.max
	}
	return r.cur
}

// Reset returns the ramp to its initial state after a successful batch.
func (r *LinearRamp) Reset() { r.cur = 0 }

// Sleep blocks for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
