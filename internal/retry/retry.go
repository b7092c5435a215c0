// Package retry re-runs an operation while it reports being rate limited.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RateLimited is implemented by errors that ask the caller to wait and retry.
// ok is false when the error is not a rate limit.
type RateLimited interface {
	RetryAfter() (delay time.Duration, ok bool)
}

// DefaultMaxAttempts bounds Do when the caller passes a non-positive budget.
const DefaultMaxAttempts = 3

// delayBackOff waits for whatever delay the last rate-limited error asked for.
type delayBackOff struct {
	next time.Duration
}

func (b *delayBackOff) NextBackOff() time.Duration { return b.next }
func (b *delayBackOff) Reset()                     { b.next = 0 }

// Do runs op at most maxAttempts times. Only errors implementing RateLimited
// with ok=true are retried, after the delay they carry. Any other error, or
// the last rate-limited error once the budget is spent, is returned unchanged.
func Do[T any](ctx context.Context, maxAttempts int, op func(ctx context.Context) (T, error)) (T, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	delay := &delayBackOff{}
	policy := backoff.WithContext(backoff.WithMaxRetries(delay, uint64(maxAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if d, ok := asRateLimited(err); ok {
			delay.next = d
			return v, err
		}
		return v, backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		slog.Warn("rate limited, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"wait", wait,
			"error", err,
		)
	})
}

func asRateLimited(err error) (time.Duration, bool) {
	var rl RateLimited
	if !errors.As(err, &rl) {
		return 0, false
	}
	return rl.RetryAfter()
}
