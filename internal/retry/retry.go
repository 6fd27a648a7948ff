// Package retry re-runs rate-limited operations from scratch with a bounded
// number of attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrRetriesExhausted is returned when every attempt was rate limited.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RateLimited is implemented by errors that carry a source-requested wait.
type RateLimited interface {
	error
	RetryAfter() time.Duration
}

// Policy configures the retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first one.
	MaxAttempts int

	// InitialDelay is the backoff used when the source gives no wait.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff. Source-requested waits are
	// never capped.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	Multiplier float64

	// Sleep blocks for d or until ctx is done. Defaults to a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultPolicy returns the policy used by the collectors.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}
}

// Do calls fn until it succeeds, fails with an error that is not rate
// limited, or MaxAttempts attempts were rate limited. Each attempt starts
// over; nothing from a rate-limited attempt is kept.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		var rl RateLimited
		if !errors.As(err, &rl) {
			return zero, err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		wait := p.delay(attempt, rl.RetryAfter())
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := p.Sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, p.MaxAttempts, lastErr)
}

func (p Policy) delay(attempt int, requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = def.Multiplier
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
