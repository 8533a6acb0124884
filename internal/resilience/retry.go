// Package resilience repeats remote input fetches that fail for reasons
// likely to clear up: throttling, server errors and flaky connections.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls how often and how patiently a fetch is repeated.
type Policy struct {
	// Attempts is the total number of tries, the first included. Default: 3.
	Attempts int

	// Initial is the delay before the first retry; it doubles per retry.
	// Default: 500ms.
	Initial time.Duration

	// Max caps a single delay. Default: 30s.
	Max time.Duration

	// Jitter spreads each delay by up to this fraction in either direction.
	Jitter float64

	// Retryable decides whether an error is worth another try. Default:
	// Retryable.
	Retryable func(err error) bool

	// OnRetry runs before each retry sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the policy used for input downloads.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Initial:  500 * time.Millisecond,
		Max:      30 * time.Second,
		Jitter:   0.25,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Initial <= 0 {
		p.Initial = 500 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 30 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = Retryable
	}
	return p
}

// Backoff returns the delay before retry number attempt (zero based).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	d := p.Initial << min(attempt, 30)
	if d <= 0 || d > p.Max {
		d = p.Max
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	return max(d, 0)
}

// Do calls fn until it succeeds, returns an error p does not retry, the
// attempts run out, or ctx ends. The last error is returned as is.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := range p.Attempts {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || !p.Retryable(err) || attempt == p.Attempts-1 {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// LogRetries returns an OnRetry callback that logs each retry of source.
func LogRetries(source string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("fetcher: retrying",
			zap.String("source", source),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
