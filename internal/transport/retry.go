package transport

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy configures retry behavior for outbound calls.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	// Default: 2 seconds
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	// Default: 30 seconds
	MaxBackoff time.Duration

	// Multiplier grows the delay between consecutive retries.
	// Default: 2
	Multiplier float64

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the retry policy used for all outbound
// calls: three attempts with 2s, 4s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

func (p *RetryPolicy) applyDefaults() {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Multiplier <= 1 {
		p.Multiplier = d.Multiplier
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}
}

// Retry runs op until it succeeds, fails non-transiently, or the attempt
// budget is exhausted. Transient failures (TransportError,
// RateLimitError) back off exponentially between attempts; anything else
// propagates immediately.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	policy.applyDefaults()

	backoff := policy.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		delay := backoff
		var re *RateLimitError
		if errors.As(err, &re) && re.RetryAfter > delay {
			delay = re.RetryAfter
		}
		if delay > policy.MaxBackoff {
			delay = policy.MaxBackoff
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return err
		}
		backoff = time.Duration(float64(backoff) * policy.Multiplier)
	}

	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
