package transport

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces two simultaneous request ceilings: a short burst cap
// (requests per second) and a sustained cap (requests per minute). It is
// shared process-wide so concurrent callers can never collectively exceed
// either window. Requests are queued, never dropped, and released
// first-come-first-served: each caller reserves the earliest slot both
// windows permit, and reservations are handed out in call order.
type Limiter struct {
	perSecond int
	perMinute int

	mu       sync.Mutex
	reserved []time.Time // release times of recent reservations, ascending

	now func() time.Time // injectable for tests
}

// NewLimiter creates a Limiter with the given window caps. Both caps must
// be positive.
func NewLimiter(perSecond, perMinute int) *Limiter {
	if perSecond < 1 {
		perSecond = 1
	}
	if perMinute < 1 {
		perMinute = 1
	}
	return &Limiter{
		perSecond: perSecond,
		perMinute: perMinute,
		now:       time.Now,
	}
}

// Wait blocks until both rate windows permit another request, or until
// ctx is done. The slot is reserved under the lock, so callers queue in
// arrival order even when many goroutines wait at once.
func (l *Limiter) Wait(ctx context.Context) error {
	release := l.reserve()

	delay := release.Sub(l.now())
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reserve picks the earliest time both windows permit and records it.
func (l *Limiter) reserve() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	candidate := l.now()
	n := len(l.reserved)

	// The per-second window permits the candidate only once the
	// perSecond-th most recent reservation is at least a second old.
	if n >= l.perSecond {
		if t := l.reserved[n-l.perSecond].Add(time.Second); t.After(candidate) {
			candidate = t
		}
	}
	if n >= l.perMinute {
		if t := l.reserved[n-l.perMinute].Add(time.Minute); t.After(candidate) {
			candidate = t
		}
	}

	l.reserved = append(l.reserved, candidate)

	// Only the last perMinute reservations can ever matter again.
	if len(l.reserved) > l.perMinute {
		l.reserved = l.reserved[len(l.reserved)-l.perMinute:]
	}

	return candidate
}
