package transport

import (
	"errors"
	"sync"
)

// ErrBreakerOpen is returned when a call is refused because the circuit
// has tripped.
var ErrBreakerOpen = errors.New("grammar service circuit is open")

// Breaker is the one-way circuit breaker guarding the grammar service.
//
// It has two states, Closed and Open. After Threshold consecutive
// failures it trips Open and stays Open for the remainder of the run:
// there is no half-open probe and no reset, because the run degrades to
// the offline fallback checker instead of re-testing a flaky service
// mid-batch.
//
//	CLOSED --[threshold consecutive failures]--> OPEN (final)
type Breaker struct {
	threshold int

	mu          sync.Mutex
	consecutive int
	open        bool
}

// DefaultBreakerThreshold is the number of consecutive grammar-service
// failures that trips the circuit.
const DefaultBreakerThreshold = 3

// NewBreaker creates a Breaker that trips after threshold consecutive
// failures. A threshold below 1 uses DefaultBreakerThreshold.
func NewBreaker(threshold int) *Breaker {
	if threshold < 1 {
		threshold = DefaultBreakerThreshold
	}
	return &Breaker{threshold: threshold}
}

// Open reports whether the circuit has tripped.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// RecordSuccess resets the consecutive-failure count. It has no effect
// once the circuit is open.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		b.consecutive = 0
	}
}

// RecordFailure counts one failure and trips the circuit when the
// threshold is reached. Returns true if the circuit is open afterwards.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return true
	}
	b.consecutive++
	if b.consecutive >= b.threshold {
		b.open = true
	}
	return b.open
}
