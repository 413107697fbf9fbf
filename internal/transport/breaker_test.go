package transport

import "testing"

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3)

	if b.Open() {
		t.Fatal("new breaker should be closed")
	}

	b.RecordFailure()
	b.RecordFailure()
	if b.Open() {
		t.Error("breaker tripped before threshold")
	}

	if !b.RecordFailure() {
		t.Error("third consecutive failure should trip the breaker")
	}
	if !b.Open() {
		t.Error("breaker should be open after threshold failures")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := NewBreaker(2)

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()

	if b.Open() {
		t.Error("non-consecutive failures should not trip the breaker")
	}
}

func TestBreaker_NeverResetsOnceOpen(t *testing.T) {
	b := NewBreaker(1)

	b.RecordFailure()
	if !b.Open() {
		t.Fatal("breaker should be open")
	}

	// No half-open in this design: success after tripping changes nothing.
	b.RecordSuccess()
	if !b.Open() {
		t.Error("breaker must stay open for the remainder of the run")
	}
}

func TestBreaker_DefaultThreshold(t *testing.T) {
	b := NewBreaker(0)

	for i := 0; i < DefaultBreakerThreshold-1; i++ {
		b.RecordFailure()
	}
	if b.Open() {
		t.Error("breaker tripped before the default threshold")
	}
	b.RecordFailure()
	if !b.Open() {
		t.Error("breaker should trip at the default threshold")
	}
}
