// Package transport is the resilient access layer for all outbound HTTP
// calls: a shared dual-window rate limiter, retry with exponential
// backoff, a one-way circuit breaker for the grammar service, and the
// error taxonomy the rest of the pipeline dispatches on.
package transport

import (
	"errors"
	"fmt"
	"time"
)

// AuthError means the service rejected our credentials or signature.
// Never retried; aborts the run.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Msg
}

// RateLimitError means the service returned an explicit rate-limit
// response. Transient: retried after backoff.
type RateLimitError struct {
	RetryAfter time.Duration // zero when the service gave no hint
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "rate limit exceeded"
}

// TransportError is a transient network or service fault (timeout,
// connection error, 5xx). Retried with backoff; repeated failures count
// toward the circuit breaker.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the service answered with a payload we
// could not interpret. Counts toward the circuit breaker but is not
// retried: the same request would yield the same payload.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	var te *TransportError
	var re *RateLimitError
	return errors.As(err, &te) || errors.As(err, &re)
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// CountsTowardBreaker reports whether err counts as a grammar-service
// failure for circuit-breaker purposes.
func CountsTowardBreaker(err error) bool {
	var me *MalformedResponseError
	return IsTransient(err) || errors.As(err, &me)
}
