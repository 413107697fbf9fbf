package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxResponseBytes caps how much of a response body is read. Job and
// timesheet pages are well under this.
const maxResponseBytes = 4 << 20

// Config configures the shared outbound client.
type Config struct {
	// Timeout applies per HTTP call, not per batch.
	// Default: 30 seconds
	Timeout time.Duration

	// PerSecond and PerMinute are the shared rate-limit window caps.
	// Defaults: 3/sec and 120/min (the upstream service's published
	// limits).
	PerSecond int
	PerMinute int

	// Retry is the backoff policy for transient failures.
	Retry RetryPolicy
}

// DefaultConfig returns the limits the upstream service documents.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		PerSecond: 3,
		PerMinute: 120,
		Retry:     DefaultRetryPolicy(),
	}
}

// Client sends every outbound HTTP call through the shared rate limiter
// and retry policy. One Client is shared by the job-management API and
// the grammar service so their calls draw from the same windows.
type Client struct {
	httpClient *http.Client
	limiter    *Limiter
	retry      RetryPolicy
}

// NewClient creates a Client from cfg, filling zero fields with defaults.
func NewClient(cfg Config) *Client {
	d := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = d.PerSecond
	}
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = d.PerMinute
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewLimiter(cfg.PerSecond, cfg.PerMinute),
		retry:      cfg.Retry,
	}
}

// Do sends one logical request and returns the response body. build is
// invoked once per attempt so signed requests carry a fresh timestamp
// and nonce on every retry. Failures are classified into the transport
// taxonomy; transient ones are retried with backoff, everything else
// propagates immediately.
func (c *Client) Do(ctx context.Context, op string, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	var body []byte

	err := Retry(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Err: err}
		}

		req, err := build(ctx)
		if err != nil {
			return fmt.Errorf("building %s request: %w", op, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}

		if err := classifyStatus(op, resp, data); err != nil {
			return err
		}

		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// classifyStatus maps an HTTP status to the error taxonomy.
func classifyStatus(op string, resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Msg: fmt.Sprintf("%s returned HTTP %d", op, resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		return &TransportError{Op: op, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body, 200))}
	default:
		// Remaining 4xx: the service rejected the request shape. Not
		// retried; counts toward the breaker for grammar calls.
		return &MalformedResponseError{Reason: fmt.Sprintf("%s returned HTTP %d: %s", op, resp.StatusCode, truncate(body, 200))}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
