package aroflo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"jobproof/internal/transport"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.aroflo.com/"

// acceptJSON asks the service for JSON payloads.
const acceptJSON = "text/json"

// authFailureStatus is the in-band status code the service uses for
// signature/credential failures, delivered with HTTP 200.
const authFailureStatus = "-99999"

// Client performs authenticated calls against the job-management API.
type Client struct {
	baseURL string
	creds   Credentials
	http    *transport.Client

	now func() time.Time // injectable for signing tests
}

// NewClient creates a Client. The transport client is shared with the
// grammar checker so all outbound calls draw from the same rate windows.
func NewClient(baseURL string, creds Credentials, tc *transport.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    tc,
		now:     time.Now,
	}
}

// envelope is the service's outer response shape.
type envelope struct {
	Status        string          `json:"status"`
	StatusMessage string          `json:"statusmessage"`
	Error         string          `json:"error"`
	ZoneResponse  json.RawMessage `json:"zoneresponse"`
}

// Request performs an authenticated GET against one API zone and returns
// the raw zoneresponse payload. Params are sorted into the query string
// so the signed varString is deterministic.
func (c *Client) Request(ctx context.Context, zone string, params map[string]string) (json.RawMessage, error) {
	if err := c.creds.Validate(); err != nil {
		return nil, &transport.AuthError{Msg: err.Error()}
	}

	varString := buildVarString(zone, params)
	url := c.baseURL + "?" + varString

	body, err := c.http.Do(ctx, "aroflo "+zone, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		setHeaders(req, signedHeaders(c.creds, http.MethodGet, acceptJSON, varString, c.now()))
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	return parseEnvelope(body)
}

// post performs an authenticated POST with a form-encoded varString that
// already contains the zone and percent-encoded XML payload.
func (c *Client) post(ctx context.Context, op, varString string) (json.RawMessage, error) {
	if err := c.creds.Validate(); err != nil {
		return nil, &transport.AuthError{Msg: err.Error()}
	}

	body, err := c.http.Do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(varString))
		if err != nil {
			return nil, err
		}
		setHeaders(req, signedHeaders(c.creds, http.MethodPost, acceptJSON, varString, c.now()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	return parseEnvelope(body)
}

// parseEnvelope decodes the outer response and surfaces in-band errors.
func parseEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &transport.MalformedResponseError{Reason: fmt.Sprintf("decoding response: %v", err)}
	}
	if env.Status == authFailureStatus {
		msg := env.StatusMessage
		if msg == "" {
			msg = "service rejected the request signature"
		}
		return nil, &transport.AuthError{Msg: msg}
	}
	if env.Error != "" {
		return nil, &transport.MalformedResponseError{Reason: "API error: " + env.Error}
	}
	if len(env.ZoneResponse) == 0 {
		return json.RawMessage("{}"), nil
	}
	return env.ZoneResponse, nil
}

// buildVarString assembles the query/body string with the zone first and
// remaining params in sorted order, every value percent-encoded.
func buildVarString(zone string, params map[string]string) string {
	parts := []string{"zone=" + percentEncode(zone)}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+percentEncode(params[k]))
	}
	return strings.Join(parts, "&")
}

func setHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

// TestConnection makes a minimal authenticated read to verify the
// credentials and signature canonicalization.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Request(ctx, "invoices", map[string]string{"page": "1"})
	return err
}
