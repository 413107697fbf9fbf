// Package aroflo is the client for the AroFlo job-management API: HMAC
// request signing, zone reads (tasks, timesheets, substatuses), and the
// task description/substatus write operations. All calls go through the
// shared transport layer for rate limiting and retry.
package aroflo

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// timestampLayout renders UTC timestamps the way the service expects:
// ISO 8601 with exactly three fractional digits and a literal Z.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Credentials is the pre-encoded credential triple from the service's
// admin console plus the HMAC secret. HostIP is optional; when set it is
// included in both the signed payload and the request headers.
type Credentials struct {
	OrgEncoded string
	UEncoded   string
	PEncoded   string
	SecretKey  string
	HostIP     string
}

// Validate reports missing credential fields before any call is made.
func (c Credentials) Validate() error {
	var missing []string
	if c.OrgEncoded == "" {
		missing = append(missing, "org encoded")
	}
	if c.UEncoded == "" {
		missing = append(missing, "user encoded")
	}
	if c.PEncoded == "" {
		missing = append(missing, "password encoded")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// authString builds the Authorization header value. Each credential is
// percent-encoded with no safe characters; the field order is part of
// the signed payload and must not change.
func (c Credentials) authString() string {
	return "uencoded=" + percentEncode(c.UEncoded) +
		"&pencoded=" + percentEncode(c.PEncoded) +
		"&orgEncoded=" + percentEncode(c.OrgEncoded)
}

// stringToSign assembles the canonical payload:
//
//	method + [HostIP] + urlPath + accept + authString + timestamp + varString
//
// joined with literal '+' characters. urlPath is always empty for this
// service but keeps its slot in the payload. The service validates the
// signature against this exact byte sequence; any deviation shows up as
// an authentication failure, not a descriptive error, so treat this
// layout as a wire contract.
func stringToSign(c Credentials, method, accept, timestamp, varString string) string {
	parts := []string{method}
	if c.HostIP != "" {
		parts = append(parts, c.HostIP)
	}
	parts = append(parts, "", accept, c.authString(), timestamp, varString)
	return strings.Join(parts, "+")
}

// signedHeaders computes the HMAC-SHA512 signature for one request and
// returns the headers that carry it. A fresh timestamp must be used per
// attempt, so retries re-sign.
func signedHeaders(c Credentials, method, accept, varString string, now time.Time) map[string]string {
	timestamp := now.UTC().Format(timestampLayout)

	mac := hmac.New(sha512.New, []byte(c.SecretKey))
	mac.Write([]byte(stringToSign(c, method, accept, timestamp, varString)))
	signature := hex.EncodeToString(mac.Sum(nil))

	headers := map[string]string{
		"Accept":         accept,
		"Authentication": "HMAC " + signature,
		"Authorization":  c.authString(),
		"afdatetimeutc":  timestamp,
	}
	if c.HostIP != "" {
		headers["HostIP"] = c.HostIP
	}
	return headers
}

// percentEncode encodes s with no safe characters: every byte outside
// ALPHA / DIGIT / '-' / '_' / '.' / '~' becomes %XX with upper-case hex.
// net/url's QueryEscape encodes spaces as '+', which the service's
// signature check rejects, hence the hand-rolled encoder.
func percentEncode(s string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' ||
			ch == '-' || ch == '_' || ch == '.' || ch == '~' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[ch>>4])
		b.WriteByte(upperhex[ch&0x0F])
	}
	return b.String()
}
