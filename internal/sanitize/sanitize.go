// Package sanitize prepares corrected text for the remote write path.
// Field text comes back from checkers and string surgery, so before it is
// embedded in an XML write payload it is stripped of control characters,
// normalized, and escaped. The service rejects or mangles payloads with
// raw markup characters, hence escaping is done here rather than left to
// callers.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxWriteLength is the maximum length of a description pushed to the
// service. Longer text is truncated rune-safe; job descriptions are far
// below this in practice.
const MaxWriteLength = 8000

// reExcessiveNewlines matches 3 or more consecutive newlines.
var reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// ForRemoteWrite normalizes corrected text before it is written back:
//
//  1. Strip null bytes and ASCII control characters (except \n, \t)
//  2. Collapse excessive newlines (3+ -> 2)
//  3. Trim leading/trailing whitespace
//  4. Truncate to MaxWriteLength (rune-safe)
//
// XML escaping is separate (EscapeXML) because it must run on every
// payload fragment, not just field text.
func ForRemoteWrite(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > MaxWriteLength {
		runes := []rune(s)
		s = string(runes[:MaxWriteLength])
	}

	return s
}

// EscapeXML escapes the five XML special characters for embedding a
// value in the service's postxml payload.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL
// (0x7F), preserving newline and tab.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 || r == 0x7F) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
