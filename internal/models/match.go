package models

import "fmt"

// Source identifies which checker produced a Match.
type Source string

const (
	// SourceRemoteGrammar marks matches from the remote grammar service.
	SourceRemoteGrammar Source = "remote-grammar"

	// SourceFallbackSpelling marks matches from the offline dictionary
	// checker used when the remote service is unreachable.
	SourceFallbackSpelling Source = "fallback-spelling"

	// SourceCustomShorthand marks matches from the deterministic
	// shorthand-misspelling table. These outrank checker matches.
	SourceCustomShorthand Source = "custom-shorthand"
)

// Priority returns the conflict-resolution rank of the source.
// Higher wins: CustomShorthand > RemoteGrammar > FallbackSpelling.
func (s Source) Priority() int {
	switch s {
	case SourceCustomShorthand:
		return 3
	case SourceRemoteGrammar:
		return 2
	case SourceFallbackSpelling:
		return 1
	default:
		return 0
	}
}

// Confidence is the tier assigned to a match by its producer.
type Confidence string

const (
	// ConfidenceHigh means the correction is safe enough to auto-apply
	// (subject to field kind and ambiguity checks).
	ConfidenceHigh Confidence = "high"

	// ConfidenceMedium means the correction always goes to human review.
	ConfidenceMedium Confidence = "medium"
)

// Match is one flagged span within a TextField together with its proposed
// replacement. Offsets are byte offsets into the original field text and
// satisfy Start < End <= len(text).
type Match struct {
	// Start and End delimit the flagged span as [Start, End).
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// RuleID names the originating rule (checker rule ID, or a table key
	// for shorthand corrections).
	RuleID string `json:"rule_id" yaml:"rule_id"`

	// Source says which checker produced this match.
	Source Source `json:"source" yaml:"source"`

	// Replacement is the proposed corrected text for the span.
	Replacement string `json:"replacement" yaml:"replacement"`

	// Confidence is the producer-assigned tier.
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	// Message is the checker's human-readable description, if any.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Validate checks the span invariant against the owning text length.
func (m Match) Validate(textLen int) error {
	if m.Start < 0 || m.Start >= m.End || m.End > textLen {
		return fmt.Errorf("invalid match span [%d,%d) for text of length %d", m.Start, m.End, textLen)
	}
	return nil
}

// Overlaps reports whether the spans of m and other intersect.
func (m Match) Overlaps(other Match) bool {
	return m.Start < other.End && other.Start < m.End
}

// Span returns the length of the flagged span.
func (m Match) Span() int {
	return m.End - m.Start
}
