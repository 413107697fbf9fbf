package models

// Classification is the resolved outcome for a surviving match.
type Classification string

const (
	// ClassAutoApply means the correction is applied to the corrected
	// text and written back through the API (Description fields only).
	ClassAutoApply Classification = "auto-apply"

	// ClassManualReview means the correction is reported for a human to
	// act on and never applied automatically.
	ClassManualReview Classification = "manual-review"
)

// ResolvedMatch is a match that survived conflict resolution, tagged with
// its classification.
type ResolvedMatch struct {
	Match `yaml:",inline"`

	// Classification says whether the match is applied or reported.
	Classification Classification `json:"classification" yaml:"classification"`

	// Reason explains a manual-review classification ("medium confidence",
	// "ambiguous replacements", "timesheet notes are not writable", ...).
	// Empty for auto-applied matches.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// CorrectionDecision is the resolved outcome for one TextField: the
// ordered, non-overlapping accepted matches and the corrected text with
// all auto-apply replacements applied.
type CorrectionDecision struct {
	// Field is the analyzed snapshot.
	Field TextField `json:"field" yaml:"field"`

	// Matches are the surviving matches ordered by start offset. Spans
	// never overlap.
	Matches []ResolvedMatch `json:"matches" yaml:"matches"`

	// CorrectedText is the field text with all auto-apply replacements
	// applied. Equal to the original text when nothing was auto-applied.
	// Only meaningful for writes when the field kind is remotely writable.
	CorrectedText string `json:"corrected_text" yaml:"corrected_text"`

	// Degraded is set when the decision was produced in fallback-only
	// (spelling-only) mode because the remote grammar circuit was open.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// AutoApplied returns the matches classified as auto-apply, in order.
func (d *CorrectionDecision) AutoApplied() []ResolvedMatch {
	return d.byClass(ClassAutoApply)
}

// ManualReview returns the matches classified as manual-review, in order.
func (d *CorrectionDecision) ManualReview() []ResolvedMatch {
	return d.byClass(ClassManualReview)
}

func (d *CorrectionDecision) byClass(c Classification) []ResolvedMatch {
	var out []ResolvedMatch
	for _, m := range d.Matches {
		if m.Classification == c {
			out = append(out, m)
		}
	}
	return out
}

// Changed reports whether any correction was auto-applied.
func (d *CorrectionDecision) Changed() bool {
	return d.CorrectedText != d.Field.Text
}
