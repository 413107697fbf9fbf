// Package report renders the manual-review report: every finding a human
// has to act on, grouped by job, with word-level diffs so the reviewer
// sees exactly what would change.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"jobproof/internal/models"
)

// contextRadius is the number of bytes of surrounding text shown on each
// side of a flagged span.
const contextRadius = 30

// Finding is one manual-review match, prepared for display.
type Finding struct {
	Original    string `json:"original" yaml:"original"`
	Replacement string `json:"replacement" yaml:"replacement"`
	Reason      string `json:"reason" yaml:"reason"`
	RuleID      string `json:"rule_id" yaml:"rule_id"`
	Context     string `json:"context" yaml:"context"`
}

// Entry is the review material for one field.
type Entry struct {
	Field     models.TextField `json:"field" yaml:"field"`
	Findings  []Finding        `json:"findings" yaml:"findings"`
	Suggested string           `json:"suggested" yaml:"suggested"`
	Degraded  bool             `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// Report is the full manual-review report for one run.
type Report struct {
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Build collects the manual-review findings from a batch of decisions.
// Decisions without review matches contribute nothing.
func Build(decisions []models.CorrectionDecision) *Report {
	r := &Report{}
	for _, d := range decisions {
		review := d.ManualReview()
		if len(review) == 0 {
			continue
		}

		entry := Entry{
			Field:     d.Field,
			Suggested: suggestedText(d),
			Degraded:  d.Degraded,
		}
		for _, m := range review {
			entry.Findings = append(entry.Findings, Finding{
				Original:    d.Field.Text[m.Start:m.End],
				Replacement: m.Replacement,
				Reason:      m.Reason,
				RuleID:      m.RuleID,
				Context:     contextSnippet(d.Field.Text, m.Start, m.End),
			})
		}
		r.Entries = append(r.Entries, entry)
	}

	sort.SliceStable(r.Entries, func(i, j int) bool {
		a, b := r.Entries[i].Field, r.Entries[j].Field
		if a.JobNumber != b.JobNumber {
			return a.JobNumber < b.JobNumber
		}
		return a.TaskID < b.TaskID
	})
	return r
}

// Empty reports whether there is nothing to review.
func (r *Report) Empty() bool { return len(r.Entries) == 0 }

// Render writes the human-readable report.
func (r *Report) Render(w io.Writer) error {
	if r.Empty() {
		_, err := fmt.Fprintln(w, "Nothing needs manual review.")
		return err
	}

	total := 0
	for _, e := range r.Entries {
		total += len(e.Findings)
	}
	if _, err := fmt.Fprintf(w, "Manual review: %d finding(s) in %d field(s)\n", total, len(r.Entries)); err != nil {
		return err
	}

	lastJob := ""
	for _, e := range r.Entries {
		if e.Field.JobNumber != lastJob {
			lastJob = e.Field.JobNumber
			if _, err := fmt.Fprintf(w, "\nJob %s\n", lastJob); err != nil {
				return err
			}
		}
		if err := renderEntry(w, e); err != nil {
			return err
		}
	}
	return nil
}

func renderEntry(w io.Writer, e Entry) error {
	header := fmt.Sprintf("  %s", fieldLabel(e.Field))
	if e.Degraded {
		header += "  (spelling-only check)"
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for _, f := range e.Findings {
		if _, err := fmt.Fprintf(w, "    %q -> %q  [%s]\n", f.Original, f.Replacement, f.Reason); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "      ...%s...\n", f.Context); err != nil {
			return err
		}
	}

	for _, line := range DiffLines(e.Field.Text, e.Suggested) {
		if _, err := fmt.Fprintf(w, "    %s\n", line); err != nil {
			return err
		}
	}
	return nil
}

// fieldLabel describes a field so a reviewer can find it in the UI.
func fieldLabel(f models.TextField) string {
	switch f.Kind {
	case models.FieldTimesheetNote:
		parts := []string{"timesheet note"}
		if f.Employee != "" {
			parts = append(parts, f.Employee)
		}
		if f.WorkDate != "" {
			parts = append(parts, f.WorkDate)
		}
		return strings.Join(parts, ", ")
	default:
		label := "task " + f.TaskID
		if f.TaskName != "" {
			label += " " + fmt.Sprintf("%q", f.TaskName)
		}
		return label + " (description)"
	}
}

// suggestedText applies every surviving match, review ones included, so
// the reviewer sees the fully corrected candidate text.
func suggestedText(d models.CorrectionDecision) string {
	out := d.Field.Text
	for i := len(d.Matches) - 1; i >= 0; i-- {
		m := d.Matches[i]
		if m.Replacement == "" {
			continue
		}
		out = out[:m.Start] + m.Replacement + out[m.End:]
	}
	return out
}

// contextSnippet returns the text around a span, trimmed to word
// boundaries where possible.
func contextSnippet(text string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	} else if i := strings.IndexByte(text[lo:start], ' '); i >= 0 {
		lo += i + 1
	}
	hi := end + contextRadius
	if hi > len(text) {
		hi = len(text)
	} else if i := strings.LastIndexByte(text[end:hi], ' '); i >= 0 {
		hi = end + i
	}
	return text[lo:hi]
}

// DiffLines renders a two-line word diff between the original and the
// suggested text, or nothing when they are equal. Deletions are wrapped
// in [-...-], insertions in {+...+}.
func DiffLines(original, suggested string) []string {
	if original == suggested {
		return nil
	}

	a := strings.Fields(original)
	b := strings.Fields(suggested)
	segs := diffWords(a, b)

	var oldLine, newLine []string
	for _, s := range segs {
		switch s.kind {
		case segEqual:
			oldLine = append(oldLine, s.words...)
			newLine = append(newLine, s.words...)
		case segDelete:
			oldLine = append(oldLine, "[-"+strings.Join(s.words, " ")+"-]")
		case segInsert:
			newLine = append(newLine, "{+"+strings.Join(s.words, " ")+"+}")
		}
	}
	return []string{
		"- " + strings.Join(oldLine, " "),
		"+ " + strings.Join(newLine, " "),
	}
}

type segKind int

const (
	segEqual segKind = iota
	segDelete
	segInsert
)

type segment struct {
	kind  segKind
	words []string
}

// diffWords computes a word-level diff of a and b via the classic LCS
// table. Fields are short, so the quadratic table is fine.
func diffWords(a, b []string) []segment {
	m, n := len(a), len(b)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var segs []segment
	appendSeg := func(kind segKind, word string) {
		if len(segs) > 0 && segs[len(segs)-1].kind == kind {
			segs[len(segs)-1].words = append(segs[len(segs)-1].words, word)
			return
		}
		segs = append(segs, segment{kind: kind, words: []string{word}})
	}

	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			appendSeg(segEqual, a[i])
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			appendSeg(segDelete, a[i])
			i++
		default:
			appendSeg(segInsert, b[j])
			j++
		}
	}
	for ; i < m; i++ {
		appendSeg(segDelete, a[i])
	}
	for ; j < n; j++ {
		appendSeg(segInsert, b[j])
	}
	return segs
}
