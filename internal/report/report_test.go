package report

import (
	"strings"
	"testing"

	"jobproof/internal/models"
)

func reviewDecision() models.CorrectionDecision {
	text := "checked the outler in the shed"
	return models.CorrectionDecision{
		Field: models.TextField{
			TaskID:    "T1",
			TaskName:  "Shed fit-off",
			JobNumber: "J100",
			Kind:      models.FieldDescription,
			Text:      text,
		},
		Matches: []models.ResolvedMatch{{
			Match: models.Match{
				Start: 12, End: 18, RuleID: "spelling/outler",
				Source: models.SourceFallbackSpelling, Replacement: "outlet",
				Confidence: models.ConfidenceMedium,
			},
			Classification: models.ClassManualReview,
			Reason:         "medium confidence",
		}},
		CorrectedText: text,
		Degraded:      true,
	}
}

func TestBuild_SkipsCleanDecisions(t *testing.T) {
	clean := models.CorrectionDecision{
		Field:         models.TextField{TaskID: "T2", JobNumber: "J1", Kind: models.FieldDescription, Text: "all good"},
		CorrectedText: "all good",
	}
	autoOnly := models.CorrectionDecision{
		Field: models.TextField{TaskID: "T3", JobNumber: "J1", Kind: models.FieldDescription, Text: "did'nt"},
		Matches: []models.ResolvedMatch{{
			Match:          models.Match{Start: 0, End: 6, Replacement: "didn't", Source: models.SourceCustomShorthand, Confidence: models.ConfidenceHigh},
			Classification: models.ClassAutoApply,
		}},
		CorrectedText: "didn't",
	}

	r := Build([]models.CorrectionDecision{clean, autoOnly})
	if !r.Empty() {
		t.Errorf("decisions without review findings must not appear, got %+v", r.Entries)
	}
}

func TestBuild_Entry(t *testing.T) {
	r := Build([]models.CorrectionDecision{reviewDecision()})
	if len(r.Entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(r.Entries))
	}
	e := r.Entries[0]
	if len(e.Findings) != 1 {
		t.Fatalf("want 1 finding, got %d", len(e.Findings))
	}
	f := e.Findings[0]
	if f.Original != "outler" || f.Replacement != "outlet" {
		t.Errorf("finding = %+v", f)
	}
	if !strings.Contains(f.Context, "outler") {
		t.Errorf("context must include the flagged span, got %q", f.Context)
	}
	if e.Suggested != "checked the outlet in the shed" {
		t.Errorf("suggested = %q", e.Suggested)
	}
}

func TestBuild_SortsByJobThenTask(t *testing.T) {
	d1 := reviewDecision()
	d1.Field.JobNumber = "J200"
	d2 := reviewDecision()
	d2.Field.JobNumber = "J100"
	d2.Field.TaskID = "T9"
	d3 := reviewDecision()
	d3.Field.JobNumber = "J100"
	d3.Field.TaskID = "T2"

	r := Build([]models.CorrectionDecision{d1, d2, d3})
	var got []string
	for _, e := range r.Entries {
		got = append(got, e.Field.JobNumber+"/"+e.Field.TaskID)
	}
	want := []string{"J100/T2", "J100/T9", "J200/T1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRender(t *testing.T) {
	var sb strings.Builder
	r := Build([]models.CorrectionDecision{reviewDecision()})
	if err := r.Render(&sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"Manual review: 1 finding(s) in 1 field(s)",
		"Job J100",
		`"outler" -> "outlet"  [medium confidence]`,
		"(spelling-only check)",
		"[-outler-]",
		"{+outlet+}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Empty(t *testing.T) {
	var sb strings.Builder
	if err := (&Report{}).Render(&sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(sb.String(), "Nothing needs manual review") {
		t.Errorf("output = %q", sb.String())
	}
}

func TestDiffLines(t *testing.T) {
	lines := DiffLines("checked the outler in shed", "checked the outlet in shed")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %v", lines)
	}
	if lines[0] != "- checked the [-outler-] in shed" {
		t.Errorf("old line = %q", lines[0])
	}
	if lines[1] != "+ checked the {+outlet+} in shed" {
		t.Errorf("new line = %q", lines[1])
	}

	if got := DiffLines("same text", "same text"); got != nil {
		t.Errorf("equal texts must produce no diff, got %v", got)
	}
}
