package store

import (
	"context"
	"path/filepath"
	"testing"

	"jobproof/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDecision() models.CorrectionDecision {
	text := "did'nt check the outler"
	return models.CorrectionDecision{
		Field: models.TextField{
			TaskID: "T1", JobNumber: "J100",
			Kind: models.FieldDescription, Text: text,
		},
		Matches: []models.ResolvedMatch{
			{
				Match: models.Match{Start: 0, End: 6, RuleID: "shorthand/did'nt",
					Source: models.SourceCustomShorthand, Replacement: "didn't",
					Confidence: models.ConfidenceHigh},
				Classification: models.ClassAutoApply,
			},
			{
				Match: models.Match{Start: 17, End: 23, RuleID: "spelling/outler",
					Source: models.SourceFallbackSpelling, Replacement: "outlet",
					Confidence: models.ConfidenceMedium},
				Classification: models.ClassManualReview,
				Reason:         "medium confidence",
			},
		},
		CorrectedText: "didn't check the outler",
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "check")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := s.FinishRun(ctx, runID, RunStats{
		FieldsTotal: 5, AutoApplied: 2, ManualReview: 1, Degraded: true,
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("want 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.ID != runID || r.Mode != "check" || !r.Degraded ||
		r.FieldsTotal != 5 || r.AutoApplied != 2 || r.ManualReview != 1 {
		t.Errorf("run = %+v", r)
	}
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _ := s.BeginRun(ctx, "check")
	second, _ := s.BeginRun(ctx, "apply")

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second || runs[1].ID != first {
		t.Errorf("runs = %+v", runs)
	}

	limited, err := s.RecentRuns(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second {
		t.Errorf("limited = %+v", limited)
	}
}

func TestRecordDecision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.BeginRun(ctx, "apply")
	if err := s.RecordDecision(ctx, runID, sampleDecision(), true); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	decisions, err := s.RunDecisions(ctx, runID)
	if err != nil {
		t.Fatalf("RunDecisions: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("want 2 decisions, got %d", len(decisions))
	}

	auto := decisions[0]
	if auto.Original != "did'nt" || auto.Replacement != "didn't" || !auto.Applied {
		t.Errorf("auto decision = %+v", auto)
	}
	review := decisions[1]
	if review.Original != "outler" || review.Applied {
		t.Errorf("review decision = %+v", review)
	}
	if review.Reason != "medium confidence" {
		t.Errorf("reason = %q", review.Reason)
	}
}

func TestRecordDecision_DryRunNeverApplied(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.BeginRun(ctx, "check")
	if err := s.RecordDecision(ctx, runID, sampleDecision(), false); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	decisions, err := s.RunDecisions(ctx, runID)
	if err != nil {
		t.Fatalf("RunDecisions: %v", err)
	}
	for _, d := range decisions {
		if d.Applied {
			t.Errorf("dry-run decision marked applied: %+v", d)
		}
	}
}

func TestRecordDecision_EmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.BeginRun(ctx, "check")
	d := models.CorrectionDecision{Field: models.TextField{Text: "clean"}}
	if err := s.RecordDecision(ctx, runID, d, true); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	decisions, _ := s.RunDecisions(ctx, runID)
	if len(decisions) != 0 {
		t.Errorf("clean decision should record nothing, got %+v", decisions)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "audit.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()
}
