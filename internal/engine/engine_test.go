package engine

import (
	"context"
	"errors"
	"testing"

	"jobproof/internal/models"
	"jobproof/internal/rules"
	"jobproof/internal/transport"
)

// stubChecker is a scripted TextChecker for engine tests.
type stubChecker struct {
	name    string
	matches []models.Match
	err     error
	calls   int
}

func (s *stubChecker) Check(_ context.Context, _ string) ([]models.Match, error) {
	s.calls++
	return s.matches, s.err
}

func (s *stubChecker) Name() string { return s.name }

func mustTable(t *testing.T) *rules.Table {
	t.Helper()
	tbl, err := rules.Default()
	if err != nil {
		t.Fatalf("loading default rules: %v", err)
	}
	return tbl
}

func descField(text string) models.TextField {
	return models.TextField{TaskID: "T1", JobNumber: "J100", Kind: models.FieldDescription, Text: text}
}

func noteField(text string) models.TextField {
	return models.TextField{TaskID: "T1", JobNumber: "J100", Kind: models.FieldTimesheetNote, Text: text}
}

func TestDecide_ShorthandAutoApply(t *testing.T) {
	e := New(mustTable(t), &stubChecker{name: "remote"}, &stubChecker{name: "fallback"}, nil)

	d, err := e.Decide(context.Background(), descField("I did'nt check the conection on the submain andi left"))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	want := "I didn't check the connection on the submain and I left"
	if d.CorrectedText != want {
		t.Errorf("corrected = %q\nwant        %q", d.CorrectedText, want)
	}
	if len(d.Matches) != 3 {
		t.Fatalf("want 3 matches, got %d: %+v", len(d.Matches), d.Matches)
	}
	for _, m := range d.Matches {
		if m.Classification != models.ClassAutoApply {
			t.Errorf("shorthand on a description should auto-apply, got %+v", m)
		}
	}
	if d.Degraded {
		t.Error("remote checker succeeded, decision must not be degraded")
	}
}

func TestDecide_TimesheetNoteNeverAutoApplies(t *testing.T) {
	e := New(mustTable(t), &stubChecker{name: "remote"}, &stubChecker{name: "fallback"}, nil)

	d, err := e.Decide(context.Background(), noteField("checked the conection"))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(d.Matches) != 1 {
		t.Fatalf("want 1 match, got %d", len(d.Matches))
	}
	m := d.Matches[0]
	if m.Classification != models.ClassManualReview || m.Reason != ReasonTimesheetNote {
		t.Errorf("timesheet match = %+v", m)
	}
	if d.Changed() {
		t.Error("timesheet notes must never be rewritten")
	}
}

func TestDecide_MediumConfidenceGoesToReview(t *testing.T) {
	text := "fitted the galvinised tray"
	fallback := &stubChecker{name: "fallback", matches: []models.Match{{
		Start: 11, End: 21, RuleID: "spelling/galvinised",
		Source: models.SourceFallbackSpelling, Replacement: "galvanised",
		Confidence: models.ConfidenceMedium,
	}}}
	e := New(mustTable(t), nil, fallback, nil)

	d, err := e.Decide(context.Background(), descField(text))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.Degraded {
		t.Error("offline-only run must be marked degraded")
	}
	if len(d.Matches) != 1 {
		t.Fatalf("want 1 match, got %d", len(d.Matches))
	}
	m := d.Matches[0]
	if m.Classification != models.ClassManualReview || m.Reason != ReasonMediumConfidence {
		t.Errorf("match = %+v", m)
	}
	if d.CorrectedText != text {
		t.Errorf("review-only decision must not change text, got %q", d.CorrectedText)
	}
}

func TestDecide_ShorthandOutranksChecker(t *testing.T) {
	text := "andi left early"
	remote := &stubChecker{name: "remote", matches: []models.Match{{
		Start: 0, End: 4, RuleID: "MORFOLOGIK_RULE_EN_AU",
		Source: models.SourceRemoteGrammar, Replacement: "and",
		Confidence: models.ConfidenceHigh,
	}}}
	e := New(mustTable(t), remote, &stubChecker{name: "fallback"}, nil)

	d, err := e.Decide(context.Background(), descField(text))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(d.Matches) != 1 {
		t.Fatalf("overlap must resolve to one winner, got %d", len(d.Matches))
	}
	if d.Matches[0].Source != models.SourceCustomShorthand {
		t.Errorf("shorthand must outrank the checker, winner = %+v", d.Matches[0])
	}
	if d.CorrectedText != "and I left early" {
		t.Errorf("corrected = %q", d.CorrectedText)
	}
}

func TestDecide_SmallerSpanWinsWithinSource(t *testing.T) {
	text := "the recieved goods"
	remote := &stubChecker{name: "remote", matches: []models.Match{
		{Start: 4, End: 18, RuleID: "LONG", Source: models.SourceRemoteGrammar,
			Replacement: "received goods", Confidence: models.ConfidenceHigh},
		{Start: 4, End: 12, RuleID: "SHORT", Source: models.SourceRemoteGrammar,
			Replacement: "received", Confidence: models.ConfidenceHigh},
	}}
	e := New(mustTable(t), remote, &stubChecker{name: "fallback"}, nil)

	d, err := e.Decide(context.Background(), descField(text))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(d.Matches) != 1 || d.Matches[0].RuleID != "SHORT" {
		t.Fatalf("smaller span must win, got %+v", d.Matches)
	}
	if d.CorrectedText != "the received goods" {
		t.Errorf("corrected = %q", d.CorrectedText)
	}
}

func TestDecide_AmbiguousTieGoesToReview(t *testing.T) {
	text := "the recieved goods"
	remote := &stubChecker{name: "remote", matches: []models.Match{
		{Start: 4, End: 12, RuleID: "A", Source: models.SourceRemoteGrammar,
			Replacement: "received", Confidence: models.ConfidenceHigh},
		{Start: 4, End: 12, RuleID: "B", Source: models.SourceRemoteGrammar,
			Replacement: "relieved", Confidence: models.ConfidenceHigh},
	}}
	e := New(mustTable(t), remote, &stubChecker{name: "fallback"}, nil)

	d, err := e.Decide(context.Background(), descField(text))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(d.Matches) != 1 {
		t.Fatalf("want one winner, got %d", len(d.Matches))
	}
	m := d.Matches[0]
	if m.Classification != models.ClassManualReview || m.Reason != ReasonAmbiguous {
		t.Errorf("ambiguous tie must go to review, got %+v", m)
	}
	if d.Changed() {
		t.Error("ambiguous correction must not be applied")
	}
}

func TestDecide_WhitelistSuppressesCheckerMatch(t *testing.T) {
	text := "ran cable to the submain"
	remote := &stubChecker{name: "remote", matches: []models.Match{{
		Start: 17, End: 24, RuleID: "MORFOLOGIK_RULE_EN_AU",
		Source: models.SourceRemoteGrammar, Replacement: "sub main",
		Confidence: models.ConfidenceHigh,
	}}}
	e := New(mustTable(t), remote, &stubChecker{name: "fallback"}, nil)

	d, err := e.Decide(context.Background(), descField(text))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(d.Matches) != 0 {
		t.Errorf("whitelisted term must be suppressed, got %+v", d.Matches)
	}
}

func TestDecide_BreakerDegradesMidRun(t *testing.T) {
	remote := &stubChecker{name: "remote", err: &transport.TransportError{Op: "check", Err: errors.New("timeout")}}
	fallback := &stubChecker{name: "fallback"}
	e := New(mustTable(t), remote, fallback, transport.NewBreaker(3))

	for i := 0; i < 3; i++ {
		d, err := e.Decide(context.Background(), descField("some field text"))
		if err != nil {
			t.Fatalf("Decide %d: %v", i, err)
		}
		if !d.Degraded {
			t.Errorf("field %d checked with a failing remote must be degraded", i)
		}
	}
	if !e.Degraded() {
		t.Fatal("three consecutive failures must trip the breaker")
	}

	callsBefore := remote.calls
	if _, err := e.Decide(context.Background(), descField("another field")); err != nil {
		t.Fatalf("Decide after trip: %v", err)
	}
	if remote.calls != callsBefore {
		t.Error("open circuit must not reach the remote checker")
	}
	if fallback.calls != 4 {
		t.Errorf("fallback calls = %d, want 4", fallback.calls)
	}
}

func TestDecide_AuthErrorIsFatal(t *testing.T) {
	remote := &stubChecker{name: "remote", err: &transport.AuthError{Msg: "bad key"}}
	e := New(mustTable(t), remote, &stubChecker{name: "fallback"}, nil)

	_, err := e.Decide(context.Background(), descField("some text"))
	var ae *transport.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("auth failure must abort, got %v", err)
	}
}

func TestDecide_EmptyText(t *testing.T) {
	remote := &stubChecker{name: "remote"}
	e := New(mustTable(t), remote, &stubChecker{name: "fallback"}, nil)

	d, err := e.Decide(context.Background(), descField("   "))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(d.Matches) != 0 || remote.calls != 0 {
		t.Error("blank fields must be skipped without checker calls")
	}
}

func TestDecide_Idempotent(t *testing.T) {
	e := New(mustTable(t), &stubChecker{name: "remote"}, &stubChecker{name: "fallback"}, nil)

	first, err := e.Decide(context.Background(), descField("did'nt fix the conection"))
	if err != nil {
		t.Fatalf("first Decide: %v", err)
	}
	if !first.Changed() {
		t.Fatal("first pass should correct the text")
	}

	second, err := e.Decide(context.Background(), descField(first.CorrectedText))
	if err != nil {
		t.Fatalf("second Decide: %v", err)
	}
	if second.Changed() {
		t.Errorf("second pass changed %q to %q", first.CorrectedText, second.CorrectedText)
	}
}

func TestDecide_NoOpReplacementDropped(t *testing.T) {
	text := "all good"
	remote := &stubChecker{name: "remote", matches: []models.Match{{
		Start: 0, End: 3, RuleID: "X", Source: models.SourceRemoteGrammar,
		Replacement: "all", Confidence: models.ConfidenceHigh,
	}}}
	e := New(mustTable(t), remote, &stubChecker{name: "fallback"}, nil)

	d, err := e.Decide(context.Background(), descField(text))
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(d.Matches) != 0 {
		t.Errorf("replacement identical to the span must be dropped, got %+v", d.Matches)
	}
}
