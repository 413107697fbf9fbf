// Package engine is the correction decision core. For each text field it
// gathers candidate matches from the shorthand tables and one checker,
// resolves overlap conflicts, classifies every survivor as auto-apply or
// manual-review, and produces the corrected text.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jobproof/internal/checker"
	"jobproof/internal/models"
	"jobproof/internal/rules"
	"jobproof/internal/transport"
)

// Manual-review reasons, stable across runs so reports and the audit
// log stay comparable.
const (
	ReasonMediumConfidence = "medium confidence"
	ReasonTimesheetNote    = "timesheet notes are not writable"
	ReasonAmbiguous        = "ambiguous replacements"
)

// Engine resolves correction decisions for text fields.
type Engine struct {
	rules    *rules.Table
	remote   checker.TextChecker
	fallback checker.TextChecker
	breaker  *transport.Breaker
}

// New creates an Engine. remote may be nil to run offline-only; fallback
// must be set. The breaker tracks remote failures across the whole run,
// so one Engine is shared by all fields of a batch.
func New(tbl *rules.Table, remote, fallback checker.TextChecker, breaker *transport.Breaker) *Engine {
	if breaker == nil {
		breaker = transport.NewBreaker(transport.DefaultBreakerThreshold)
	}
	return &Engine{
		rules:    tbl,
		remote:   remote,
		fallback: fallback,
		breaker:  breaker,
	}
}

// Degraded reports whether the engine has switched to fallback-only mode
// for the remainder of the run.
func (e *Engine) Degraded() bool {
	return e.remote == nil || e.breaker.Open()
}

// Decide produces the correction decision for one field. The only error
// it returns is a fatal one (authentication); checker trouble degrades
// to the offline fallback instead of failing the field.
func (e *Engine) Decide(ctx context.Context, field models.TextField) (*models.CorrectionDecision, error) {
	decision := &models.CorrectionDecision{
		Field:         field,
		CorrectedText: field.Text,
	}
	if strings.TrimSpace(field.Text) == "" {
		return decision, nil
	}

	// Shorthand matches come straight from the curated table, so they
	// skip the whitelist/override pipeline that guards checker output.
	candidates := e.rules.ShorthandMatches(field.Text)

	checkerMatches, degraded, err := e.checkerMatches(ctx, field.Text)
	if err != nil {
		return nil, err
	}
	decision.Degraded = degraded

	for _, m := range checkerMatches {
		if err := m.Validate(len(field.Text)); err != nil {
			continue
		}
		if m.Replacement == field.Text[m.Start:m.End] {
			continue
		}
		if filtered, keep := e.rules.FilterCheckerMatch(m, field.Text); keep {
			candidates = append(candidates, filtered)
		}
	}

	resolved := resolve(candidates)
	decision.Matches = classify(resolved, field.Kind)
	decision.CorrectedText = applyMatches(field.Text, decision.Matches)
	return decision, nil
}

// checkerMatches runs the remote checker when the circuit allows it and
// falls back to the offline speller otherwise. The bool result says
// whether the field was checked in degraded (spelling-only) mode.
func (e *Engine) checkerMatches(ctx context.Context, text string) ([]models.Match, bool, error) {
	if e.remote != nil && !e.breaker.Open() {
		matches, err := e.remote.Check(ctx, text)
		if err == nil {
			e.breaker.RecordSuccess()
			return matches, false, nil
		}
		if transport.IsFatal(err) {
			return nil, false, fmt.Errorf("%s: %w", e.remote.Name(), err)
		}
		if transport.CountsTowardBreaker(err) {
			e.breaker.RecordFailure()
		}
	}

	matches, err := e.fallback.Check(ctx, text)
	if err != nil {
		// The offline checker has no failure modes worth degrading
		// further for; treat its matches as absent.
		return nil, true, nil
	}
	return matches, true, nil
}

// resolvedCandidate is a match that survived conflict resolution,
// possibly flagged ambiguous.
type resolvedCandidate struct {
	match     models.Match
	ambiguous bool
}

// resolve partitions candidates into overlap clusters and picks one
// winner per cluster: highest source priority, then smallest span, then
// earliest start. A cluster where the tie-breakers cannot separate two
// different replacements is flagged ambiguous.
func resolve(candidates []models.Match) []resolvedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]models.Match, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var out []resolvedCandidate
	cluster := []models.Match{sorted[0]}
	clusterEnd := sorted[0].End

	flush := func() {
		winner, ambiguous := pickWinner(cluster)
		out = append(out, resolvedCandidate{match: winner, ambiguous: ambiguous})
	}

	for _, m := range sorted[1:] {
		if m.Start < clusterEnd {
			cluster = append(cluster, m)
			if m.End > clusterEnd {
				clusterEnd = m.End
			}
			continue
		}
		flush()
		cluster = []models.Match{m}
		clusterEnd = m.End
	}
	flush()
	return out
}

// pickWinner selects the best match of one overlap cluster.
func pickWinner(cluster []models.Match) (models.Match, bool) {
	if len(cluster) == 1 {
		return cluster[0], false
	}

	best := cluster[0]
	for _, m := range cluster[1:] {
		if better(m, best) {
			best = m
		}
	}

	// Ambiguous when a distinct replacement ties the winner on both
	// priority and span; neither tie-breaker is principled enough to
	// auto-apply over the other.
	ambiguous := false
	for _, m := range cluster {
		if m == best {
			continue
		}
		if m.Source.Priority() == best.Source.Priority() &&
			m.Span() == best.Span() &&
			m.Replacement != best.Replacement {
			ambiguous = true
			break
		}
	}
	return best, ambiguous
}

// better reports whether a should win over b.
func better(a, b models.Match) bool {
	if a.Source.Priority() != b.Source.Priority() {
		return a.Source.Priority() > b.Source.Priority()
	}
	if a.Span() != b.Span() {
		return a.Span() < b.Span()
	}
	return a.Start < b.Start
}

// classify assigns the final classification to each surviving match.
// Auto-apply requires high confidence, a remotely writable field kind,
// and no ambiguity; everything else goes to manual review with a reason.
func classify(resolved []resolvedCandidate, kind models.FieldKind) []models.ResolvedMatch {
	var out []models.ResolvedMatch
	for _, rc := range resolved {
		rm := models.ResolvedMatch{Match: rc.match}
		switch {
		case rc.ambiguous:
			rm.Classification = models.ClassManualReview
			rm.Reason = ReasonAmbiguous
		case !kind.RemotelyWritable():
			rm.Classification = models.ClassManualReview
			rm.Reason = ReasonTimesheetNote
		case rc.match.Confidence != models.ConfidenceHigh:
			rm.Classification = models.ClassManualReview
			rm.Reason = ReasonMediumConfidence
		default:
			rm.Classification = models.ClassAutoApply
		}
		out = append(out, rm)
	}
	return out
}

// applyMatches builds the corrected text by applying auto-apply
// replacements right to left, so earlier offsets stay valid while later
// spans are rewritten.
func applyMatches(text string, matches []models.ResolvedMatch) string {
	out := text
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if m.Classification != models.ClassAutoApply {
			continue
		}
		out = out[:m.Start] + m.Replacement + out[m.End:]
	}
	return out
}
