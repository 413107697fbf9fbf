package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"jobproof/internal/models"
)

// Run is one recorded proofreading run.
type Run struct {
	ID           int64
	Mode         string // "check" or "apply"
	StartedAt    time.Time
	FinishedAt   time.Time
	Degraded     bool
	FieldsTotal  int
	AutoApplied  int
	ManualReview int
	Error        string
}

// Decision is one recorded match outcome within a run.
type Decision struct {
	ID             int64
	RunID          int64
	JobNumber      string
	TaskID         string
	FieldKind      string
	RuleID         string
	Source         string
	Confidence     string
	Classification string
	Reason         string
	Original       string
	Replacement    string
	Applied        bool
	CreatedAt      time.Time
}

// Store is the SQLite-backed audit log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		degraded INTEGER NOT NULL DEFAULT 0,
		fields_total INTEGER NOT NULL DEFAULT 0,
		auto_applied INTEGER NOT NULL DEFAULT 0,
		manual_review INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		job_number TEXT NOT NULL,
		task_id TEXT NOT NULL,
		field_kind TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		source TEXT NOT NULL,
		confidence TEXT NOT NULL,
		classification TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		original TEXT NOT NULL,
		replacement TEXT NOT NULL,
		applied INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_task ON decisions(task_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing audit schema: %w", err)
	}
	return nil
}

// BeginRun records the start of a run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, mode string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (mode, started_at) VALUES (?, ?)`,
		mode, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("recording run start: %w", err)
	}
	return res.LastInsertId()
}

// RunStats are the totals written when a run finishes.
type RunStats struct {
	Degraded     bool
	FieldsTotal  int
	AutoApplied  int
	ManualReview int
	Error        string
}

// FinishRun records a run's end time and totals.
func (s *Store) FinishRun(ctx context.Context, runID int64, stats RunStats) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, degraded = ?, fields_total = ?,
		 auto_applied = ?, manual_review = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), boolInt(stats.Degraded), stats.FieldsTotal,
		stats.AutoApplied, stats.ManualReview, stats.Error, runID)
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return nil
}

// RecordDecision writes every resolved match of one decision. applied
// says whether auto-apply matches were actually written back (false in
// dry-run mode).
func (s *Store) RecordDecision(ctx context.Context, runID int64, d models.CorrectionDecision, applied bool) error {
	if len(d.Matches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning decision transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO decisions
		(run_id, job_number, task_id, field_kind, rule_id, source, confidence,
		 classification, reason, original, replacement, applied, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing decision insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range d.Matches {
		wasApplied := applied && m.Classification == models.ClassAutoApply
		_, err := stmt.ExecContext(ctx,
			runID, d.Field.JobNumber, d.Field.TaskID, string(d.Field.Kind),
			m.RuleID, string(m.Source), string(m.Confidence),
			string(m.Classification), m.Reason,
			d.Field.Text[m.Start:m.End], m.Replacement,
			boolInt(wasApplied), now)
		if err != nil {
			return fmt.Errorf("recording decision: %w", err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, started_at, COALESCE(finished_at, started_at),
		 degraded, fields_total, auto_applied, manual_review, error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var degraded int
		if err := rows.Scan(&r.ID, &r.Mode, &r.StartedAt, &r.FinishedAt,
			&degraded, &r.FieldsTotal, &r.AutoApplied, &r.ManualReview, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Degraded = degraded != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunDecisions returns every decision recorded for one run, in insert
// order.
func (s *Store) RunDecisions(ctx context.Context, runID int64) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, job_number, task_id, field_kind, rule_id, source,
		 confidence, classification, reason, original, replacement, applied, created_at
		 FROM decisions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var applied int
		if err := rows.Scan(&d.ID, &d.RunID, &d.JobNumber, &d.TaskID, &d.FieldKind,
			&d.RuleID, &d.Source, &d.Confidence, &d.Classification, &d.Reason,
			&d.Original, &d.Replacement, &applied, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		d.Applied = applied != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
