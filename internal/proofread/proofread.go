// Package proofread orchestrates a run: fetch completed tasks and
// timesheets, decide corrections for every text field, optionally write
// corrected descriptions back and advance task substatus, and record the
// whole run in the audit log.
package proofread

import (
	"context"
	"fmt"

	"jobproof/internal/aroflo"
	"jobproof/internal/engine"
	"jobproof/internal/models"
	"jobproof/internal/store"
	"jobproof/internal/transport"
)

// API is the slice of the job-management client the runner needs.
type API interface {
	CompletedTasks(ctx context.Context, page int) ([]aroflo.Task, error)
	Timesheets(ctx context.Context, page int) ([]aroflo.Timesheet, error)
	UpdateTaskDescription(ctx context.Context, taskID, description string) error
	UpdateTaskSubstatus(ctx context.Context, taskID, substatusID string) error
	SubstatusID(ctx context.Context, name string) (string, error)
}

// Options selects what a run covers and whether it writes.
type Options struct {
	// Apply enables write-back. Without it the run is a dry run: every
	// outcome is decided and recorded, nothing is sent to the service.
	Apply bool

	// JobNumber restricts the run to one job. Empty means all.
	JobNumber string

	// IncludeTimesheets adds timesheet notes to the run. Their findings
	// only ever reach the manual-review report.
	IncludeTimesheets bool

	// MaxPages caps paging through the task and timesheet zones.
	MaxPages int

	// Substatus is applied to corrected tasks after an apply run. Empty
	// disables the substatus update.
	Substatus string
}

// Summary is the outcome of one run.
type Summary struct {
	RunID         int64 `json:"run_id,omitempty"`
	FieldsChecked int   `json:"fields_checked"`
	AutoApplied   int   `json:"auto_applied"`
	ManualReview  int   `json:"manual_review"`
	TasksUpdated  int   `json:"tasks_updated"`
	WriteFailures int   `json:"write_failures"`
	Degraded      bool  `json:"degraded,omitempty"`

	// Decisions are every field's outcome, for reporting.
	Decisions []models.CorrectionDecision `json:"-"`
}

// Runner executes proofreading runs.
type Runner struct {
	api    API
	engine *engine.Engine
	audit  *store.Store // nil disables the audit log
}

// NewRunner creates a Runner. audit may be nil.
func NewRunner(api API, eng *engine.Engine, audit *store.Store) *Runner {
	return &Runner{api: api, engine: eng, audit: audit}
}

// Run executes one proofreading run. It returns a fatal error only;
// transient per-field trouble degrades or is counted in the summary.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}

	mode := "check"
	if opts.Apply {
		mode = "apply"
	}

	var runID int64
	if r.audit != nil {
		id, err := r.audit.BeginRun(ctx, mode)
		if err != nil {
			return nil, err
		}
		runID = id
	}

	summary, runErr := r.run(ctx, opts, runID)

	if r.audit != nil {
		stats := store.RunStats{
			Degraded:     summary.Degraded,
			FieldsTotal:  summary.FieldsChecked,
			AutoApplied:  summary.AutoApplied,
			ManualReview: summary.ManualReview,
		}
		if runErr != nil {
			stats.Error = runErr.Error()
		}
		if err := r.audit.FinishRun(ctx, runID, stats); err != nil && runErr == nil {
			runErr = err
		}
	}
	return summary, runErr
}

func (r *Runner) run(ctx context.Context, opts Options, runID int64) (*Summary, error) {
	summary := &Summary{RunID: runID}

	fields, err := r.fetchFields(ctx, opts)
	if err != nil {
		return summary, err
	}

	var substatusID string
	if opts.Apply && opts.Substatus != "" {
		substatusID, err = r.api.SubstatusID(ctx, opts.Substatus)
		if err != nil {
			return summary, fmt.Errorf("resolving substatus %q: %w", opts.Substatus, err)
		}
	}

	for _, field := range fields {
		decision, err := r.engine.Decide(ctx, field)
		if err != nil {
			return summary, err
		}

		summary.FieldsChecked++
		summary.AutoApplied += len(decision.AutoApplied())
		summary.ManualReview += len(decision.ManualReview())
		summary.Degraded = summary.Degraded || decision.Degraded
		summary.Decisions = append(summary.Decisions, *decision)

		applied := false
		if opts.Apply && decision.Changed() && field.Kind.RemotelyWritable() {
			if err := r.applyDecision(ctx, decision, substatusID); err != nil {
				if transport.IsFatal(err) {
					return summary, err
				}
				summary.WriteFailures++
			} else {
				applied = true
				summary.TasksUpdated++
			}
		}

		if r.audit != nil {
			if err := r.audit.RecordDecision(ctx, summary.RunID, *decision, applied); err != nil {
				return summary, err
			}
		}
	}
	return summary, nil
}

// applyDecision writes one corrected description back and advances the
// task substatus when configured.
func (r *Runner) applyDecision(ctx context.Context, d *models.CorrectionDecision, substatusID string) error {
	if err := r.api.UpdateTaskDescription(ctx, d.Field.TaskID, d.CorrectedText); err != nil {
		return err
	}
	if substatusID != "" {
		if err := r.api.UpdateTaskSubstatus(ctx, d.Field.TaskID, substatusID); err != nil {
			return err
		}
	}
	return nil
}

// fetchFields pages through tasks (and optionally timesheets) and builds
// the field list for the run.
func (r *Runner) fetchFields(ctx context.Context, opts Options) ([]models.TextField, error) {
	var fields []models.TextField
	taskJobs := make(map[string]string)

	for page := 1; page <= opts.MaxPages; page++ {
		tasks, err := r.api.CompletedTasks(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetching tasks page %d: %w", page, err)
		}
		if len(tasks) == 0 {
			break
		}
		for _, t := range tasks {
			taskJobs[t.TaskID] = t.JobNumber
			if opts.JobNumber != "" && t.JobNumber != opts.JobNumber {
				continue
			}
			fields = append(fields, models.TextField{
				TaskID:    t.TaskID,
				TaskName:  t.TaskName,
				JobNumber: t.JobNumber,
				Kind:      models.FieldDescription,
				Text:      t.Description,
			})
		}
	}

	if !opts.IncludeTimesheets {
		return fields, nil
	}

	for page := 1; page <= opts.MaxPages; page++ {
		sheets, err := r.api.Timesheets(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetching timesheets page %d: %w", page, err)
		}
		if len(sheets) == 0 {
			break
		}
		for _, ts := range sheets {
			job := ts.Task.JobNumber
			if job == "" {
				job = taskJobs[ts.Task.TaskID]
			}
			// Only timesheets belonging to tasks in this run.
			if _, known := taskJobs[ts.Task.TaskID]; !known {
				continue
			}
			if opts.JobNumber != "" && job != opts.JobNumber {
				continue
			}
			fields = append(fields, models.TextField{
				TaskID:      ts.Task.TaskID,
				JobNumber:   job,
				Kind:        models.FieldTimesheetNote,
				Text:        ts.Note,
				TimesheetID: ts.TimesheetID,
				Employee:    ts.User.Name(),
				WorkDate:    ts.WorkDate,
				StartTime:   ts.StartDateTime,
			})
		}
	}
	return fields, nil
}
