// Package models defines the data model shared across the proofreading
// pipeline: text fields pulled from job records, candidate matches, and
// resolved correction decisions.
package models

// LanguageVariant is the language variant all text is checked against.
// Job records come from Australian trade businesses, so this is fixed.
const LanguageVariant = "en-AU"

// FieldKind identifies which attribute of a job record a TextField holds.
type FieldKind string

const (
	// FieldDescription is a task description. The upstream API supports
	// writing corrected descriptions back.
	FieldDescription FieldKind = "description"

	// FieldTimesheetNote is a labour/timesheet note. The upstream API
	// acknowledges writes to these but does not persist them, so they are
	// never written remotely.
	FieldTimesheetNote FieldKind = "timesheet-note"
)

// RemotelyWritable reports whether corrected text for this field kind can
// be pushed back through the job-management API.
func (k FieldKind) RemotelyWritable() bool {
	return k == FieldDescription
}

// TextField is an immutable snapshot of one correctable text attribute of
// a job/task record, taken at analysis time.
type TextField struct {
	// TaskID identifies the owning task in the job-management service.
	TaskID string `json:"task_id" yaml:"task_id"`

	// TaskName is the human-readable task name, used in reports.
	TaskName string `json:"task_name" yaml:"task_name"`

	// JobNumber groups tasks and timesheets belonging to one job.
	JobNumber string `json:"job_number" yaml:"job_number"`

	// Kind says which attribute this text came from.
	Kind FieldKind `json:"kind" yaml:"kind"`

	// Text is the raw field content as fetched.
	Text string `json:"text" yaml:"text"`

	// Timesheet metadata, set only for FieldTimesheetNote. Used by the
	// manual-review report so a human can locate the note in the UI.
	TimesheetID string `json:"timesheet_id,omitempty" yaml:"timesheet_id,omitempty"`
	Employee    string `json:"employee,omitempty" yaml:"employee,omitempty"`
	WorkDate    string `json:"work_date,omitempty" yaml:"work_date,omitempty"`
	StartTime   string `json:"start_time,omitempty" yaml:"start_time,omitempty"`
}
