package aroflo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"jobproof/internal/sanitize"
	"jobproof/internal/transport"
)

// Task is a job/task record as returned by the tasks zone.
type Task struct {
	TaskID      string `json:"taskid"`
	TaskName    string `json:"taskname"`
	JobNumber   string `json:"jobnumber"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Timesheet is one labour entry as returned by the timesheets zone.
type Timesheet struct {
	TimesheetID   string        `json:"timesheetid"`
	Note          string        `json:"note"`
	WorkDate      string        `json:"workdate"`
	StartDateTime string        `json:"startdatetime"`
	Task          TimesheetTask `json:"task"`
	User          TimesheetUser `json:"user"`
}

// TimesheetTask links a timesheet back to its task and job.
type TimesheetTask struct {
	TaskID    string `json:"taskid"`
	JobNumber string `json:"jobnumber"`
}

// TimesheetUser identifies who logged the entry.
type TimesheetUser struct {
	GivenNames string `json:"givennames"`
	Surname    string `json:"surname"`
}

// Name returns the user's display name.
func (u TimesheetUser) Name() string {
	return strings.TrimSpace(u.GivenNames + " " + u.Surname)
}

// Substatus is one entry from the substatuses zone.
type Substatus struct {
	SubstatusID string `json:"substatusid"`
	Substatus   string `json:"substatus"`
}

// flexibleList tolerates the service returning a single object where a
// list is expected (it collapses one-element collections).
type flexibleList[T any] []T

func (l *flexibleList[T]) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = []T{single}
	return nil
}

// CompletedTasks fetches one page of tasks with status Completed.
func (c *Client) CompletedTasks(ctx context.Context, page int) ([]Task, error) {
	raw, err := c.Request(ctx, "tasks", map[string]string{
		"where": "and|status|=|Completed",
		"page":  fmt.Sprintf("%d", page),
	})
	if err != nil {
		return nil, err
	}

	var zr struct {
		Tasks flexibleList[Task] `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &zr); err != nil {
		return nil, &transport.MalformedResponseError{Reason: fmt.Sprintf("decoding tasks: %v", err)}
	}
	return zr.Tasks, nil
}

// Timesheets fetches one page of timesheet entries.
func (c *Client) Timesheets(ctx context.Context, page int) ([]Timesheet, error) {
	raw, err := c.Request(ctx, "timesheets", map[string]string{
		"page": fmt.Sprintf("%d", page),
	})
	if err != nil {
		return nil, err
	}

	var zr struct {
		Timesheets flexibleList[Timesheet] `json:"timesheets"`
	}
	if err := json.Unmarshal(raw, &zr); err != nil {
		return nil, &transport.MalformedResponseError{Reason: fmt.Sprintf("decoding timesheets: %v", err)}
	}
	return zr.Timesheets, nil
}

// Substatuses fetches all available task substatuses.
func (c *Client) Substatuses(ctx context.Context) ([]Substatus, error) {
	raw, err := c.Request(ctx, "substatuses", nil)
	if err != nil {
		return nil, err
	}

	var zr struct {
		Substatuses flexibleList[Substatus] `json:"substatuses"`
	}
	if err := json.Unmarshal(raw, &zr); err != nil {
		return nil, &transport.MalformedResponseError{Reason: fmt.Sprintf("decoding substatuses: %v", err)}
	}
	return zr.Substatuses, nil
}

// SubstatusID resolves a substatus name (case-insensitive) to its ID.
func (c *Client) SubstatusID(ctx context.Context, name string) (string, error) {
	subs, err := c.Substatuses(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range subs {
		if strings.EqualFold(s.Substatus, name) {
			return s.SubstatusID, nil
		}
	}
	return "", fmt.Errorf("substatus %q not found", name)
}

// UpdateTaskDescription writes a corrected description back to a task.
// The text is sanitized and XML-escaped before it enters the payload.
//
// There is deliberately no timesheet-note write: the timesheets zone
// acknowledges note updates (updatetotal=1) without persisting them, so
// timesheet findings always go to the manual-review report instead.
func (c *Client) UpdateTaskDescription(ctx context.Context, taskID, description string) error {
	postxml := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<aroflo>
    <task>
        <taskid>%s</taskid>
        <description>%s</description>
    </task>
</aroflo>`, sanitize.EscapeXML(taskID), sanitize.EscapeXML(sanitize.ForRemoteWrite(description)))

	varString := "zone=tasks&postxml=" + percentEncode(postxml)
	_, err := c.post(ctx, "aroflo update description", varString)
	return err
}

// UpdateTaskSubstatus sets a task's substatus.
func (c *Client) UpdateTaskSubstatus(ctx context.Context, taskID, substatusID string) error {
	postxml := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<aroflo>
    <task>
        <taskid>%s</taskid>
        <substatus>
            <substatusid>%s</substatusid>
        </substatus>
    </task>
</aroflo>`, sanitize.EscapeXML(taskID), sanitize.EscapeXML(substatusID))

	varString := "zone=tasks&postxml=" + percentEncode(postxml)
	_, err := c.post(ctx, "aroflo update substatus", varString)
	return err
}

// MarkTaskReadyToInvoice resolves the Ready to Invoice substatus and
// applies it to the task.
func (c *Client) MarkTaskReadyToInvoice(ctx context.Context, taskID string) error {
	id, err := c.SubstatusID(ctx, "Ready to Invoice")
	if err != nil {
		return err
	}
	return c.UpdateTaskSubstatus(ctx, taskID, id)
}
