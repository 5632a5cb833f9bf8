// Package models defines the shared data model for webpilot tasks,
// subtasks, plans, and execution steps.
package models

import "time"

// Status represents the lifecycle state of a task or subtask.
type Status string

const (
	// StatusPending indicates work that has not started.
	StatusPending Status = "pending"
	// StatusInProgress indicates work that has been claimed by a worker.
	StatusInProgress Status = "in_progress"
	// StatusDone indicates work that completed successfully.
	StatusDone Status = "done"
	// StatusFailed indicates work that terminated with an error.
	StatusFailed Status = "failed"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses that a subtask never leaves.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Task is the top-level unit of work derived from one user goal and its plan.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Goal is the original high-level objective. Immutable after creation.
	Goal string `json:"goal"`
	// Summary is the human-readable plan summary. Immutable after creation.
	Summary string `json:"summary"`
	// Subtasks holds the plan's subtasks in plan order.
	Subtasks []*Subtask `json:"subtasks"`
	// Status is the aggregate state derived from the subtask statuses.
	Status Status `json:"status"`
	// SessionID is the handle to the browser session bound to this task.
	// Opaque to the orchestration core.
	SessionID string `json:"session_id,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
}

// Subtask is one dependency-graph node within a task, executed
// independently to completion.
type Subtask struct {
	// ID is unique within the owning task (subtask-1, subtask-2, ...).
	ID string `json:"id"`
	// Description is a short human-readable description of the work.
	Description string `json:"description"`
	// Goal is the concrete objective the execution loop drives toward.
	Goal string `json:"goal"`
	// Dependencies lists subtask IDs that must reach done before this
	// subtask becomes eligible.
	Dependencies []string `json:"dependencies,omitempty"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// Result is populated when the subtask reaches a terminal status.
	Result *SubtaskResult `json:"result,omitempty"`
}

// SubtaskResult captures the outcome of one subtask execution.
type SubtaskResult struct {
	// Status is the terminal status the execution loop settled on.
	Status Status `json:"status"`
	// Steps is the ordered step history recorded during execution.
	Steps []Step `json:"steps"`
	// Retries is the number of fault/repetition retries consumed.
	Retries int `json:"retries"`
	// Error holds the human-readable failure detail for failed subtasks.
	Error string `json:"error,omitempty"`
	// Extraction holds data gathered by EXTRACT steps, carried forward
	// as context for later subtasks.
	Extraction string `json:"extraction,omitempty"`
	// CompletedAt is when the terminal status was reached.
	CompletedAt time.Time `json:"completed_at"`
}

// Progress is a read-only view of how far a task has advanced.
type Progress struct {
	// Completed is the number of subtasks in the done status.
	Completed int `json:"completed"`
	// Total is the number of subtasks in the plan.
	Total int `json:"total"`
	// Percentage is Completed/Total scaled to 0-100.
	Percentage float64 `json:"percentage"`
	// Subtasks lists per-subtask status in plan order.
	Subtasks []SubtaskProgress `json:"subtasks"`
}

// SubtaskProgress is one row of the progress view.
type SubtaskProgress struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}
