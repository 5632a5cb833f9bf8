package store

import "errors"

// ErrInvalidPlan indicates a plan that cannot be admitted: no subtasks,
// an out-of-range dependency index, or a cyclic dependency graph.
// Fatal to task creation; the caller must re-plan.
var ErrInvalidPlan = errors.New("invalid plan")

// ErrNotFound indicates an unknown task or subtask ID. Caller error;
// never swallowed.
var ErrNotFound = errors.New("not found")
