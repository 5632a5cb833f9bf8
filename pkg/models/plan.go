package models

// Plan is the finalized decomposition of a goal, produced by the planner
// before a task is created. Subtask dependencies are declared by plan
// index; the store resolves them to subtask IDs at creation.
type Plan struct {
	// Summary is a short human-readable description of the plan.
	Summary string `json:"summary" yaml:"summary"`
	// Subtasks lists the planned subtasks in execution-preference order.
	Subtasks []PlannedSubtask `json:"subtasks" yaml:"subtasks"`
}

// PlannedSubtask is one entry of a plan prior to task creation.
type PlannedSubtask struct {
	// Description is a short human-readable description of the work.
	Description string `json:"description" yaml:"description"`
	// Goal is the concrete objective for the execution loop.
	Goal string `json:"goal" yaml:"goal"`
	// DependsOn lists zero-based plan indices that must complete first.
	DependsOn []int `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}
