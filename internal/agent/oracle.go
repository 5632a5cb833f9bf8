// Package agent drives a claimed subtask to a terminal status with an
// observe, decide, act loop bounded by step and retry ceilings.
package agent

import (
	"context"

	"github.com/webpilot/webpilot/pkg/models"
)

// DecisionRequest carries everything the decision oracle needs to choose
// the next step for a subtask.
type DecisionRequest struct {
	// Goal is the overall task objective.
	Goal string
	// SubtaskGoal is the objective of the subtask being executed.
	SubtaskGoal string
	// SubtaskDescription is the short description of the subtask.
	SubtaskDescription string
	// PlanContext describes where the subtask sits in the plan.
	PlanContext string
	// History is the ordered step history recorded so far.
	History []models.Step
	// Screenshot is the current environment snapshot, if available.
	Screenshot []byte
	// CurrentURL is the last known page location, if tracked.
	CurrentURL string
	// Extraction is data gathered earlier in this task, if any.
	Extraction string
}

// DecisionOracle produces the next step for a subtask. Implementations
// are expected to be slow, remote, and fallible; the execution loop
// treats every call as a suspension point and every error as transient.
type DecisionOracle interface {
	NextStep(ctx context.Context, req DecisionRequest) (models.Step, error)
}
