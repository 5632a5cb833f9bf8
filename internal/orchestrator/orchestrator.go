// Package orchestrator coordinates the task store and the execution loop
// into the poll, claim, execute, report cycle driven by external callers.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/webpilot/webpilot/internal/agent"
	"github.com/webpilot/webpilot/internal/store"
	"github.com/webpilot/webpilot/pkg/models"
)

// Planner produces a finalized plan for a goal. External collaborator.
type Planner interface {
	BuildPlan(ctx context.Context, goal, background string) (models.Plan, error)
}

// ContextSearcher gathers background material for planning. External
// collaborator; failures degrade planning quality but never block it.
type ContextSearcher interface {
	Search(ctx context.Context, goal string) (string, error)
}

// SessionManager owns the lifecycle of the browser sessions tasks run in.
type SessionManager interface {
	CreateSession(ctx context.Context) (string, error)
	CloseSession(ctx context.Context, sessionID string) error
}

// Journal receives task and transition records. Writes are best-effort;
// a journal failure never changes an execution outcome.
type Journal interface {
	RecordTask(task *models.Task) error
	RecordTransition(taskID, subtaskID string, status models.Status, detail string) error
}

// StatusReport is the caller-facing view of a task.
type StatusReport struct {
	TaskID   string          `json:"task_id"`
	Status   models.Status   `json:"status"`
	Progress models.Progress `json:"progress"`
}

// Options wires an Orchestrator's collaborators. Store and Loop are
// required; Planner is required for PlanTask; the rest are optional.
type Options struct {
	Store     store.Store
	Loop      *agent.Loop
	Planner   Planner
	Searcher  ContextSearcher
	Sessions  SessionManager
	Journal   Journal
	Logger    zerolog.Logger
	PollDelay time.Duration
	// OnSubtaskDone is called after each subtask reaches a terminal
	// status during RunTask. Optional, used for progress reporting.
	OnSubtaskDone func(subtask *models.Subtask, result *models.SubtaskResult)
}

// Orchestrator exposes the plan, claim, execute, and status operations.
// Each operation is safe to call repeatedly; claim reports "nothing
// eligible" as (nil, nil) rather than an error.
type Orchestrator struct {
	store         store.Store
	loop          *agent.Loop
	planner       Planner
	searcher      ContextSearcher
	sessions      SessionManager
	journal       Journal
	log           zerolog.Logger
	pollDelay     time.Duration
	onSubtaskDone func(*models.Subtask, *models.SubtaskResult)

	sleep func(time.Duration)
}

// New creates an Orchestrator from the given options.
func New(opts Options) *Orchestrator {
	if opts.PollDelay <= 0 {
		opts.PollDelay = time.Second
	}
	return &Orchestrator{
		store:         opts.Store,
		loop:          opts.Loop,
		planner:       opts.Planner,
		searcher:      opts.Searcher,
		sessions:      opts.Sessions,
		journal:       opts.Journal,
		log:           opts.Logger,
		pollDelay:     opts.PollDelay,
		onSubtaskDone: opts.OnSubtaskDone,
		sleep:         time.Sleep,
	}
}

// PlanTask gathers background context, obtains a plan for the goal, opens
// a session, and admits the task.
func (o *Orchestrator) PlanTask(ctx context.Context, goal string) (*models.Task, error) {
	if o.planner == nil {
		return nil, fmt.Errorf("no planner configured")
	}

	var background string
	if o.searcher != nil {
		found, err := o.searcher.Search(ctx, goal)
		if err != nil {
			o.log.Warn().Err(err).Msg("context search failed, planning without background")
		} else {
			background = found
		}
	}

	plan, err := o.planner.BuildPlan(ctx, goal, background)
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	return o.CreateTaskFromPlan(ctx, goal, plan)
}

// CreateTaskFromPlan admits an already-finalized plan, opening a session
// for the task. Used directly for scripted plans.
func (o *Orchestrator) CreateTaskFromPlan(ctx context.Context, goal string, plan models.Plan) (*models.Task, error) {
	var sessionID string
	if o.sessions != nil {
		id, err := o.sessions.CreateSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		sessionID = id
	}

	task, err := o.store.CreateTask(goal, plan, sessionID)
	if err != nil {
		if sessionID != "" {
			if cerr := o.sessions.CloseSession(ctx, sessionID); cerr != nil {
				o.log.Warn().Err(cerr).Str("session", sessionID).Msg("close session after rejected plan")
			}
		}
		return nil, err
	}

	o.log.Info().Str("task", task.ID).Int("subtasks", len(task.Subtasks)).Msg("task created")
	if o.journal != nil {
		if err := o.journal.RecordTask(task); err != nil {
			o.log.Warn().Err(err).Str("task", task.ID).Msg("journal task record failed")
		}
	}
	return task, nil
}

// ClaimNextSubtask selects the next eligible subtask and marks it in
// progress, in one store operation so concurrent claimers cannot claim
// the same subtask. Returns (nil, nil) when nothing is currently
// eligible; the caller polls again after a delay.
func (o *Orchestrator) ClaimNextSubtask(taskID string) (*models.Subtask, error) {
	next, err := o.store.ClaimNext(taskID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, nil
	}

	o.log.Debug().Str("task", taskID).Str("subtask", next.ID).Msg("subtask claimed")
	o.recordTransition(taskID, next.ID, models.StatusInProgress, "")
	return next, nil
}

// RunClaimedSubtask executes a claimed subtask to a terminal status and
// unconditionally reports that status to the store. The execution loop
// never raises; if it somehow does, the subtask is force-marked failed.
// A failure to persist the status is logged, not escalated, so that a
// bookkeeping problem cannot mask the execution outcome.
func (o *Orchestrator) RunClaimedSubtask(ctx context.Context, taskID, subtaskID string) (*models.SubtaskResult, error) {
	task, err := o.store.Task(taskID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, st := range task.Subtasks {
		if st.ID == subtaskID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("subtask %s in task %s: %w", subtaskID, taskID, store.ErrNotFound)
	}
	subtask := task.Subtasks[index]

	input := agent.Input{
		TaskGoal:           task.Goal,
		SubtaskGoal:        subtask.Goal,
		SubtaskDescription: subtask.Description,
		PlanContext:        fmt.Sprintf("Subtask %d of %d. Plan: %s", index+1, len(task.Subtasks), task.Summary),
		SessionID:          task.SessionID,
		PriorExtraction:    carriedExtraction(task, index),
	}

	outcome := o.executeLoop(ctx, input)

	result := &models.SubtaskResult{
		Status:      outcome.Status,
		Steps:       outcome.Steps,
		Retries:     outcome.Retries,
		Error:       outcome.Error,
		Extraction:  outcome.Extraction,
		CompletedAt: time.Now(),
	}

	if err := o.store.UpdateSubtaskStatus(taskID, subtaskID, result.Status, result); err != nil {
		o.log.Error().Err(err).Str("task", taskID).Str("subtask", subtaskID).Msg("persist subtask status failed")
	}
	o.recordTransition(taskID, subtaskID, result.Status, result.Error)

	o.log.Info().
		Str("task", taskID).
		Str("subtask", subtaskID).
		Str("status", string(result.Status)).
		Int("steps", len(result.Steps)).
		Int("retries", result.Retries).
		Msg("subtask finished")

	return result, nil
}

// executeLoop shields callers from a loop that violates its own
// never-raise contract.
func (o *Orchestrator) executeLoop(ctx context.Context, in agent.Input) (outcome *agent.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("execution loop panicked")
			outcome = &agent.Result{
				Status: models.StatusFailed,
				Error:  fmt.Sprintf("execution loop panicked: %v", r),
			}
		}
	}()
	return o.loop.Run(ctx, in)
}

// TaskStatus returns the aggregate status and progress view for a task.
func (o *Orchestrator) TaskStatus(taskID string) (StatusReport, error) {
	task, err := o.store.Task(taskID)
	if err != nil {
		return StatusReport{}, err
	}
	progress, err := o.store.Progress(taskID)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{TaskID: task.ID, Status: task.Status, Progress: progress}, nil
}

// RunTask drives a task to a terminal status with the poll, claim,
// execute, report cycle, then closes the task's session.
func (o *Orchestrator) RunTask(ctx context.Context, taskID string) error {
	defer o.closeSession(ctx, taskID)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		task, err := o.store.Task(taskID)
		if err != nil {
			return err
		}
		if task.Status.Terminal() {
			return nil
		}

		subtask, err := o.ClaimNextSubtask(taskID)
		if err != nil {
			return err
		}
		if subtask == nil {
			// Normal while dependencies settle; with a single worker an
			// empty claim on a non-terminal task with nothing in flight
			// means the graph cannot advance.
			if !anyInProgress(task) {
				return fmt.Errorf("task %s has no runnable subtask", taskID)
			}
			o.sleep(o.pollDelay)
			continue
		}

		result, err := o.RunClaimedSubtask(ctx, taskID, subtask.ID)
		if err != nil {
			return err
		}
		if o.onSubtaskDone != nil {
			o.onSubtaskDone(subtask, result)
		}
	}
}

func (o *Orchestrator) closeSession(ctx context.Context, taskID string) {
	if o.sessions == nil {
		return
	}
	task, err := o.store.Task(taskID)
	if err != nil || task.SessionID == "" {
		return
	}
	if err := o.sessions.CloseSession(ctx, task.SessionID); err != nil {
		o.log.Warn().Err(err).Str("session", task.SessionID).Msg("close session failed")
	}
}

func (o *Orchestrator) recordTransition(taskID, subtaskID string, status models.Status, detail string) {
	if o.journal == nil {
		return
	}
	if err := o.journal.RecordTransition(taskID, subtaskID, status, detail); err != nil {
		o.log.Warn().Err(err).Str("task", taskID).Str("subtask", subtaskID).Msg("journal transition failed")
	}
}

// carriedExtraction returns the most recent extraction among subtasks
// before the given index that finished done, in plan order.
func carriedExtraction(task *models.Task, before int) string {
	extraction := ""
	for i, st := range task.Subtasks {
		if i >= before {
			break
		}
		if st.Status == models.StatusDone && st.Result != nil && st.Result.Extraction != "" {
			extraction = st.Result.Extraction
		}
	}
	return extraction
}

func anyInProgress(task *models.Task) bool {
	for _, st := range task.Subtasks {
		if st.Status == models.StatusInProgress {
			return true
		}
	}
	return false
}
