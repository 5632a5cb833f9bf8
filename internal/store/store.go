// Package store owns the in-memory task registry and the dependency
// resolver that selects the next runnable subtask.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webpilot/webpilot/internal/graph"
	"github.com/webpilot/webpilot/pkg/models"
)

// Store holds tasks and mediates all task and subtask mutation.
// Implementations must keep the aggregate task status consistent with
// its subtasks under every mutation.
type Store interface {
	// CreateTask validates the plan, assigns IDs, and admits the task
	// with every subtask pending. Returns ErrInvalidPlan for an empty
	// plan, an out-of-range dependency index, or a dependency cycle.
	CreateTask(goal string, plan models.Plan, sessionID string) (*models.Task, error)
	// Task returns the task with the given ID, or ErrNotFound.
	Task(taskID string) (*models.Task, error)
	// NextAvailableSubtask returns the first pending subtask in plan
	// order whose dependencies are all done. Returns (nil, nil) when no
	// subtask is currently eligible; that is a normal state while
	// dependencies are in flight or when no work remains.
	NextAvailableSubtask(taskID string) (*models.Subtask, error)
	// ClaimNext selects the next eligible subtask and marks it in
	// progress in one critical section, so concurrent claimers can never
	// claim the same subtask twice. Returns (nil, nil) when nothing is
	// eligible.
	ClaimNext(taskID string) (*models.Subtask, error)
	// UpdateSubtaskStatus sets a subtask's status and result and
	// recomputes the aggregate task status in the same critical section.
	// Idempotent for a repeated identical terminal status.
	UpdateSubtaskStatus(taskID, subtaskID string, status models.Status, result *models.SubtaskResult) error
	// Progress returns the read-only progress view for a task.
	Progress(taskID string) (models.Progress, error)
}

// MemoryStore is the in-process Store implementation. Every read hands
// out deep copies, never pointers into the registry; callers may hold,
// encode, or mutate returned tasks freely while updates proceed. It
// performs no claim leasing: a claimer that dies leaves its subtask in
// progress.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*models.Task)}
}

// CreateTask implements Store.
func (s *MemoryStore) CreateTask(goal string, plan models.Plan, sessionID string) (*models.Task, error) {
	if len(plan.Subtasks) == 0 {
		return nil, fmt.Errorf("%w: plan has no subtasks", ErrInvalidPlan)
	}

	subtasks := make([]*models.Subtask, len(plan.Subtasks))
	for i, ps := range plan.Subtasks {
		subtasks[i] = &models.Subtask{
			ID:          fmt.Sprintf("subtask-%d", i+1),
			Description: ps.Description,
			Goal:        ps.Goal,
			Status:      models.StatusPending,
		}
	}

	// Resolve declared dependency indices into subtask IDs.
	for i, ps := range plan.Subtasks {
		for _, dep := range ps.DependsOn {
			if dep < 0 || dep >= len(plan.Subtasks) {
				return nil, fmt.Errorf("%w: subtask %d references out-of-range dependency index %d", ErrInvalidPlan, i, dep)
			}
			subtasks[i].Dependencies = append(subtasks[i].Dependencies, subtasks[dep].ID)
		}
	}

	// Reject graphs that can deadlock before admitting the task. Build
	// runs cycle detection itself.
	g := graph.New()
	if err := g.Build(subtasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	task := &models.Task{
		ID:        "task-" + uuid.New().String(),
		Goal:      goal,
		Summary:   plan.Summary,
		Subtasks:  subtasks,
		Status:    models.StatusPending,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	return cloneTask(task), nil
}

// Task implements Store.
func (s *MemoryStore) Task(taskID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return cloneTask(task), nil
}

// NextAvailableSubtask implements Store. Plan order wins over graph depth
// among equally eligible subtasks; only one subtask executes at a time,
// so depth-aware scheduling buys nothing here.
func (s *MemoryStore) NextAvailableSubtask(taskID string) (*models.Subtask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if next := nextEligible(task); next != nil {
		return cloneSubtask(next), nil
	}
	return nil, nil
}

// ClaimNext implements Store.
func (s *MemoryStore) ClaimNext(taskID string) (*models.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	next := nextEligible(task)
	if next == nil {
		return nil, nil
	}
	next.Status = models.StatusInProgress
	task.Status = aggregateStatus(task.Subtasks)
	return cloneSubtask(next), nil
}

// nextEligible returns the first pending subtask in plan order with all
// dependencies done. Caller holds the lock.
func nextEligible(task *models.Task) *models.Subtask {
	byID := make(map[string]*models.Subtask, len(task.Subtasks))
	for _, st := range task.Subtasks {
		byID[st.ID] = st
	}

	for _, st := range task.Subtasks {
		if st.Status != models.StatusPending {
			continue
		}
		eligible := true
		for _, depID := range st.Dependencies {
			if dep, ok := byID[depID]; !ok || dep.Status != models.StatusDone {
				eligible = false
				break
			}
		}
		if eligible {
			return st
		}
	}
	return nil
}

// UpdateSubtaskStatus implements Store.
func (s *MemoryStore) UpdateSubtaskStatus(taskID, subtaskID string, status models.Status, result *models.SubtaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	var target *models.Subtask
	for _, st := range task.Subtasks {
		if st.ID == subtaskID {
			target = st
			break
		}
	}
	if target == nil {
		return fmt.Errorf("subtask %s in task %s: %w", subtaskID, taskID, ErrNotFound)
	}

	target.Status = status
	if result != nil {
		target.Result = cloneResult(result)
	}

	task.Status = aggregateStatus(task.Subtasks)
	return nil
}

// Progress implements Store.
func (s *MemoryStore) Progress(taskID string) (models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return models.Progress{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	progress := models.Progress{Total: len(task.Subtasks)}
	for _, st := range task.Subtasks {
		if st.Status == models.StatusDone {
			progress.Completed++
		}
		progress.Subtasks = append(progress.Subtasks, models.SubtaskProgress{
			ID:          st.ID,
			Description: st.Description,
			Status:      st.Status,
		})
	}
	if progress.Total > 0 {
		progress.Percentage = float64(progress.Completed) / float64(progress.Total) * 100
	}
	return progress, nil
}

// aggregateStatus derives the task status from its subtasks: done when
// every subtask is done, failed as soon as any subtask failed, in
// progress once any subtask has been claimed or finished, else pending.
func aggregateStatus(subtasks []*models.Subtask) models.Status {
	allDone := true
	anyStarted := false
	for _, st := range subtasks {
		switch st.Status {
		case models.StatusFailed:
			return models.StatusFailed
		case models.StatusDone:
			anyStarted = true
		case models.StatusInProgress:
			anyStarted = true
			allDone = false
		default:
			allDone = false
		}
	}
	if allDone {
		return models.StatusDone
	}
	if anyStarted {
		return models.StatusInProgress
	}
	return models.StatusPending
}

// cloneTask deep-copies a task so no registry state escapes the lock.
func cloneTask(task *models.Task) *models.Task {
	out := *task
	out.Subtasks = make([]*models.Subtask, len(task.Subtasks))
	for i, st := range task.Subtasks {
		out.Subtasks[i] = cloneSubtask(st)
	}
	return &out
}

func cloneSubtask(st *models.Subtask) *models.Subtask {
	out := *st
	out.Dependencies = append([]string(nil), st.Dependencies...)
	out.Result = cloneResult(st.Result)
	return &out
}

func cloneResult(res *models.SubtaskResult) *models.SubtaskResult {
	if res == nil {
		return nil
	}
	out := *res
	out.Steps = append([]models.Step(nil), res.Steps...)
	return &out
}
