package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/webpilot/webpilot/internal/agent"
	"github.com/webpilot/webpilot/internal/orchestrator"
	"github.com/webpilot/webpilot/internal/store"
	"github.com/webpilot/webpilot/pkg/models"
)

type oracleFunc func(ctx context.Context, req agent.DecisionRequest) (models.Step, error)

func (f oracleFunc) NextStep(ctx context.Context, req agent.DecisionRequest) (models.Step, error) {
	return f(ctx, req)
}

type stubActuator struct{}

func (a *stubActuator) Execute(ctx context.Context, sessionID string, step models.Step) (agent.ActionResult, error) {
	return agent.ActionResult{Text: "ok"}, nil
}

func (a *stubActuator) Screenshot(ctx context.Context, sessionID string) ([]byte, error) {
	return []byte{0x89}, nil
}

func (a *stubActuator) CurrentURL(ctx context.Context, sessionID string) (string, error) {
	return "https://example.com", nil
}

type stubPlanner struct {
	plan models.Plan
	err  error
}

func (p *stubPlanner) BuildPlan(ctx context.Context, goal, background string) (models.Plan, error) {
	return p.plan, p.err
}

func newTestServer(t *testing.T, planner orchestrator.Planner) *Server {
	t.Helper()
	oracle := oracleFunc(func(ctx context.Context, req agent.DecisionRequest) (models.Step, error) {
		return models.Step{Text: "finished", Tool: models.ToolDone}, nil
	})
	loop := agent.NewLoop(oracle, &stubActuator{}, agent.Config{}, zerolog.Nop())
	orch := orchestrator.New(orchestrator.Options{
		Store:   store.NewMemoryStore(),
		Loop:    loop,
		Planner: planner,
		Logger:  zerolog.Nop(),
	})
	return New(orch, zerolog.Nop())
}

func singleSubtaskPlanner() *stubPlanner {
	return &stubPlanner{plan: models.Plan{
		Summary: "one step",
		Subtasks: []models.PlannedSubtask{
			{Description: "do it", Goal: "do the one thing"},
		},
	}}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, singleSubtaskPlanner())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestCreateTask(t *testing.T) {
	srv := newTestServer(t, singleSubtaskPlanner())
	rec := postJSON(t, srv.Handler(), "/api/tasks", planRequest{Goal: "buy milk"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var task models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.ID == "" {
		t.Error("task ID is empty")
	}
	if len(task.Subtasks) != 1 {
		t.Errorf("subtasks = %d, want 1", len(task.Subtasks))
	}
	if task.Status != models.StatusPending {
		t.Errorf("status = %s, want %s", task.Status, models.StatusPending)
	}
}

func TestCreateTaskRejectsMissingGoal(t *testing.T) {
	srv := newTestServer(t, singleSubtaskPlanner())
	rec := postJSON(t, srv.Handler(), "/api/tasks", planRequest{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateTaskInvalidPlan(t *testing.T) {
	planner := &stubPlanner{plan: models.Plan{
		Summary: "cyclic",
		Subtasks: []models.PlannedSubtask{
			{Description: "a", Goal: "a", DependsOn: []int{1}},
			{Description: "b", Goal: "b", DependsOn: []int{0}},
		},
	}}
	srv := newTestServer(t, planner)
	rec := postJSON(t, srv.Handler(), "/api/tasks", planRequest{Goal: "impossible"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
}

func TestTaskStatusNotFound(t *testing.T) {
	srv := newTestServer(t, singleSubtaskPlanner())
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestClaimRunStatusCycle(t *testing.T) {
	srv := newTestServer(t, singleSubtaskPlanner())
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/tasks", planRequest{Goal: "buy milk"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var task models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}

	rec = postJSON(t, handler, fmt.Sprintf("/api/tasks/%s/claim", task.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d: %s", rec.Code, rec.Body.String())
	}
	var claim claimResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if claim.Subtask == nil {
		t.Fatal("claim returned no subtask")
	}

	rec = postJSON(t, handler, fmt.Sprintf("/api/tasks/%s/subtasks/%s/run", task.ID, claim.Subtask.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("run status = %d: %s", rec.Code, rec.Body.String())
	}
	var result models.SubtaskResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Status != models.StatusDone {
		t.Errorf("result status = %s, want %s", result.Status, models.StatusDone)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID, nil)
	statusRec := httptest.NewRecorder()
	handler.ServeHTTP(statusRec, req)
	if statusRec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", statusRec.Code, statusRec.Body.String())
	}
	var report orchestrator.StatusReport
	if err := json.Unmarshal(statusRec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != models.StatusDone {
		t.Errorf("task status = %s, want %s", report.Status, models.StatusDone)
	}
	if report.Progress.Completed != 1 {
		t.Errorf("completed = %d, want 1", report.Progress.Completed)
	}
}

func TestClaimExhaustedReturnsNull(t *testing.T) {
	srv := newTestServer(t, singleSubtaskPlanner())
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/tasks", planRequest{Goal: "buy milk"})
	var task models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}

	rec = postJSON(t, handler, fmt.Sprintf("/api/tasks/%s/claim", task.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first claim status = %d", rec.Code)
	}

	rec = postJSON(t, handler, fmt.Sprintf("/api/tasks/%s/claim", task.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second claim status = %d", rec.Code)
	}
	var claim claimResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if claim.Subtask != nil {
		t.Errorf("second claim = %+v, want nil", claim.Subtask)
	}
}
