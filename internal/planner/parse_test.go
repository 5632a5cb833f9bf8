package planner

import (
	"strings"
	"testing"

	"github.com/webpilot/webpilot/internal/agent"
	"github.com/webpilot/webpilot/pkg/models"
)

func TestParsePlan_Valid(t *testing.T) {
	response := `{
		"summary": "look up a kettle price",
		"subtasks": [
			{"description": "open shop", "goal": "go to the shop homepage"},
			{"description": "search", "goal": "search for kettles", "depends_on": [0]}
		]
	}`

	plan, err := ParsePlan(response)
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	if plan.Summary != "look up a kettle price" {
		t.Errorf("summary = %q", plan.Summary)
	}
	if len(plan.Subtasks) != 2 {
		t.Fatalf("subtasks = %d, want 2", len(plan.Subtasks))
	}
	if deps := plan.Subtasks[1].DependsOn; len(deps) != 1 || deps[0] != 0 {
		t.Errorf("depends_on = %v, want [0]", deps)
	}
}

func TestParsePlan_WithSurroundingProse(t *testing.T) {
	response := "Here is the plan:\n```json\n" +
		`{"summary": "s", "subtasks": [{"description": "a", "goal": "g"}]}` +
		"\n```\nLet me know if you want changes."

	plan, err := ParsePlan(response)
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	if len(plan.Subtasks) != 1 {
		t.Errorf("subtasks = %d, want 1", len(plan.Subtasks))
	}
}

func TestParsePlan_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no JSON object", "I could not produce a plan."},
		{"invalid JSON", "{summary: broken}"},
		{"empty subtasks", `{"summary": "s", "subtasks": []}`},
		{"subtask without goal", `{"summary": "s", "subtasks": [{"description": "a"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePlan(tt.response); err == nil {
				t.Errorf("ParsePlan(%q) error = nil, want error", tt.response)
			}
		})
	}
}

func TestParseStep_Valid(t *testing.T) {
	response := `{"text": "Open the site", "reasoning": "start at the homepage", "tool": "GOTO", "instruction": "https://example.com"}`

	step, err := ParseStep(response)
	if err != nil {
		t.Fatalf("ParseStep() error = %v", err)
	}
	if step.Tool != models.ToolGoto {
		t.Errorf("tool = %q, want GOTO", step.Tool)
	}
	if step.Instruction != "https://example.com" {
		t.Errorf("instruction = %q", step.Instruction)
	}
}

func TestParseStep_NormalizesToolCase(t *testing.T) {
	step, err := ParseStep(`{"text": "t", "reasoning": "r", "tool": "done", "instruction": "found it"}`)
	if err != nil {
		t.Fatalf("ParseStep() error = %v", err)
	}
	if step.Tool != models.ToolDone {
		t.Errorf("tool = %q, want DONE", step.Tool)
	}
}

func TestParseStep_UnknownTool(t *testing.T) {
	if _, err := ParseStep(`{"text": "t", "tool": "CLICK"}`); err == nil {
		t.Fatal("ParseStep() error = nil, want unknown tool error")
	}
}

func TestBuildDecisionPrompt_IncludesHistory(t *testing.T) {
	prompt := buildDecisionPrompt(agent.DecisionRequest{
		Goal:               "buy a kettle",
		SubtaskGoal:        "find the price",
		SubtaskDescription: "price lookup",
		PlanContext:        "Subtask 2 of 3",
		CurrentURL:         "https://shop.example.com",
		Extraction:         "rating: 4.5",
		History: []models.Step{
			{Text: "Opened the shop", Tool: models.ToolGoto, Instruction: "https://shop.example.com"},
		},
	})

	for _, want := range []string{
		"buy a kettle",
		"find the price",
		"Subtask 2 of 3",
		"https://shop.example.com",
		"rating: 4.5",
		"[GOTO]",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildDecisionPrompt_EmptyHistory(t *testing.T) {
	prompt := buildDecisionPrompt(agent.DecisionRequest{Goal: "g"})
	if !strings.Contains(prompt, "No steps taken yet") {
		t.Error("prompt should note an empty history")
	}
}
