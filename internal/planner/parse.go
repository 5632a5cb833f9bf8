package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/webpilot/webpilot/pkg/models"
)

// ParsePlan parses the model's JSON response into a Plan. The model may
// wrap the object in prose or fences; only the outermost object is read.
func ParsePlan(response string) (models.Plan, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return models.Plan{}, err
	}

	var plan models.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return models.Plan{}, fmt.Errorf("unmarshal plan JSON: %w", err)
	}
	if len(plan.Subtasks) == 0 {
		return models.Plan{}, fmt.Errorf("plan has no subtasks")
	}
	for i, st := range plan.Subtasks {
		if st.Goal == "" {
			return models.Plan{}, fmt.Errorf("subtask %d has no goal", i)
		}
	}
	return plan, nil
}

// ParseStep parses the model's JSON response into a Step. Tool names are
// normalized to upper case before validation.
func ParseStep(response string) (models.Step, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return models.Step{}, err
	}

	var step models.Step
	if err := json.Unmarshal([]byte(raw), &step); err != nil {
		return models.Step{}, fmt.Errorf("unmarshal step JSON: %w", err)
	}

	step.Tool = models.Tool(strings.ToUpper(strings.TrimSpace(string(step.Tool))))
	if !step.Tool.Valid() {
		return models.Step{}, fmt.Errorf("unknown tool %q", step.Tool)
	}
	return step, nil
}

func extractJSONObject(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return "", fmt.Errorf("no JSON object found in response (got %d chars): %q", len(response), preview)
	}
	return response[start : end+1], nil
}
