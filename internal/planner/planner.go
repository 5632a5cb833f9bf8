package planner

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/webpilot/webpilot/internal/agent"
	"github.com/webpilot/webpilot/pkg/models"
)

// ClaudePlanner builds plans by asking Claude to decompose the goal.
// Implements orchestrator.Planner.
type ClaudePlanner struct {
	client *Client
}

// NewClaudePlanner creates a planner on the given client.
func NewClaudePlanner(client *Client) *ClaudePlanner {
	return &ClaudePlanner{client: client}
}

// BuildPlan asks the model for a dependency-ordered decomposition of the
// goal and parses it into a Plan.
func (p *ClaudePlanner) BuildPlan(ctx context.Context, goal, background string) (models.Plan, error) {
	text, err := p.client.complete(ctx, planSystemPrompt, []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(buildPlanPrompt(goal, background)),
	})
	if err != nil {
		return models.Plan{}, fmt.Errorf("plan request: %w", err)
	}

	plan, err := ParsePlan(text)
	if err != nil {
		return models.Plan{}, fmt.Errorf("parse plan response: %w", err)
	}
	return plan, nil
}

// ClaudeOracle chooses the next step for a subtask. Implements
// agent.DecisionOracle.
type ClaudeOracle struct {
	client *Client
}

// NewClaudeOracle creates a decision oracle on the given client.
func NewClaudeOracle(client *Client) *ClaudeOracle {
	return &ClaudeOracle{client: client}
}

// NextStep sends the execution context, including the current screenshot
// when one is available, and parses the model's decision.
func (o *ClaudeOracle) NextStep(ctx context.Context, req agent.DecisionRequest) (models.Step, error) {
	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(buildDecisionPrompt(req)),
	}
	if len(req.Screenshot) > 0 {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/png", encodeBase64(req.Screenshot)))
	}

	text, err := o.client.complete(ctx, decisionSystemPrompt, blocks)
	if err != nil {
		return models.Step{}, fmt.Errorf("decision request: %w", err)
	}

	step, err := ParseStep(text)
	if err != nil {
		return models.Step{}, fmt.Errorf("parse decision response: %w", err)
	}
	return step, nil
}
