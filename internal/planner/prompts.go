package planner

import (
	"fmt"
	"strings"

	"github.com/webpilot/webpilot/internal/agent"
)

const planSystemPrompt = `You decompose a web task into an ordered plan of subtasks for a browser agent.
Respond with a single JSON object and nothing else:
{
  "summary": "one sentence describing the plan",
  "subtasks": [
    {"description": "short label", "goal": "concrete objective for the browser agent", "depends_on": [0]}
  ]
}
Rules:
- depends_on lists zero-based indices of subtasks that must finish first; omit it when empty.
- Keep the plan small: each subtask is one page-level objective.
- Never create circular dependencies.`

const decisionSystemPrompt = `You control a browser agent working on one subtask of a larger plan.
Given the goal, the step history, and the current page, choose exactly one next action.
Respond with a single JSON object and nothing else:
{"text": "what you are doing", "reasoning": "why", "tool": "GOTO|ACT|EXTRACT|OBSERVE|WAIT|NAVBACK|SCREENSHOT|DONE|FAIL", "instruction": "parameter for the tool"}
Tools:
- GOTO: instruction is a URL.
- ACT: instruction is one interaction, e.g. "click #submit" or "fill #q kettle".
- EXTRACT: instruction is a CSS selector to read, or empty for the whole page.
- OBSERVE: list the interactive elements on the page.
- WAIT: pause; instruction is milliseconds.
- NAVBACK: go back one page.
- SCREENSHOT: capture the page.
- DONE: the subtask goal is met; instruction summarizes the outcome.
- FAIL: the goal cannot be met; instruction explains why.`

func buildPlanPrompt(goal, background string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	if background != "" {
		fmt.Fprintf(&b, "\nBackground material:\n%s\n", background)
	}
	b.WriteString("\nProduce the plan JSON now.")
	return b.String()
}

func buildDecisionPrompt(req agent.DecisionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall goal: %s\n", req.Goal)
	fmt.Fprintf(&b, "Subtask: %s\n", req.SubtaskDescription)
	fmt.Fprintf(&b, "Subtask goal: %s\n", req.SubtaskGoal)
	if req.PlanContext != "" {
		fmt.Fprintf(&b, "Plan position: %s\n", req.PlanContext)
	}
	if req.CurrentURL != "" {
		fmt.Fprintf(&b, "Current page: %s\n", req.CurrentURL)
	}
	if req.Extraction != "" {
		fmt.Fprintf(&b, "Previously extracted data:\n%s\n", req.Extraction)
	}
	if len(req.History) == 0 {
		b.WriteString("No steps taken yet.\n")
	} else {
		b.WriteString("Steps taken so far:\n")
		for i, step := range req.History {
			fmt.Fprintf(&b, "%d. [%s] %s (%s)\n", i+1, step.Tool, step.Text, step.Instruction)
		}
	}
	b.WriteString("\nChoose the next action JSON now.")
	return b.String()
}
