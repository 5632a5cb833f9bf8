package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/webpilot/webpilot/pkg/models"
)

const (
	// DefaultMaxSteps is the hard ceiling on recorded steps per subtask.
	DefaultMaxSteps = 15
	// DefaultMaxRetries is the ceiling on fault/repetition retries.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the fixed pause before a retry. Short and
	// constant; enough to avoid busy-looping the external services.
	DefaultRetryDelay = time.Second

	// repeatWindow is how many recent (tool, instruction) pairs are kept
	// for repetition detection.
	repeatWindow = 5
	// repeatThreshold is how many occurrences of an incoming pair within
	// the window count as a detected repetition.
	repeatThreshold = 2
)

// Config bounds a single subtask execution.
type Config struct {
	// MaxSteps is the step ceiling. Defaults to DefaultMaxSteps.
	MaxSteps int
	// MaxRetries is the retry ceiling. Defaults to DefaultMaxRetries.
	MaxRetries int
	// RetryDelay is the pause between retries. Defaults to DefaultRetryDelay.
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

// Input identifies the claimed subtask and the context it runs in.
type Input struct {
	// TaskGoal is the overall task objective.
	TaskGoal string
	// SubtaskGoal is the objective of the claimed subtask.
	SubtaskGoal string
	// SubtaskDescription is the short description of the claimed subtask.
	SubtaskDescription string
	// PlanContext describes where the subtask sits in the plan.
	PlanContext string
	// SessionID is the browser session the actuator acts against.
	SessionID string
	// PriorExtraction is data carried over from earlier subtasks.
	PriorExtraction string
}

// Result is the terminal outcome of one subtask execution. The loop
// always produces one; it never raises past its boundary.
type Result struct {
	// Status is done or failed.
	Status models.Status
	// Steps is the recorded step history.
	Steps []models.Step
	// Retries is the number of retries consumed.
	Retries int
	// Error is the failure detail for failed results.
	Error string
	// Extraction is the data gathered by EXTRACT steps.
	Extraction string
}

// Loop executes one subtask at a time against an oracle and an actuator.
type Loop struct {
	oracle   DecisionOracle
	actuator Actuator
	cfg      Config
	log      zerolog.Logger

	// sleep is swapped out in tests to avoid real pauses.
	sleep func(time.Duration)
}

// NewLoop creates an execution loop with the given collaborators.
func NewLoop(oracle DecisionOracle, actuator Actuator, cfg Config, log zerolog.Logger) *Loop {
	return &Loop{
		oracle:   oracle,
		actuator: actuator,
		cfg:      cfg.withDefaults(),
		log:      log,
		sleep:    time.Sleep,
	}
}

type actionPair struct {
	tool        models.Tool
	instruction string
}

// Run drives the subtask to done or failed. It blocks for the duration
// of the execution and always returns a terminal result.
func (l *Loop) Run(ctx context.Context, in Input) *Result {
	var steps []models.Step
	var recent []actionPair
	retries := 0
	extraction := in.PriorExtraction

	record := func(step models.Step) {
		steps = append(steps, step)
		recent = append(recent, actionPair{step.Tool, step.Instruction})
		if len(recent) > repeatWindow {
			recent = recent[1:]
		}
	}
	fail := func(detail string) *Result {
		l.log.Debug().Str("detail", detail).Int("steps", len(steps)).Int("retries", retries).Msg("subtask failed")
		return &Result{Status: models.StatusFailed, Steps: steps, Retries: retries, Error: detail, Extraction: extraction}
	}
	succeed := func() *Result {
		l.log.Debug().Int("steps", len(steps)).Int("retries", retries).Msg("subtask done")
		return &Result{Status: models.StatusDone, Steps: steps, Retries: retries, Extraction: extraction}
	}

	screenshot := l.refreshScreenshot(ctx, in.SessionID, nil)
	currentURL := l.refreshURL(ctx, in.SessionID, "")

	for {
		if len(steps) >= l.cfg.MaxSteps {
			return fail(fmt.Sprintf("exceeded maximum steps (%d)", l.cfg.MaxSteps))
		}

		step, err := l.oracle.NextStep(ctx, DecisionRequest{
			Goal:               in.TaskGoal,
			SubtaskGoal:        in.SubtaskGoal,
			SubtaskDescription: in.SubtaskDescription,
			PlanContext:        in.PlanContext,
			History:            steps,
			Screenshot:         screenshot,
			CurrentURL:         currentURL,
			Extraction:         extraction,
		})
		if err != nil {
			// Fall back to a re-orientation capture instead of failing
			// outright; only the retry ceiling ends the subtask here.
			retries++
			if retries >= l.cfg.MaxRetries {
				return fail(fmt.Sprintf("decision oracle failed: %v", err))
			}
			l.log.Warn().Err(err).Int("retries", retries).Msg("oracle fault, re-orienting")
			step = models.Step{
				Text:      "Capturing the page to re-orient",
				Reasoning: "the previous decision attempt failed",
				Tool:      models.ToolScreenshot,
			}
		}

		if step.Tool == models.ToolDone {
			record(step)
			return succeed()
		}
		if step.Tool == models.ToolFail {
			record(step)
			detail := step.Instruction
			if detail == "" {
				detail = step.Text
			}
			if detail == "" {
				detail = "subtask reported as unachievable"
			}
			return fail(detail)
		}

		// Repetition of a recent identical action: do not execute it.
		if countPair(recent, actionPair{step.Tool, step.Instruction}) >= repeatThreshold {
			retries++
			if retries >= l.cfg.MaxRetries {
				return fail(fmt.Sprintf("repeated action detected: %s %q", step.Tool, step.Instruction))
			}
			l.log.Debug().Str("tool", string(step.Tool)).Str("instruction", step.Instruction).Msg("repetition detected, pausing to reassess")
			record(models.Step{
				Text:      "Pausing to reassess",
				Reasoning: fmt.Sprintf("the action %s %q was attempted repeatedly", step.Tool, step.Instruction),
				Tool:      models.ToolWait,
			})
			screenshot = l.refreshScreenshot(ctx, in.SessionID, screenshot)
			l.sleep(l.cfg.RetryDelay)
			continue
		}

		// The oracle sometimes declares success in prose instead of the
		// tool field; honor the prose.
		if SignalsCompletion(step.Text, step.Reasoning) {
			record(models.Step{
				Text:        step.Text,
				Reasoning:   step.Reasoning,
				Tool:        models.ToolDone,
				Instruction: step.Instruction,
			})
			return succeed()
		}

		// A subtask never tears down the session it runs inside.
		if step.Tool == models.ToolClose {
			record(models.Step{Text: step.Text, Reasoning: step.Reasoning, Tool: models.ToolDone})
			return succeed()
		}

		res, err := l.actuator.Execute(ctx, in.SessionID, step)
		if err != nil {
			retries++
			if retries >= l.cfg.MaxRetries {
				return fail(fmt.Sprintf("action %s failed: %v", step.Tool, err))
			}
			l.log.Warn().Err(err).Str("tool", string(step.Tool)).Int("retries", retries).Msg("actuator fault, retrying")
			l.sleep(l.cfg.RetryDelay)
			screenshot = l.refreshScreenshot(ctx, in.SessionID, screenshot)
			continue
		}

		record(step)

		switch step.Tool {
		case models.ToolExtract:
			if res.Text != "" {
				extraction = res.Text
			}
		case models.ToolGoto, models.ToolNavback:
			currentURL = l.refreshURL(ctx, in.SessionID, currentURL)
		}

		if step.Tool == models.ToolScreenshot {
			if len(res.Screenshot) > 0 {
				screenshot = res.Screenshot
			}
		} else {
			screenshot = l.refreshScreenshot(ctx, in.SessionID, screenshot)
		}
	}
}

// refreshScreenshot captures a fresh snapshot, keeping the previous one
// when the capture fails. A stale snapshot is better than a dead subtask.
func (l *Loop) refreshScreenshot(ctx context.Context, sessionID string, prev []byte) []byte {
	shot, err := l.actuator.Screenshot(ctx, sessionID)
	if err != nil {
		return prev
	}
	return shot
}

// refreshURL updates the tracked location, keeping the previous value on
// failure.
func (l *Loop) refreshURL(ctx context.Context, sessionID string, prev string) string {
	url, err := l.actuator.CurrentURL(ctx, sessionID)
	if err != nil {
		return prev
	}
	return url
}

func countPair(recent []actionPair, pair actionPair) int {
	n := 0
	for _, p := range recent {
		if p == pair {
			n++
		}
	}
	return n
}
