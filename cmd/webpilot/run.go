package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/webpilot/webpilot/internal/orchestrator"
	"github.com/webpilot/webpilot/pkg/models"
)

var (
	runPlanFile string
	runHeadful  bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Plan and execute a browser automation goal",
	Long: `Run a goal end to end: plan it into dependency-ordered subtasks,
then execute each subtask against a live browser until the task
finishes or fails.

With --plan, the plan is read from a YAML file instead of being
generated, and the goal argument becomes optional.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGoal,
}

func init() {
	runCmd.Flags().StringVar(&runPlanFile, "plan", "", "Execute a scripted YAML plan instead of generating one")
	runCmd.Flags().BoolVar(&runHeadful, "headful", false, "Show the browser window")
}

func runGoal(cmd *cobra.Command, args []string) error {
	if runPlanFile == "" && len(args) == 0 {
		return fmt.Errorf("a goal argument is required unless --plan is given")
	}
	goal := ""
	if len(args) > 0 {
		goal = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runHeadful {
		cfg.Browser.Headless = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(cfg, rootLog, reportSubtask)
	if err != nil {
		return err
	}
	defer eng.close()

	var task *models.Task
	if runPlanFile != "" {
		plan, err := readPlanFile(runPlanFile)
		if err != nil {
			return err
		}
		if goal == "" {
			goal = plan.Summary
		}
		task, err = eng.orch.CreateTaskFromPlan(ctx, goal, plan)
		if err != nil {
			return err
		}
	} else {
		task, err = eng.orch.PlanTask(ctx, goal)
		if err != nil {
			return err
		}
	}

	color.New(color.Bold).Printf("Task %s: %s\n", task.ID, task.Summary)
	for i, st := range task.Subtasks {
		fmt.Printf("  %d. %s\n", i+1, st.Description)
	}
	fmt.Println()

	if err := eng.orch.RunTask(ctx, task.ID); err != nil {
		return err
	}

	report, err := eng.orch.TaskStatus(task.ID)
	if err != nil {
		return err
	}
	printOutcome(report.Status, report.Progress.Completed, report.Progress.Total)
	return taskError(report)
}

// taskError converts a terminal report into the command's exit error.
// Returning an error, rather than exiting, lets deferred teardown run.
func taskError(report orchestrator.StatusReport) error {
	if report.Status == models.StatusFailed {
		return fmt.Errorf("task %s failed", report.TaskID)
	}
	return nil
}

func reportSubtask(st *models.Subtask, res *models.SubtaskResult) {
	switch res.Status {
	case models.StatusDone:
		color.Green("✓ %s: %s", st.ID, st.Description)
		if res.Extraction != "" {
			fmt.Printf("  %s\n", res.Extraction)
		}
	case models.StatusFailed:
		color.Red("✗ %s: %s (%s)", st.ID, st.Description, res.Error)
	}
}

func printOutcome(status models.Status, completed, total int) {
	fmt.Println()
	if status == models.StatusDone {
		color.Green("Task complete: %d/%d subtasks done", completed, total)
	} else {
		color.Red("Task %s: %d/%d subtasks done", status, completed, total)
	}
}

func readPlanFile(path string) (models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Plan{}, fmt.Errorf("read plan file: %w", err)
	}
	var plan models.Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return models.Plan{}, fmt.Errorf("parse plan file %s: %w", path, err)
	}
	return plan, nil
}
