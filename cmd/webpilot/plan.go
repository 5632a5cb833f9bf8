package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/webpilot/webpilot/internal/planner"
)

var planOut string

var planCmd = &cobra.Command{
	Use:   "plan <goal>",
	Short: "Generate a plan for a goal without executing it",
	Long: `Ask the model to decompose a goal into dependency-ordered subtasks
and print the plan as YAML. The output can be edited and fed back to
'webpilot run --plan'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newPlannerClient(cfg)
		if err != nil {
			return err
		}

		plan, err := planner.NewClaudePlanner(client).BuildPlan(cmd.Context(), args[0], "")
		if err != nil {
			return fmt.Errorf("build plan: %w", err)
		}

		encoded, err := yaml.Marshal(plan)
		if err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		if planOut != "" {
			if err := os.WriteFile(planOut, encoded, 0o644); err != nil {
				return fmt.Errorf("write plan file: %w", err)
			}
			fmt.Printf("Plan written to %s\n", planOut)
			return nil
		}
		fmt.Print(string(encoded))
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planOut, "out", "", "Write the plan to a file instead of stdout")
}
