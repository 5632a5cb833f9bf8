package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/webpilot/webpilot/internal/orchestrator"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the status of a task on a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := statusAddr
		if addr == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			addr = cfg.Server.Addr
		}

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/api/tasks/%s", hostFor(addr), args[0]))
		if err != nil {
			return fmt.Errorf("query server: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("task %s not found", args[0])
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %s", resp.Status)
		}

		var report orchestrator.StatusReport
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}

		color.New(color.Bold).Printf("Task %s: %s\n", report.TaskID, report.Status)
		fmt.Printf("Progress: %d/%d (%.0f%%)\n", report.Progress.Completed, report.Progress.Total, report.Progress.Percentage)
		for _, st := range report.Progress.Subtasks {
			fmt.Printf("  [%s] %s: %s\n", st.Status, st.ID, st.Description)
		}
		return nil
	},
}

// hostFor normalizes a listen address like ":8420" into a dialable host.
func hostFor(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "Server address (overrides config)")
}
