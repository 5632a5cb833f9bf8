package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	rootLog zerolog.Logger
	rootDbg bool
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "webpilot",
	Short: "Goal-driven browser automation agent",
	Long: `Webpilot decomposes a natural-language goal into a dependency-ordered
plan of browser subtasks, then drives each one to completion with an
observe, decide, act loop against a real browser.

Plans come from Claude or from a YAML file; execution is bounded by
step and retry ceilings so a stuck page can never hang a run.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootDbg {
			rootLog = rootLog.Level(zerolog.DebugLevel)
		}
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(log zerolog.Logger) {
	rootLog = log
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDbg, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a config file (overrides discovery)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
