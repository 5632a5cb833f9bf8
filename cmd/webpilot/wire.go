package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/webpilot/webpilot/internal/agent"
	"github.com/webpilot/webpilot/internal/browser"
	"github.com/webpilot/webpilot/internal/config"
	"github.com/webpilot/webpilot/internal/journal"
	"github.com/webpilot/webpilot/internal/orchestrator"
	"github.com/webpilot/webpilot/internal/planner"
	"github.com/webpilot/webpilot/internal/store"
	"github.com/webpilot/webpilot/pkg/models"
)

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

func newPlannerClient(cfg *config.Config) (*planner.Client, error) {
	return planner.NewClient(planner.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
}

// engine bundles everything a live run needs, plus its teardown.
type engine struct {
	orch  *orchestrator.Orchestrator
	close func()
}

// newEngine wires the store, model client, browser, journal, and
// orchestrator from configuration.
func newEngine(cfg *config.Config, log zerolog.Logger, onDone func(*models.Subtask, *models.SubtaskResult)) (*engine, error) {
	client, err := newPlannerClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}

	runner, err := browser.NewRunner(browser.Config{Headless: cfg.Browser.Headless}, log)
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	journalPath := cfg.Journal.Path
	if journalPath == "" {
		journalPath = journal.DefaultPath()
	}
	db, err := journal.Open(journalPath)
	if err != nil {
		runner.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	loop := agent.NewLoop(planner.NewClaudeOracle(client), runner, agent.Config{
		MaxSteps:   cfg.Limits.MaxSteps,
		MaxRetries: cfg.Limits.MaxRetries,
		RetryDelay: cfg.Limits.RetryDelay,
	}, log)

	orch := orchestrator.New(orchestrator.Options{
		Store:         store.NewMemoryStore(),
		Loop:          loop,
		Planner:       planner.NewClaudePlanner(client),
		Sessions:      runner,
		Journal:       db,
		Logger:        log,
		PollDelay:     cfg.Limits.PollDelay,
		OnSubtaskDone: onDone,
	})

	return &engine{
		orch: orch,
		close: func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("close journal")
			}
			if err := runner.Close(); err != nil {
				log.Warn().Err(err).Msg("close browser")
			}
		},
	}, nil
}
