// Package config handles configuration loading for webpilot. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for webpilot.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Server    ServerConfig    `mapstructure:"server"`
	Journal   JournalConfig   `mapstructure:"journal"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseAWSBedrock routes model calls through AWS Bedrock.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// BrowserConfig holds browser launch settings.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless"`
}

// LimitsConfig bounds a single subtask execution.
type LimitsConfig struct {
	// MaxSteps is the hard ceiling on recorded steps per subtask.
	MaxSteps int `mapstructure:"max_steps"`
	// MaxRetries is the ceiling on fault/repetition retries.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the fixed pause before a retry.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// PollDelay is the pause between empty claim polls.
	PollDelay time.Duration `mapstructure:"poll_delay"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// JournalConfig holds the run journal settings.
type JournalConfig struct {
	// Path is the SQLite file location. Empty uses the default path
	// under XDG data.
	Path string `mapstructure:"path"`
}

// Load reads configuration from the XDG user config, an optional
// project-local .webpilot.yaml, and environment variables, in that
// order of increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if project := findProjectConfig(); project != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(project)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "WEBPILOT_MODEL")
	v.BindEnv("server.addr", "WEBPILOT_ADDR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("browser.headless", true)

	v.SetDefault("limits.max_steps", 15)
	v.SetDefault("limits.max_retries", 3)
	v.SetDefault("limits.retry_delay", "1s")
	v.SetDefault("limits.poll_delay", "1s")

	v.SetDefault("server.addr", ":8420")

	v.SetDefault("journal.path", "")
}

func userConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "webpilot")
}

// findProjectConfig walks up from the working directory looking for a
// .webpilot.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".webpilot.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
