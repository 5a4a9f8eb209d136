package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string         `yaml:"listen_addr"`
	RulesPath  string         `yaml:"rules_path"`
	Log        LogConfig      `yaml:"log"`
	GitHub     GitHubConfig   `yaml:"github"`
	Workflow   WorkflowConfig `yaml:"workflow"`
	Metrics    MetricsConfig  `yaml:"metrics"`
	Ledger     LedgerConfig   `yaml:"ledger"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type GitHubConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Token          string `yaml:"token"`
	Owner          string `yaml:"owner"`
	Repo           string `yaml:"repo"`
	APIBaseURL     string `yaml:"api_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type WorkflowConfig struct {
	RouteTimeoutSeconds int    `yaml:"route_timeout_seconds"`
	RecentLimit         int    `yaml:"recent_limit"`
	RefreshSchedule     string `yaml:"refresh_schedule"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LedgerConfig selects where quality reports are archived. Driver is
// memory, sqlite or postgres; ReportDir additionally writes each report as
// a JSON file.
type LedgerConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	ReportDir string `yaml:"report_dir"`
}

// Default is used when the gateway starts without a config file.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Log:        LogConfig{Level: "info"},
		Workflow:   WorkflowConfig{RecentLimit: 5},
		Metrics:    MetricsConfig{Enabled: true},
		Ledger:     LedgerConfig{Driver: "memory"},
	}
}

func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	if c.GitHub.Enabled {
		if c.GitHub.Token == "" {
			return fmt.Errorf("github.token is required when github.enabled=true")
		}
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return fmt.Errorf("github.owner and github.repo are required when github.enabled=true")
		}
	}
	if c.GitHub.TimeoutSeconds < 0 {
		return fmt.Errorf("github.timeout_seconds must not be negative")
	}

	if c.Workflow.RouteTimeoutSeconds < 0 {
		return fmt.Errorf("workflow.route_timeout_seconds must not be negative")
	}
	if c.Workflow.RecentLimit < 0 {
		return fmt.Errorf("workflow.recent_limit must not be negative")
	}
	if c.Workflow.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Workflow.RefreshSchedule); err != nil {
			return fmt.Errorf("workflow.refresh_schedule: %w", err)
		}
	}

	switch c.Ledger.Driver {
	case "", "memory":
	case "sqlite", "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for driver %s", c.Ledger.Driver)
		}
	default:
		return fmt.Errorf("ledger.driver %q is not one of memory, sqlite, postgres", c.Ledger.Driver)
	}

	return nil
}

func (c Config) RouteTimeout() time.Duration {
	return time.Duration(c.Workflow.RouteTimeoutSeconds) * time.Second
}

func (c Config) GitHubTimeout() time.Duration {
	return time.Duration(c.GitHub.TimeoutSeconds) * time.Second
}
