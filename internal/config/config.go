package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all console configuration
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Polling  PollingConfig  `toml:"polling"`
	History  HistoryConfig  `toml:"history"`
	Manifest ManifestConfig `toml:"manifest"`
	Web      WebConfig      `toml:"web"`
}

// BackendConfig locates the job runner API. Paths are templates relative
// to BaseURL+PathPrefix so a deployment can move the API without code
// changes.
type BackendConfig struct {
	BaseURL    string `toml:"base_url"`
	PathPrefix string `toml:"path_prefix"`
	TimeoutSec int    `toml:"timeout_sec"`
}

// PollingConfig controls the per-job status poller and registry refresh
type PollingConfig struct {
	IntervalSec int    `toml:"interval_sec"`
	RefreshCron string `toml:"refresh_cron"`
	ListLimit   int    `toml:"list_limit"`
}

// HistoryConfig controls the local job history cache
type HistoryConfig struct {
	DatabasePath string `toml:"database_path"`
}

// ManifestConfig controls where the build manifest is read from
type ManifestConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// WebConfig holds the embedded console web server settings
type WebConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Backend: BackendConfig{
			BaseURL:    "http://localhost:8000",
			PathPrefix: "/api/cluster",
			TimeoutSec: 30,
		},
		Polling: PollingConfig{
			IntervalSec: 60,
			RefreshCron: "",
			ListLimit:   50,
		},
		History: HistoryConfig{
			DatabasePath: filepath.Join(home, ".cluster-console", "history.db"),
		},
		Manifest: ManifestConfig{
			Watch: false,
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.History.DatabasePath = ExpandPath(cfg.History.DatabasePath)
	cfg.Manifest.Path = ExpandPath(cfg.Manifest.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded configuration for values the console
// cannot work with
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Polling.IntervalSec <= 0 {
		return fmt.Errorf("polling.interval_sec must be positive")
	}
	if c.Polling.ListLimit <= 0 || c.Polling.ListLimit > 100 {
		return fmt.Errorf("polling.list_limit must be between 1 and 100")
	}
	return nil
}

// PollInterval returns the poller interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSec) * time.Second
}

// RequestTimeout returns the backend request timeout as a duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSec) * time.Second
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cluster-console", "config.toml")
}
