package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %s, want http://localhost:8000", cfg.Backend.BaseURL)
	}
	if cfg.Polling.IntervalSec != 60 {
		t.Errorf("IntervalSec = %d, want 60", cfg.Polling.IntervalSec)
	}
	if cfg.PollInterval() != 60*time.Second {
		t.Errorf("PollInterval() = %v, want 60s", cfg.PollInterval())
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Polling.ListLimit != 50 {
		t.Errorf("ListLimit = %d, want default 50", cfg.Polling.ListLimit)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[backend]
base_url = "https://runner.example.com"
path_prefix = "/api/cluster"
timeout_sec = 10

[polling]
interval_sec = 5
refresh_cron = "*/5 * * * *"
list_limit = 20
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "https://runner.example.com" {
		t.Errorf("BaseURL = %s, want https://runner.example.com", cfg.Backend.BaseURL)
	}
	if cfg.Polling.RefreshCron != "*/5 * * * *" {
		t.Errorf("RefreshCron = %s, want */5 * * * *", cfg.Polling.RefreshCron)
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("RequestTimeout() = %v, want 10s", cfg.RequestTimeout())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[polling]
interval_sec = 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() with zero interval, want error")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	got := ExpandPath("~/foo/bar")
	want := filepath.Join(home, "foo", "bar")
	if got != want {
		t.Errorf("ExpandPath(~/foo/bar) = %s, want %s", got, want)
	}

	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %s, want unchanged", got)
	}
}
