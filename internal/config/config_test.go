package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garnizeh/hnjobs/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080 got %q", cfg.Addr)
	}
	if cfg.DatabasePath != "hnjobs.db" {
		t.Fatalf("expected default db path got %q", cfg.DatabasePath)
	}
	if cfg.Workers != 4 {
		t.Fatalf("expected 4 workers got %d", cfg.Workers)
	}
	if cfg.HN.BaseURL != "https://hacker-news.firebaseio.com/v0" {
		t.Fatalf("unexpected HN base url %q", cfg.HN.BaseURL)
	}
	if cfg.HN.Retries != 3 || cfg.HN.CircuitFailureThreshold != 5 {
		t.Fatalf("unexpected HN retry defaults: %+v", cfg.HN)
	}
	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Fatalf("expected daily scheduler interval got %v", cfg.Scheduler.Interval)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Fatalf("unexpected ollama base url %q", cfg.Ollama.BaseURL)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HNJOBS_ADDR", ":9090")
	t.Setenv("HNJOBS_JWT_SECRET", "from-env")
	t.Setenv("HNJOBS_ENGINE_MODEL", "mistral")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("expected env addr got %q", cfg.Addr)
	}
	if cfg.JWTSecret != "from-env" {
		t.Fatalf("expected env secret got %q", cfg.JWTSecret)
	}
	if cfg.Engine.Model != "mistral" {
		t.Fatalf("expected env model got %q", cfg.Engine.Model)
	}
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
addr: ":7070"
workers: 2
hn:
  retries: 9
scheduler:
  interval: 1h
  thread_ids: [45000000, 45000001]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Workers != 2 {
		t.Fatalf("file overrides not applied: addr=%q workers=%d", cfg.Addr, cfg.Workers)
	}
	if cfg.HN.Retries != 9 {
		t.Fatalf("expected retries 9 got %d", cfg.HN.Retries)
	}
	// fields absent from the file keep their defaults
	if cfg.HN.BaseURL != "https://hacker-news.firebaseio.com/v0" {
		t.Fatalf("expected default HN base url to survive, got %q", cfg.HN.BaseURL)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Fatalf("expected 1h interval got %v", cfg.Scheduler.Interval)
	}
	if len(cfg.Scheduler.ThreadIDs) != 2 || cfg.Scheduler.ThreadIDs[0] != 45000000 {
		t.Fatalf("unexpected thread ids: %v", cfg.Scheduler.ThreadIDs)
	}
}

func TestLoadConfigBadPath(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
