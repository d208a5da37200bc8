package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if cfg.LatencyMS != 300 || !cfg.Seed || cfg.DefaultFilter != "all" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Keys.Add != "a" || cfg.Keys.Quit != "q" {
		t.Fatalf("unexpected default keymap: %+v", cfg.Keys)
	}
}

func TestLoadOrCreateReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
latency_ms = 50
seed = false
default_filter = "Work"

[keys]
quit = "Q"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LatencyMS != 50 || cfg.Seed || cfg.DefaultFilter != "Work" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Keys.Quit != "Q" {
		t.Fatalf("keymap not applied: %+v", cfg.Keys)
	}
	if cfg.LogPath == "" {
		t.Fatal("log path must fall back to the default")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("TASKFLOW_LATENCY_MS", "5")
	t.Setenv("TASKFLOW_LOG_LEVEL", "debug")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LatencyMS != 5 {
		t.Fatalf("latency = %d, want env override", cfg.LatencyMS)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want env override", cfg.LogLevel)
	}
}

func TestLatencyDuration(t *testing.T) {
	cfg := Config{LatencyMS: 250}
	if cfg.Latency().Milliseconds() != 250 {
		t.Fatalf("latency = %v", cfg.Latency())
	}
}
