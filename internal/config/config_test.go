package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Lock.TimeoutSeconds != 30 {
		t.Errorf("Lock.TimeoutSeconds = %d, want 30", cfg.Lock.TimeoutSeconds)
	}
	if cfg.Deadlock.Threshold != 10 {
		t.Errorf("Deadlock.Threshold = %d, want 10", cfg.Deadlock.Threshold)
	}
	if cfg.Watch.Enabled {
		t.Errorf("Watch.Enabled = true, want false by default")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yamlBody := `
safe_modes:
  update:
    dry_run: true
    strict: true
logging:
  level: DEBUG
lock:
  timeout_seconds: 5
watch:
  enabled: true
  port: 9000
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.SafeModes.Update.DryRun || !cfg.SafeModes.Update.Strict {
		t.Errorf("safe modes not applied: %+v", cfg.SafeModes)
	}
	if cfg.SafeModes.Update.NoPlanEdit {
		t.Errorf("NoPlanEdit should remain default false")
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG", cfg.Logging.Level)
	}
	if cfg.Lock.TimeoutSeconds != 5 {
		t.Errorf("Lock.TimeoutSeconds = %d, want 5", cfg.Lock.TimeoutSeconds)
	}
	if cfg.Lock.StaleAfterSeconds != 30 {
		t.Errorf("Lock.StaleAfterSeconds = %d, want default 30", cfg.Lock.StaleAfterSeconds)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Port != 9000 {
		t.Errorf("watch config not applied: %+v", cfg.Watch)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := defaultConfig()
	cfg.Logging.Level = "WARN"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Logging.Level != "WARN" {
		t.Errorf("Logging.Level = %q, want WARN", got.Logging.Level)
	}
}

func TestDiff_ReportsChanges(t *testing.T) {
	old := defaultConfig()
	next := defaultConfig()
	next.Logging.Level = "DEBUG"
	next.SafeModes.Update.Strict = true

	diff := Diff(old, next)
	if len(diff) != 2 {
		t.Fatalf("Diff() = %v, want 2 entries", diff)
	}
}

func TestDiff_NoChanges(t *testing.T) {
	old := defaultConfig()
	next := defaultConfig()
	if diff := Diff(old, next); len(diff) != 0 {
		t.Errorf("Diff() = %v, want empty", diff)
	}
}
