// Package config loads config.yml: safe-mode defaults, logging level, lock
// and deadlock tuning, and the optional watch hub block. Shape and the
// Load/LoadOrDefault/Diff trio are ported one-to-one from the teacher's
// internal/config/config.go; the watch block and lock/deadlock tuning
// sections are new fields carrying SPEC_FULL.md §A/§D's additions.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of config.yml.
type Config struct {
	SafeModes SafeModesConfig `yaml:"safe_modes"`
	Logging   LoggingConfig   `yaml:"logging"`
	Lock      LockConfig      `yaml:"lock"`
	Deadlock  DeadlockConfig  `yaml:"deadlock"`
	Watch     WatchConfig     `yaml:"watch"`
}

// SafeModesConfig carries the advisory-but-configurable update restrictions
// of spec.md §4.6.
type SafeModesConfig struct {
	Update UpdateSafeModeConfig `yaml:"update"`
}

// UpdateSafeModeConfig mirrors spec.md's three orthogonal safe modes.
type UpdateSafeModeConfig struct {
	DryRun     bool `yaml:"dry_run"`
	NoPlanEdit bool `yaml:"no_plan_edit"`
	Strict     bool `yaml:"strict"`
}

// LoggingConfig controls the session log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LockConfig tunes internal/planlock's acquisition protocol.
type LockConfig struct {
	TimeoutSeconds    int `yaml:"timeout_seconds"`
	SleepIntervalMS   int `yaml:"sleep_interval_ms"`
	StaleAfterSeconds int `yaml:"stale_after_seconds"`
	StallThreshold    int `yaml:"stall_threshold"`
}

// DeadlockConfig tunes internal/deadlock's no-progress counter.
type DeadlockConfig struct {
	Threshold int `yaml:"threshold"`
}

// WatchConfig controls the opt-in internal/watch event hub (SPEC_FULL.md
// §D); off by default.
type WatchConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
}

// Default returns the built-in configuration defaults, exported for
// callers (like `planloop init`) that need to seed a starter config.yml.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		SafeModes: SafeModesConfig{
			Update: UpdateSafeModeConfig{
				DryRun:     false,
				NoPlanEdit: false,
				Strict:     false,
			},
		},
		Logging: LoggingConfig{Level: "INFO"},
		Lock: LockConfig{
			TimeoutSeconds:    30,
			SleepIntervalMS:   100,
			StaleAfterSeconds: 30,
			StallThreshold:    5,
		},
		Deadlock: DeadlockConfig{Threshold: 10},
		Watch: WatchConfig{
			Enabled:        false,
			Host:           "127.0.0.1",
			Port:           7631,
			MaxConnections: 50,
		},
	}
}

// Load reads and parses config.yml at path. Keys absent from the YAML
// leave the corresponding default untouched, matching yaml.v3's
// merge-into-existing-struct behavior when Unmarshal is called on a
// pre-populated value. A file that fails to parse returns an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns built-in defaults if the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return Load(path)
}

// Save atomically writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(dirOf(path), ".config-*.yml.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config: rename: %w", err)
	}
	ok = true
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// Diff compares two configs and returns human-readable descriptions of
// what changed, in the style of the teacher's config.Diff — used by the
// fsnotify watcher to log exactly what a reload altered.
func Diff(old, new *Config) []string {
	var changes []string

	if old.SafeModes.Update.DryRun != new.SafeModes.Update.DryRun {
		changes = append(changes, fmt.Sprintf("safe_modes.update.dry_run: %v -> %v", old.SafeModes.Update.DryRun, new.SafeModes.Update.DryRun))
	}
	if old.SafeModes.Update.NoPlanEdit != new.SafeModes.Update.NoPlanEdit {
		changes = append(changes, fmt.Sprintf("safe_modes.update.no_plan_edit: %v -> %v", old.SafeModes.Update.NoPlanEdit, new.SafeModes.Update.NoPlanEdit))
	}
	if old.SafeModes.Update.Strict != new.SafeModes.Update.Strict {
		changes = append(changes, fmt.Sprintf("safe_modes.update.strict: %v -> %v", old.SafeModes.Update.Strict, new.SafeModes.Update.Strict))
	}
	if old.Logging.Level != new.Logging.Level {
		changes = append(changes, fmt.Sprintf("logging.level: %s -> %s", old.Logging.Level, new.Logging.Level))
	}
	if old.Lock != new.Lock {
		changes = append(changes, fmt.Sprintf("lock: %+v -> %+v", old.Lock, new.Lock))
	}
	if old.Deadlock != new.Deadlock {
		changes = append(changes, fmt.Sprintf("deadlock: %+v -> %+v", old.Deadlock, new.Deadlock))
	}
	if old.Watch != new.Watch {
		changes = append(changes, fmt.Sprintf("watch: %+v -> %+v", old.Watch, new.Watch))
	}

	return changes
}
