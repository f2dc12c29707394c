// Package registry owns <home>/index.json, the home-level index mapping
// session id to summary. Shape ported from original_source's
// core/registry.py (SessionSummary, replace-then-resort-by-last_updated_at
// upsert semantics); the atomic write itself reuses the teacher's
// gamification/persistence.go temp-file-then-rename pattern.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SessionSummary is one entry in the home registry.
type SessionSummary struct {
	Session       string    `json:"session"`
	Name          string    `json:"name"`
	Title         string    `json:"title"`
	Tags          []string  `json:"tags"`
	ProjectRoot   string    `json:"project_root"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	Done          bool      `json:"done"`
}

type registryFile struct {
	Sessions  []SessionSummary `json:"sessions"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Load reads all summaries from path. A missing file yields an empty
// slice, not an error.
func Load(path string) ([]SessionSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var rf registryFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	return rf.Sessions, nil
}

// Save atomically writes entries to path, sorted by LastUpdatedAt
// descending (newest first), matching upsert_session's resort.
func Save(path string, entries []SessionSummary) error {
	sorted := make([]SessionSummary, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastUpdatedAt.After(sorted[j].LastUpdatedAt)
	})

	rf := registryFile{Sessions: sorted, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.json.tmp")
	if err != nil {
		return fmt.Errorf("registry: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("registry: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("registry: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("registry: rename: %w", err)
	}
	committed = true
	return nil
}

// Upsert loads the registry at path, replaces any existing entry with the
// same Session id, appends summary, and saves the result re-sorted.
func Upsert(path string, summary SessionSummary) error {
	entries, err := Load(path)
	if err != nil {
		return err
	}
	filtered := entries[:0:0]
	for _, e := range entries {
		if e.Session != summary.Session {
			filtered = append(filtered, e)
		}
	}
	filtered = append(filtered, summary)
	return Save(path, filtered)
}

// List returns all registry entries, sorted newest-first.
func List(path string) ([]SessionSummary, error) {
	return Load(path)
}

// Get returns the summary for the given session id, or false if absent.
func Get(path, sessionID string) (SessionSummary, bool, error) {
	entries, err := Load(path)
	if err != nil {
		return SessionSummary{}, false, err
	}
	for _, e := range entries {
		if e.Session == sessionID {
			return e, true, nil
		}
	}
	return SessionSummary{}, false, nil
}
