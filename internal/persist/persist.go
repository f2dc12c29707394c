// Package persist owns save/load of a single session's state.json and
// PLAN.md, plus the registry upsert that follows a successful save. The
// atomic write technique is the teacher's gamification/persistence.go
// temp-file-then-rename pattern; the five-step save sequence and
// PLAN.md's shape are ported from spec.md §4.3 and original_source's
// core/render.py.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joelklabo/planloop/internal/planerrors"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/registry"
)

const (
	stateFileName = "state.json"
	planFileName  = "PLAN.md"
)

// StatePath returns the path to state.json under a session directory.
func StatePath(sessionDir string) string {
	return filepath.Join(sessionDir, stateFileName)
}

// PlanPath returns the path to PLAN.md under a session directory.
func PlanPath(sessionDir string) string {
	return filepath.Join(sessionDir, planFileName)
}

// Load reads and parses state.json from sessionDir. Returns
// planerrors.ErrNotFound if the session does not exist on disk.
func Load(sessionDir string) (*planstate.SessionState, error) {
	data, err := os.ReadFile(StatePath(sessionDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: session at %s", planerrors.ErrNotFound, sessionDir)
		}
		return nil, fmt.Errorf("persist: read state: %w", err)
	}
	var s planstate.SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: state.json: %v", planerrors.ErrMalformedInput, err)
	}
	return &s, nil
}

// Save performs the five steps of spec.md §4.3: revalidate, bump
// last_updated_at, atomically write state.json, atomically write the
// rendered PLAN.md, and upsert the session registry. Each file write is
// atomic, so no file is left half-written; a failure after state.json has
// been replaced (writing PLAN.md or upserting the registry) leaves the new
// state.json in place. The message argument is not recorded anywhere.
func Save(homeDir, sessionDir string, s *planstate.SessionState, message string) error {
	if err := planstate.Validate(s); err != nil {
		return err
	}
	s.LastUpdatedAt = time.Now().UTC()

	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return fmt.Errorf("persist: mkdir %s: %w", sessionDir, err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal state: %w", err)
	}
	data = append(data, '\n')
	if err := atomicWrite(sessionDir, StatePath(sessionDir), data); err != nil {
		return fmt.Errorf("persist: write state.json: %w", err)
	}

	plan := []byte(RenderPlan(s))
	if err := atomicWrite(sessionDir, PlanPath(sessionDir), plan); err != nil {
		return fmt.Errorf("persist: write PLAN.md: %w", err)
	}

	if homeDir != "" {
		summary := registry.SessionSummary{
			Session:       s.Session,
			Name:          s.Name,
			Title:         s.Title,
			Tags:          s.Tags,
			ProjectRoot:   s.ProjectRoot,
			CreatedAt:     s.CreatedAt,
			LastUpdatedAt: s.LastUpdatedAt,
			Done:          s.Done,
		}
		if err := registry.Upsert(filepath.Join(homeDir, "index.json"), summary); err != nil {
			return fmt.Errorf("persist: upsert registry: %w", err)
		}
	}

	_ = message // reserved for the JSONL log line a caller may append
	return nil
}

func atomicWrite(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
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
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	committed = true
	return nil
}
