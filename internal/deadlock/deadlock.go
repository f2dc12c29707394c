// Package deadlock implements the no-progress and queue-stall detectors
// of spec.md §4.5/§4.4. Ported near verbatim from original_source's
// core/deadlock.py (hash comparison, register_queue_head counter
// semantics); the atomic-write helper follows the teacher's
// temp-file-then-rename idiom used throughout this project.
package deadlock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joelklabo/planloop/internal/planstate"
)

const trackerFileName = "deadlock.json"

// TrackerPath returns the path to deadlock.json under a session directory.
func TrackerPath(sessionDir string) string {
	return filepath.Join(sessionDir, trackerFileName)
}

// Tracker is the small persisted state object tracking no-progress
// polling and queue-head stagnation (spec.md §3's DeadlockTracker).
type Tracker struct {
	LastStateHash     string `json:"last_state_hash"`
	NoProgressCounter int    `json:"no_progress_counter"`
	QueueHead         string `json:"queue_head"`
	QueueStallCounter int    `json:"queue_stall_counter"`
}

// Load reads the tracker from sessionDir, returning a zero-value Tracker
// if no file exists yet.
func Load(sessionDir string) (*Tracker, error) {
	data, err := os.ReadFile(TrackerPath(sessionDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Tracker{}, nil
		}
		return nil, fmt.Errorf("deadlock: read tracker: %w", err)
	}
	var t Tracker
	if len(data) == 0 {
		return &Tracker{}, nil
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("deadlock: parse tracker: %w", err)
	}
	return &t, nil
}

// Persist writes the tracker to sessionDir. Last-writer-wins is
// acceptable per spec.md §5: the hash comparison self-corrects.
func (t *Tracker) Persist(sessionDir string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("deadlock: marshal tracker: %w", err)
	}
	return os.WriteFile(TrackerPath(sessionDir), data, 0o644)
}

// StateHash hashes state (excluding LastUpdatedAt, the one field that
// mutates without representing "progress") with SHA-256.
func StateHash(s *planstate.SessionState) (string, error) {
	clone := s.Clone()
	clone.LastUpdatedAt = clone.CreatedAt // neutralize the volatile field
	data, err := json.Marshal(clone)
	if err != nil {
		return "", fmt.Errorf("deadlock: marshal for hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

const deadlockSignalID = "deadlock"

// Check implements spec.md §4.5: hashes state, compares to the tracker's
// stored hash, increments or resets the no-progress counter, and — once
// the counter crosses threshold — appends an idempotent
// system/deadlock_suspected blocker signal and overrides state.Now to
// {deadlocked, signal_id: deadlock}. Returns whether the state was
// mutated (an escalation occurred) so the caller knows to persist it.
func Check(s *planstate.SessionState, sessionDir string, threshold int) (bool, error) {
	tracker, err := Load(sessionDir)
	if err != nil {
		return false, err
	}

	hash, err := StateHash(s)
	if err != nil {
		return false, err
	}
	if hash == tracker.LastStateHash {
		tracker.NoProgressCounter++
	} else {
		tracker.LastStateHash = hash
		tracker.NoProgressCounter = 0
	}

	escalated := false
	if tracker.NoProgressCounter >= threshold {
		if s.SignalByID(deadlockSignalID) == nil {
			s.Signals = append(s.Signals, &planstate.Signal{
				ID:      deadlockSignalID,
				Type:    planstate.SignalSystem,
				Kind:    "deadlock_suspected",
				Level:   planstate.LevelBlocker,
				Open:    true,
				Title:   "Potential deadlock detected",
				Message: "Agent called status without making progress",
			})
		}
		id := deadlockSignalID
		s.Now = planstate.Now{Reason: planstate.ReasonDeadlocked, SignalID: &id}
		escalated = true
		// Track the escalated state's hash so the detector's own mutation
		// is not counted as progress on the next call.
		if h, err := StateHash(s); err == nil {
			tracker.LastStateHash = h
		}
	}

	if err := tracker.Persist(sessionDir); err != nil {
		return escalated, err
	}
	return escalated, nil
}

// RegisterQueueHead implements the queue-stall half of spec.md §4.4: each
// scan reports who currently heads the queue. A distinct head resets the
// counter; the same head increments it. Returns whether the counter has
// crossed threshold (the caller should escalate a queue_stall signal).
func (t *Tracker) RegisterQueueHead(headAgent string, shouldTrack bool, threshold int) bool {
	if !shouldTrack || headAgent == "" {
		t.QueueHead = ""
		t.QueueStallCounter = 0
		return false
	}
	if t.QueueHead != headAgent {
		t.QueueHead = headAgent
		t.QueueStallCounter = 1
	} else {
		t.QueueStallCounter++
	}
	return t.QueueStallCounter >= threshold
}
