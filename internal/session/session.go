// Package session creates fresh sessions: id generation, initial state
// construction, and the first persisted write. Ported from
// original_source's core/session.py; the random suffix uses
// google/uuid instead of Python's secrets.token_hex.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joelklabo/planloop/internal/deadlock"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/persist"
	"github.com/joelklabo/planloop/internal/planstate"
)

// Slugify lowercases name, maps runs of non-alphanumeric characters to a
// single hyphen, and falls back to "session" when nothing is left.
func Slugify(name string) string {
	var b strings.Builder
	lastWasSpace := true
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			b.WriteByte('-')
			lastWasSpace = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "session"
	}
	return slug
}

// NewID builds a session id of the form <slug>-<UTC timestamp>-<short
// random>, per spec.md §3's Session lifecycle.
func NewID(name string) string {
	slug := Slugify(name)
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	rand := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%s-%s", slug, timestamp, rand)
}

// Create builds and persists a fresh session: resolves a new id, writes
// an empty-task/signal initial state with now={reason: idle}, records it
// as the current session, and seeds its deadlock tracker.
func Create(homeDir, name, title, projectRoot string, env planstate.Environment, prompts planstate.PromptMetadata) (*planstate.SessionState, error) {
	id := NewID(name)
	sessionDir := home.SessionDir(homeDir, id)
	now := time.Now().UTC()

	s := &planstate.SessionState{
		SchemaVersion: planstate.CurrentSchemaVersion,
		Version:       1,
		Session:       id,
		Name:          name,
		Title:         title,
		CreatedAt:     now,
		LastUpdatedAt: now,
		ProjectRoot:   projectRoot,
		Prompts:       prompts,
		Environment:   env,
		Tasks:         []*planstate.Task{},
		Signals:       []*planstate.Signal{},
		NextSteps:     []string{},
		ContextNotes:  []string{},
		Artifacts:     []*planstate.Artifact{},
		Now:           planstate.Now{Reason: planstate.ReasonIdle},
	}

	if err := persist.Save(homeDir, sessionDir, s, "session created"); err != nil {
		return nil, fmt.Errorf("session: create %s: %w", id, err)
	}
	if err := home.SetCurrentSession(homeDir, id); err != nil {
		return nil, fmt.Errorf("session: set current session: %w", err)
	}

	tracker := &deadlock.Tracker{}
	if err := tracker.Persist(sessionDir); err != nil {
		return nil, fmt.Errorf("session: seed deadlock tracker: %w", err)
	}

	return s, nil
}
