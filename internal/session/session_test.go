package session

import (
	"strings"
	"testing"

	"github.com/joelklabo/planloop/internal/deadlock"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/persist"
	"github.com/joelklabo/planloop/internal/planstate"
)

func TestSlugify_LowercasesAndHyphenates(t *testing.T) {
	cases := map[string]string{
		"Selftest Clean":  "selftest-clean",
		"  messy!! Name ": "messy-name",
		"":                 "session",
		"***":              "session",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewID_HasSlugTimestampAndSuffix(t *testing.T) {
	id := NewID("My Session")
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		t.Fatalf("NewID() = %q, want at least 3 hyphen-separated parts", id)
	}
	if !strings.HasPrefix(id, "my-session-") {
		t.Errorf("NewID() = %q, want prefix my-session-", id)
	}
}

func TestCreate_PersistsAndSetsCurrentSession(t *testing.T) {
	homeDir := t.TempDir()

	s, err := Create(homeDir, "Demo", "demo title", "/repo", planstate.Environment{OS: "linux"}, planstate.PromptMetadata{Set: "core-v1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Now.Reason != planstate.ReasonIdle {
		t.Errorf("Now.Reason = %q, want idle", s.Now.Reason)
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}

	current, err := home.GetCurrentSession(homeDir)
	if err != nil {
		t.Fatalf("GetCurrentSession: %v", err)
	}
	if current != s.Session {
		t.Errorf("current session = %q, want %q", current, s.Session)
	}

	sessionDir := home.SessionDir(homeDir, s.Session)
	loaded, err := persist.Load(sessionDir)
	if err != nil {
		t.Fatalf("persist.Load: %v", err)
	}
	if loaded.Title != "demo title" {
		t.Errorf("loaded.Title = %q, want demo title", loaded.Title)
	}

	tracker, err := deadlock.Load(sessionDir)
	if err != nil {
		t.Fatalf("deadlock.Load: %v", err)
	}
	if tracker.NoProgressCounter != 0 {
		t.Errorf("fresh tracker NoProgressCounter = %d, want 0", tracker.NoProgressCounter)
	}
}
