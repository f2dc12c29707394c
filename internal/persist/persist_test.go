package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joelklabo/planloop/internal/planerrors"
	"github.com/joelklabo/planloop/internal/planstate"
)

func newState(session string) *planstate.SessionState {
	return &planstate.SessionState{
		SchemaVersion: planstate.CurrentSchemaVersion,
		Session:       session,
		Title:         "demo",
		CreatedAt:     time.Now().UTC(),
		Now:           planstate.Now{Reason: planstate.ReasonIdle},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	home := t.TempDir()
	sessionDir := filepath.Join(home, "sessions", "s1")
	s := newState("s1")

	if err := Save(home, sessionDir, s, "initial"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(sessionDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Session != "s1" || loaded.Title != "demo" {
		t.Errorf("Load() = %+v, want session s1 title demo", loaded)
	}

	if _, err := os.Stat(PlanPath(sessionDir)); err != nil {
		t.Errorf("PLAN.md not written: %v", err)
	}
	planData, err := os.ReadFile(PlanPath(sessionDir))
	if err != nil {
		t.Fatalf("read PLAN.md: %v", err)
	}
	if !strings.HasPrefix(string(planData), "---\n") {
		n := len(planData)
		if n > 40 {
			n = 40
		}
		t.Errorf("PLAN.md missing front matter: %q", planData[:n])
	}
}

func TestLoad_MissingSessionIsNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("Load() err = nil, want ErrNotFound")
	}
	if kind := planerrors.Kind(err); kind != "NotFound" {
		t.Errorf("Kind(err) = %q, want NotFound", kind)
	}
}

func TestSave_RejectsInvalidState(t *testing.T) {
	home := t.TempDir()
	sessionDir := filepath.Join(home, "sessions", "s2")
	s := newState("s2")
	s.Tasks = []*planstate.Task{{ID: 1, DependsOn: []int{1}, Type: planstate.TaskTypeFeature, Status: planstate.StatusTODO}}

	err := Save(home, sessionDir, s, "bad")
	if err == nil {
		t.Fatal("Save() err = nil, want validation error")
	}
	if _, statErr := os.Stat(StatePath(sessionDir)); !os.IsNotExist(statErr) {
		t.Errorf("state.json should not have been written on validation failure")
	}
}

func TestRenderPlan_IncludesTasksAndSignals(t *testing.T) {
	s := newState("s3")
	s.Tasks = []*planstate.Task{{ID: 1, Title: "do thing", Type: planstate.TaskTypeFeature, Status: planstate.StatusTODO}}
	s.Signals = []*planstate.Signal{{ID: "sig1", Type: planstate.SignalCI, Level: planstate.LevelBlocker, Open: true, Title: "CI", Message: "failing"}}
	out := RenderPlan(s)
	if !strings.Contains(out, "do thing") {
		t.Errorf("RenderPlan() missing task title: %s", out)
	}
	if !strings.Contains(out, "CI") {
		t.Errorf("RenderPlan() missing signal title: %s", out)
	}
}
