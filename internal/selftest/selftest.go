// Package selftest runs a fixed set of scenarios end to end through the
// update pipeline inside a throwaway home directory, to verify the
// coordinator's invariants hold. Ported from original_source's
// core/selftest.py; the signal_and_tasks scenario has no original_source
// counterpart and is grounded directly on spec.md §4.8's scenario list.
package selftest

import (
	"fmt"
	"os"

	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/persist"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/session"
	"github.com/joelklabo/planloop/internal/signals"
	"github.com/joelklabo/planloop/internal/update"
)

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Failure aggregates per-scenario results when at least one fails.
type Failure struct {
	Results []ScenarioResult
}

func (f *Failure) Error() string {
	return "self-test scenarios failed"
}

type scenarioFunc func(homeDir string) (string, error)

var scenarios = []struct {
	name string
	fn   scenarioFunc
}{
	{"clean_run", scenarioCleanRun},
	{"ci_blocker", scenarioCIBlocker},
	{"dependency_chain", scenarioDependencyChain},
	{"signal_and_tasks", scenarioSignalAndTasks},
}

// Run executes every scenario inside a fresh temporary home directory and
// returns their results. It returns *Failure (in addition to the
// results) if any scenario failed.
func Run() ([]ScenarioResult, error) {
	tmpHome, err := os.MkdirTemp("", "planloop-selftest-")
	if err != nil {
		return nil, fmt.Errorf("selftest: create temp home: %w", err)
	}
	defer os.RemoveAll(tmpHome)

	homeDir, err := home.Resolve(tmpHome)
	if err != nil {
		return nil, fmt.Errorf("selftest: resolve temp home: %w", err)
	}

	results := make([]ScenarioResult, 0, len(scenarios))
	allPassed := true
	for _, sc := range scenarios {
		detail, err := sc.fn(homeDir)
		if err != nil {
			allPassed = false
			results = append(results, ScenarioResult{Name: sc.name, Status: "failed", Detail: err.Error()})
			continue
		}
		results = append(results, ScenarioResult{Name: sc.name, Status: "passed", Detail: detail})
	}

	if !allPassed {
		return results, &Failure{Results: results}
	}
	return results, nil
}

func applyUpdate(homeDir, sessionDir string, s *planstate.SessionState, p *update.Payload, message string) (*planstate.SessionState, error) {
	p.Session = s.Session
	if p.LastSeenVersion == "" {
		p.LastSeenVersion = fmt.Sprintf("%d", s.Version)
	}
	if err := update.ValidatePayload(s, p); err != nil {
		return nil, err
	}
	if err := update.Apply(s, p); err != nil {
		return nil, err
	}
	if err := planstate.Validate(s); err != nil {
		return nil, err
	}
	if err := persist.Save(homeDir, sessionDir, s, message); err != nil {
		return nil, err
	}
	return s, nil
}

func strPtr(s string) *string { return &s }

func scenarioCleanRun(homeDir string) (string, error) {
	s, err := session.Create(homeDir, "Selftest Clean", "UI polish", "/selftest/clean", planstate.Environment{OS: "unknown"}, planstate.PromptMetadata{Set: "core-v1"})
	if err != nil {
		return "", err
	}
	sessionDir := home.SessionDir(homeDir, s.Session)

	featureType := planstate.TaskTypeFeature
	docType := planstate.TaskTypeDoc
	s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
		AddTasks: []update.AddTaskInput{
			{Title: "Add button", Type: &featureType},
			{Title: "Write docs", Type: &docType},
		},
		ContextNotes: []string{"Clean scenario initialized"},
		NextSteps:    []string{"Finish both tasks"},
	}, "selftest clean init")
	if err != nil {
		return "", err
	}

	done := planstate.StatusDone
	s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
		Tasks: []update.TaskStatusPatch{
			{ID: 1, Status: &done},
			{ID: 2, Status: &done},
		},
		FinalSummary: strPtr("UI polish complete"),
	}, "selftest clean completion")
	if err != nil {
		return "", err
	}

	reloaded, err := persist.Load(sessionDir)
	if err != nil {
		return "", err
	}
	if reloaded.Now.Reason != planstate.ReasonCompleted {
		return "", fmt.Errorf("expected clean scenario to complete, got now.reason=%s", reloaded.Now.Reason)
	}
	return "Clean scenario completed with final summary", nil
}

func scenarioCIBlocker(homeDir string) (string, error) {
	s, err := session.Create(homeDir, "Selftest CI", "Crash fix", "/selftest/ci", planstate.Environment{OS: "unknown"}, planstate.PromptMetadata{Set: "core-v1"})
	if err != nil {
		return "", err
	}
	sessionDir := home.SessionDir(homeDir, s.Session)

	fixType := planstate.TaskTypeFix
	s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
		AddTasks:     []update.AddTaskInput{{Title: "Fix failing test", Type: &fixType}},
		ContextNotes: []string{"CI scenario bootstrapped"},
	}, "selftest ci init")
	if err != nil {
		return "", err
	}

	sig := &planstate.Signal{
		ID:      "ci-selftest",
		Type:    planstate.SignalCI,
		Kind:    "build",
		Level:   planstate.LevelBlocker,
		Open:    true,
		Title:   "Selftest CI failure",
		Message: "Simulated CI breakage",
	}
	if err := signals.Open(s, sig); err != nil {
		return "", err
	}
	if err := planstate.Validate(s); err != nil {
		return "", err
	}
	if err := persist.Save(homeDir, sessionDir, s, "selftest ci blocker open"); err != nil {
		return "", err
	}
	if s.Now.Reason != planstate.ReasonCIBlocker {
		return "", fmt.Errorf("expected now.reason=ci_blocker, got %s", s.Now.Reason)
	}

	if err := signals.Close(s, sig.ID); err != nil {
		return "", err
	}
	if err := planstate.Validate(s); err != nil {
		return "", err
	}
	if err := persist.Save(homeDir, sessionDir, s, "selftest ci blocker closed"); err != nil {
		return "", err
	}
	if s.Now.Reason != planstate.ReasonTask {
		return "", fmt.Errorf("expected now.reason=task after closing blocker, got %s", s.Now.Reason)
	}

	return "CI blocker opened and cleared", nil
}

func scenarioDependencyChain(homeDir string) (string, error) {
	s, err := session.Create(homeDir, "Selftest Coverage", "Coverage pipeline", "/selftest/coverage", planstate.Environment{OS: "unknown"}, planstate.PromptMetadata{Set: "core-v1"})
	if err != nil {
		return "", err
	}
	sessionDir := home.SessionDir(homeDir, s.Session)

	testType := planstate.TaskTypeTest
	refactorType := planstate.TaskTypeRefactor
	s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
		AddTasks: []update.AddTaskInput{
			{Title: "Add coverage tests", Type: &testType},
			{Title: "Refactor module", Type: &refactorType, DependsOn: []int{1}},
		},
		ContextNotes: []string{"Coverage chain initialized"},
	}, "selftest dependency init")
	if err != nil {
		return "", err
	}
	if s.Now.Reason != planstate.ReasonTask || s.Now.TaskID == nil || *s.Now.TaskID != 1 {
		return "", fmt.Errorf("expected task 1 to be active, got now=%+v", s.Now)
	}

	done := planstate.StatusDone
	s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
		Tasks: []update.TaskStatusPatch{{ID: 1, Status: &done}},
	}, "selftest dependency step 1")
	if err != nil {
		return "", err
	}
	if s.Now.TaskID == nil || *s.Now.TaskID != 2 {
		return "", fmt.Errorf("expected dependent task to unlock, got now=%+v", s.Now)
	}

	s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
		Tasks:        []update.TaskStatusPatch{{ID: 2, Status: &done}},
		FinalSummary: strPtr("Coverage pipeline wrapped"),
	}, "selftest dependency completion")
	if err != nil {
		return "", err
	}
	if s.Now.Reason != planstate.ReasonCompleted {
		return "", fmt.Errorf("expected dependency scenario to complete, got now.reason=%s", s.Now.Reason)
	}

	return "Dependency chain resolved", nil
}

func scenarioSignalAndTasks(homeDir string) (string, error) {
	s, err := session.Create(homeDir, "Selftest Mixed", "Mixed signal and tasks", "/selftest/mixed", planstate.Environment{OS: "unknown"}, planstate.PromptMetadata{Set: "core-v1"})
	if err != nil {
		return "", err
	}
	sessionDir := home.SessionDir(homeDir, s.Session)

	featureType := planstate.TaskTypeFeature
	s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
		AddTasks: []update.AddTaskInput{
			{Title: "Task one", Type: &featureType},
			{Title: "Task two", Type: &featureType},
			{Title: "Task three", Type: &featureType},
		},
	}, "selftest mixed init")
	if err != nil {
		return "", err
	}

	inProgress := planstate.StatusInProgress
	s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
		Tasks: []update.TaskStatusPatch{{ID: 1, Status: &inProgress}},
	}, "selftest mixed begin task 1")
	if err != nil {
		return "", err
	}
	if s.Now.Reason != planstate.ReasonTask || s.Now.TaskID == nil || *s.Now.TaskID != 1 {
		return "", fmt.Errorf("expected task 1 in progress to stay active, got now=%+v", s.Now)
	}

	sig := &planstate.Signal{
		ID:      "mixed-blocker",
		Type:    planstate.SignalCI,
		Kind:    "build",
		Level:   planstate.LevelBlocker,
		Open:    true,
		Title:   "Mixed scenario blocker",
		Message: "Simulated breakage mid-task",
	}
	if err := signals.Open(s, sig); err != nil {
		return "", err
	}
	if err := planstate.Validate(s); err != nil {
		return "", err
	}
	if err := persist.Save(homeDir, sessionDir, s, "selftest mixed blocker open"); err != nil {
		return "", err
	}
	if s.Now.Reason != planstate.ReasonCIBlocker {
		return "", fmt.Errorf("expected now.reason=ci_blocker, got %s", s.Now.Reason)
	}

	if err := signals.Close(s, sig.ID); err != nil {
		return "", err
	}
	if err := planstate.Validate(s); err != nil {
		return "", err
	}
	if err := persist.Save(homeDir, sessionDir, s, "selftest mixed blocker closed"); err != nil {
		return "", err
	}
	if s.Now.Reason != planstate.ReasonTask || s.Now.TaskID == nil || *s.Now.TaskID != 1 {
		return "", fmt.Errorf("expected now back on task 1 after blocker closed, got now=%+v", s.Now)
	}

	done := planstate.StatusDone
	for _, id := range []int{1, 2, 3} {
		s, err = applyUpdate(homeDir, sessionDir, s, &update.Payload{
			Tasks: []update.TaskStatusPatch{{ID: id, Status: &done}},
		}, fmt.Sprintf("selftest mixed complete task %d", id))
		if err != nil {
			return "", err
		}
	}
	if s.Now.Reason != planstate.ReasonCompleted {
		return "", fmt.Errorf("expected now.reason=completed at the end, got %s", s.Now.Reason)
	}

	return "Signal opened and closed mid-chain, all tasks completed", nil
}
