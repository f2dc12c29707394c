package selftest

import "testing"

func TestRun_AllScenariosPass(t *testing.T) {
	results, err := Run()
	if err != nil {
		t.Fatalf("Run() err = %v, want nil (all scenarios passing)", err)
	}
	if len(results) != 4 {
		t.Fatalf("Run() returned %d results, want 4", len(results))
	}
	want := map[string]bool{
		"clean_run":        true,
		"ci_blocker":       true,
		"dependency_chain": true,
		"signal_and_tasks": true,
	}
	for _, r := range results {
		if r.Status != "passed" {
			t.Errorf("scenario %s = %s: %s", r.Name, r.Status, r.Detail)
		}
		if !want[r.Name] {
			t.Errorf("unexpected scenario name %q", r.Name)
		}
		delete(want, r.Name)
	}
	if len(want) != 0 {
		t.Errorf("missing scenarios: %v", want)
	}
}

func TestRun_CleanRunScenarioOnly(t *testing.T) {
	homeDir := t.TempDir()
	detail, err := scenarioCleanRun(homeDir)
	if err != nil {
		t.Fatalf("scenarioCleanRun: %v", err)
	}
	if detail == "" {
		t.Error("scenarioCleanRun returned empty detail")
	}
}

func TestRun_DependencyChainScenarioOnly(t *testing.T) {
	homeDir := t.TempDir()
	if _, err := scenarioDependencyChain(homeDir); err != nil {
		t.Fatalf("scenarioDependencyChain: %v", err)
	}
}

func TestFailure_ErrorMentionsScenarios(t *testing.T) {
	f := &Failure{Results: []ScenarioResult{{Name: "x", Status: "failed", Detail: "boom"}}}
	if f.Error() == "" {
		t.Error("Failure.Error() returned empty string")
	}
}
