package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joelklabo/planloop/internal/config"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/session"
)

func resetFlags(homeDir string) {
	homeFlag = homeDir
	agentFlag = "test-agent"
	statusSessionFlag = ""
	statusJSONFlag = false
	statusWatchFlag = false
}

func TestRunInit_BootstrapsHomeAndConfig(t *testing.T) {
	dir := t.TempDir()
	resetFlags(dir)

	out, err := captureStdout(t, func() error { return runInit(initCmd, nil) })
	if err != nil {
		t.Fatalf("runInit: %v", err)
	}

	var resp InitResponse
	decodeJSON(t, out, &resp)
	if resp.Home != dir {
		t.Errorf("Home = %q, want %q", resp.Home, dir)
	}
	if !resp.ConfigWritten {
		t.Error("ConfigWritten = false, want true on first init")
	}
}

func TestRunStatus_ReportsFreshSessionAsIdle(t *testing.T) {
	dir := t.TempDir()
	resetFlags(dir)

	s, err := session.Create(dir, "demo", "Demo session", "/repo", planstate.Environment{OS: "linux"}, planstate.PromptMetadata{})
	if err != nil {
		t.Fatalf("session.Create: %v", err)
	}
	statusSessionFlag = s.Session

	out, err := captureStdout(t, func() error { return runStatus(statusCmd, nil) })
	if err != nil {
		t.Fatalf("runStatus: %v", err)
	}

	var resp StatusResponse
	decodeJSON(t, out, &resp)
	if resp.Session != s.Session {
		t.Errorf("Session = %q, want %q", resp.Session, s.Session)
	}
	if resp.Now.Reason != planstate.ReasonIdle {
		t.Errorf("Now.Reason = %q, want idle", resp.Now.Reason)
	}
	if resp.AgentInstructions == "" {
		t.Error("AgentInstructions is empty")
	}
}

func TestRunStatus_EscalatesToDeadlockedAfterRepeatedPolls(t *testing.T) {
	dir := t.TempDir()
	resetFlags(dir)

	cfg := config.Default()
	cfg.Deadlock.Threshold = 3
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	if err := config.Save(home.ConfigPath(dir), cfg); err != nil {
		t.Fatalf("config.Save: %v", err)
	}

	s, err := session.Create(dir, "demo", "Demo session", "/repo", planstate.Environment{OS: "linux"}, planstate.PromptMetadata{})
	if err != nil {
		t.Fatalf("session.Create: %v", err)
	}
	statusSessionFlag = s.Session

	var last StatusResponse
	for i := 0; i < 4; i++ {
		out, err := captureStdout(t, func() error { return runStatus(statusCmd, nil) })
		if err != nil {
			t.Fatalf("runStatus iteration %d: %v", i, err)
		}
		decodeJSON(t, out, &last)
	}

	if last.Now.Reason != planstate.ReasonDeadlocked {
		t.Errorf("Now.Reason = %q, want deadlocked after repeated no-progress polls", last.Now.Reason)
	}
	foundSignal := false
	for _, sig := range last.Signals {
		if sig.ID == "deadlock" && sig.Open {
			foundSignal = true
		}
	}
	if !foundSignal {
		t.Error("expected an open deadlock signal after escalation")
	}
}

func TestRunUpdate_AddsTaskAndReportsVersion(t *testing.T) {
	dir := t.TempDir()
	resetFlags(dir)

	s, err := session.Create(dir, "demo", "Demo session", "/repo", planstate.Environment{OS: "linux"}, planstate.PromptMetadata{})
	if err != nil {
		t.Fatalf("session.Create: %v", err)
	}

	updateSessionFlag = s.Session
	updateFileFlag = writeTempPayload(t, `{"add_tasks":[{"title":"write the thing"}]}`)
	updateDryRunFlag = false
	updateNoPlanEditFlag = false
	updateStrictFlag = false
	updateAllowPlanEditFlag = false
	updateAllowExtraFieldsFlag = false

	out, err := captureStdout(t, func() error { return runUpdate(updateCmd, nil) })
	if err != nil {
		t.Fatalf("runUpdate: %v", err)
	}

	var resp UpdateResponse
	decodeJSON(t, out, &resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
	if resp.Version != 2 {
		t.Errorf("Version = %d, want 2", resp.Version)
	}
}

func TestRunSelftest_AllScenariosPass(t *testing.T) {
	selftestJSONFlag = true
	out, err := captureStdout(t, func() error { return runSelftest(selftestCmd, nil) })
	if err != nil {
		t.Fatalf("runSelftest: %v", err)
	}

	var resp SelftestResponse
	decodeJSON(t, out, &resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok; scenarios: %+v", resp.Status, resp.Scenarios)
	}
	if len(resp.Scenarios) != 4 {
		t.Errorf("len(Scenarios) = %d, want 4", len(resp.Scenarios))
	}
}

func TestRunAlert_OpensAndClosesSignal(t *testing.T) {
	dir := t.TempDir()
	resetFlags(dir)

	s, err := session.Create(dir, "demo", "Demo session", "/repo", planstate.Environment{OS: "linux"}, planstate.PromptMetadata{})
	if err != nil {
		t.Fatalf("session.Create: %v", err)
	}

	alertSessionFlag = s.Session
	alertIDFlag = ""
	alertCloseFlag = false
	alertLevelFlag = string(planstate.LevelBlocker)
	alertTypeFlag = string(planstate.SignalCI)
	alertKindFlag = "failing_test"
	alertTitleFlag = "CI is red"
	alertMessageFlag = "unit tests failing on main"
	alertLinkFlag = ""

	out, err := captureStdout(t, func() error { return runAlert(alertCmd, nil) })
	if err != nil {
		t.Fatalf("runAlert (open): %v", err)
	}
	var opened AlertResponse
	decodeJSON(t, out, &opened)
	if opened.Now.Reason != planstate.ReasonCIBlocker {
		t.Errorf("Now.Reason after open = %q, want ci_blocker", opened.Now.Reason)
	}
	if opened.SignalID == "" {
		t.Fatal("SignalID is empty after open")
	}

	alertIDFlag = opened.SignalID
	alertCloseFlag = true

	out, err = captureStdout(t, func() error { return runAlert(alertCmd, nil) })
	if err != nil {
		t.Fatalf("runAlert (close): %v", err)
	}
	var closed AlertResponse
	decodeJSON(t, out, &closed)
	if closed.Now.Reason == planstate.ReasonCIBlocker {
		t.Error("Now.Reason still ci_blocker after closing the only open signal")
	}
}

func writeTempPayload(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp payload: %v", err)
	}
	return path
}
