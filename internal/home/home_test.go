package home

import (
	"path/filepath"
	"testing"
)

func TestResolve_ExplicitOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "custom-home")
	got, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != dir {
		t.Errorf("Resolve() = %q, want %q", got, dir)
	}
	if _, err := filepath.Abs(filepath.Join(got, SessionsDir)); err != nil {
		t.Errorf("sessions dir path: %v", err)
	}
}

func TestResolve_EnvOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "env-home")
	t.Setenv(HomeEnvVar, dir)
	got, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != dir {
		t.Errorf("Resolve() = %q, want %q", got, dir)
	}
}

func TestCurrentSessionPointer_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	if _, err := Resolve(dir); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, err := GetCurrentSession(dir); err != nil || got != "" {
		t.Fatalf("GetCurrentSession() = %q, %v; want empty, nil", got, err)
	}
	if err := SetCurrentSession(dir, "demo-sess-1"); err != nil {
		t.Fatalf("SetCurrentSession: %v", err)
	}
	got, err := GetCurrentSession(dir)
	if err != nil {
		t.Fatalf("GetCurrentSession: %v", err)
	}
	if got != "demo-sess-1" {
		t.Errorf("GetCurrentSession() = %q, want demo-sess-1", got)
	}
}

func TestResolveSession_Precedence(t *testing.T) {
	dir := t.TempDir()
	if _, err := Resolve(dir); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := SetCurrentSession(dir, "from-pointer"); err != nil {
		t.Fatalf("SetCurrentSession: %v", err)
	}

	t.Run("explicit wins", func(t *testing.T) {
		got, err := ResolveSession(dir, "explicit-session")
		if err != nil {
			t.Fatalf("ResolveSession: %v", err)
		}
		if got != "explicit-session" {
			t.Errorf("ResolveSession() = %q, want explicit-session", got)
		}
	})

	t.Run("pointer wins over env", func(t *testing.T) {
		t.Setenv(SessionEnvVar, "from-env")
		got, err := ResolveSession(dir, "")
		if err != nil {
			t.Fatalf("ResolveSession: %v", err)
		}
		if got != "from-pointer" {
			t.Errorf("ResolveSession() = %q, want from-pointer", got)
		}
	})

	t.Run("falls back to pointer", func(t *testing.T) {
		got, err := ResolveSession(dir, "")
		if err != nil {
			t.Fatalf("ResolveSession: %v", err)
		}
		if got != "from-pointer" {
			t.Errorf("ResolveSession() = %q, want from-pointer", got)
		}
	})
}

func TestAgentIdentity(t *testing.T) {
	if got := AgentIdentity("alice"); got != "alice" {
		t.Errorf("AgentIdentity() = %q, want alice", got)
	}
	t.Setenv(AgentEnvVar, "bob")
	if got := AgentIdentity(""); got != "bob" {
		t.Errorf("AgentIdentity() = %q, want bob", got)
	}
}
