// Package home resolves the planloop home directory and the small set of
// top-level files that live directly under it (the current-session
// pointer, the session registry). Per-session state lives under
// sessions/<id>/ and is owned by internal/persist.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// HomeEnvVar overrides the resolved home directory.
	HomeEnvVar = "PLANLOOP_HOME"

	// SessionEnvVar is the fallback session id when --session is omitted,
	// checked after the current-session pointer file.
	SessionEnvVar = "PLANLOOP_SESSION"

	// AgentEnvVar identifies the caller in lock metadata and queue entries.
	AgentEnvVar = "PLANLOOP_AGENT_NAME"

	defaultDirName = ".planloop"

	// SessionsDir is the directory under home holding one subdirectory per session.
	SessionsDir = "sessions"

	// ConfigFileName is the user config file under home.
	ConfigFileName = "config.yml"

	// RegistryFileName is the session registry under home.
	RegistryFileName = "index.json"

	// CurrentSessionFile is the pointer file under home.
	CurrentSessionFile = "current_session"
)

// Resolve returns the planloop home directory, creating it if necessary.
// PLANLOOP_HOME, when set, is expanded and used verbatim; otherwise
// ~/.planloop is used.
func Resolve(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = os.Getenv(HomeEnvVar)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, defaultDirName)
	} else {
		expanded, err := expandUser(dir)
		if err != nil {
			return "", err
		}
		dir = expanded
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(abs, SessionsDir), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func expandUser(path string) (string, error) {
	if path == "~" || len(path) == 0 {
		return os.UserHomeDir()
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// SessionDir returns the directory for a given session id under home.
func SessionDir(homeDir, sessionID string) string {
	return filepath.Join(homeDir, SessionsDir, sessionID)
}

// ConfigPath returns the path to config.yml under home.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, ConfigFileName)
}

// RegistryPath returns the path to index.json under home.
func RegistryPath(homeDir string) string {
	return filepath.Join(homeDir, RegistryFileName)
}

// CurrentSessionPath returns the path to the current-session pointer file.
func CurrentSessionPath(homeDir string) string {
	return filepath.Join(homeDir, CurrentSessionFile)
}

// SetCurrentSession writes the pointer file.
func SetCurrentSession(homeDir, sessionID string) error {
	return os.WriteFile(CurrentSessionPath(homeDir), []byte(sessionID), 0o644)
}

// GetCurrentSession reads the pointer file. Returns "" if unset or missing.
func GetCurrentSession(homeDir string) (string, error) {
	data, err := os.ReadFile(CurrentSessionPath(homeDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return trimSpace(string(data)), nil
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// ResolveSession determines which session id to operate on, given an
// explicit flag value (may be empty). It checks, in order: the explicit
// value, the current_session pointer file, then PLANLOOP_SESSION.
func ResolveSession(homeDir, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	current, err := GetCurrentSession(homeDir)
	if err != nil || current != "" {
		return current, err
	}
	return os.Getenv(SessionEnvVar), nil
}

// AgentIdentity resolves the caller identity used for lock/queue metadata:
// explicit flag value, else PLANLOOP_AGENT_NAME, else "pid:<pid>".
func AgentIdentity(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(AgentEnvVar); env != "" {
		return env
	}
	return fmt.Sprintf("pid:%d", os.Getpid())
}
