package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joelklabo/planloop/internal/config"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/watch"
)

// resolveHome resolves the effective home directory for this invocation.
func resolveHome() (string, error) {
	return home.Resolve(homeFlag)
}

// resolveSession resolves the session id to operate on, given the
// command's --session flag value (may be empty).
func resolveSession(homeDir, explicit string) (string, error) {
	return home.ResolveSession(homeDir, explicit)
}

// resolveAgent resolves the caller identity for lock/queue metadata.
func resolveAgent() string {
	return home.AgentIdentity(agentFlag)
}

// emitJSON writes v to stdout as the command's single JSON document.
// compact produces one line (for machine piping); the default is
// indented for interactive readability, both satisfying "exactly one
// JSON document on stdout" per SPEC_FULL.md §E.
func emitJSON(v interface{}, compact bool) error {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Println(string(data))
	return err
}

// readPayload reads update payload JSON from the given file path, or
// from stdin when path is empty.
func readPayload(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// notifyWatch pushes an event into a separately running
// "planloop debug --watch" process's hub, if the loaded config has the
// watch block enabled. It is a no-op (beyond a logged warning) when no
// hub is listening, since watch is opt-in, non-core infrastructure.
func notifyWatch(cfg *config.Config, eventType watch.EventType, payload interface{}) {
	if cfg == nil || !cfg.Watch.Enabled {
		return
	}
	watch.Notify(cfg.Watch.Host, cfg.Watch.Port, eventType, payload)
}
