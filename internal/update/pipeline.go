package update

import (
	"fmt"

	"github.com/joelklabo/planloop/internal/planlock"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/persist"
)

// Result is what Run returns on a successful (non-dry-run) update.
type Result struct {
	Version int `json:"version"`
}

// Run implements the full algorithm of spec.md §4.6: validate the
// payload against the loaded state, apply safe-mode gating, and either
// return a dry-run diff or acquire the lock, apply + validate + persist,
// and return the new version. All errors are terminal — no partial
// writes, no retries.
func Run(homeDir, sessionDir string, agent string, p *Payload, modes SafeModes, lockOpts planlock.Options) (result *Result, diff *StateDiff, err error) {
	state, err := persist.Load(sessionDir)
	if err != nil {
		return nil, nil, err
	}

	if err := ValidatePayload(state, p); err != nil {
		return nil, nil, err
	}
	if err := CheckSafeModes(p, modes); err != nil {
		return nil, nil, err
	}

	if modes.DryRun {
		clone := state.Clone()
		if err := Apply(clone, p); err != nil {
			return nil, nil, err
		}
		d := Diff(state, clone)
		return nil, &d, nil
	}

	handle, err := planlock.Acquire(sessionDir, agent, "update", lockOpts)
	if err != nil {
		return nil, nil, err
	}
	defer handle.Release()

	if err := Apply(state, p); err != nil {
		return nil, nil, err
	}
	if err := planstate.Validate(state); err != nil {
		return nil, nil, err
	}
	if err := persist.Save(homeDir, sessionDir, state, "Update command"); err != nil {
		return nil, nil, fmt.Errorf("update: persist: %w", err)
	}

	return &Result{Version: state.Version}, nil, nil
}
