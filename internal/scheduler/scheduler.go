// Package scheduler exposes compute_now (spec.md §4.2) as a named
// component (C3) for callers outside internal/planstate —
// internal/update and internal/signals both call this rather than reaching
// into planstate directly, keeping the "what to work on next" concern
// separately nameable the way SPEC_FULL.md's component table lists it.
// The algorithm itself lives in internal/planstate (see that package's
// scheduler.go) because planstate.Validate must call it without creating
// an import cycle.
package scheduler

import "github.com/joelklabo/planloop/internal/planstate"

// ComputeNow derives the single next-action descriptor from state. Pure
// and side-effect free; callers that need to persist an override
// (waiting_on_lock, deadlocked, escalated) do so after calling this.
func ComputeNow(s *planstate.SessionState) planstate.Now {
	return planstate.ComputeNow(s)
}
