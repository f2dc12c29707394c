// Package signals implements spec.md §4.7's open/close operations.
// Ported directly from original_source's core/signals.py; both mutations
// recompute Now in-memory and leave persistence to the caller (which runs
// them under the lock, per the update pipeline's pattern).
package signals

import (
	"fmt"

	"github.com/joelklabo/planloop/internal/planerrors"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/scheduler"
)

// Open appends sig to state's signal list, rejecting a duplicate id, and
// recomputes Now.
func Open(s *planstate.SessionState, sig *planstate.Signal) error {
	if s.SignalByID(sig.ID) != nil {
		return fmt.Errorf("%w: signal %s already exists", planerrors.ErrSignal, sig.ID)
	}
	s.Signals = append(s.Signals, sig)
	s.Now = scheduler.ComputeNow(s)
	return nil
}

// Close sets the named signal's Open to false (not removal — history is
// preserved) and recomputes Now. Closing an unknown signal is an error.
func Close(s *planstate.SessionState, signalID string) error {
	target := s.SignalByID(signalID)
	if target == nil {
		return fmt.Errorf("%w: signal %s not found", planerrors.ErrSignal, signalID)
	}
	target.Open = false
	s.Now = scheduler.ComputeNow(s)
	return nil
}
