package update

import (
	"fmt"
	"strings"

	"github.com/joelklabo/planloop/internal/planerrors"
)

// SafeModes bundles the three orthogonal advisory restrictions of
// spec.md §4.6, each overridable per call over its config default.
type SafeModes struct {
	DryRun     bool
	NoPlanEdit bool
	Strict     bool
}

// CheckSafeModes enforces strict and no_plan_edit ahead of Apply.
// dry_run is handled by the caller (Run), since it changes control flow
// rather than rejecting the payload outright.
func CheckSafeModes(p *Payload, modes SafeModes) error {
	if modes.Strict {
		if unknown := p.UnknownFields(); len(unknown) > 0 {
			return fmt.Errorf("%w: %s", planerrors.ErrUnknownFields, strings.Join(unknown, ", "))
		}
	}
	if modes.NoPlanEdit && p.HasStructuralFields() {
		return fmt.Errorf("%w: payload carries structural fields under no_plan_edit", planerrors.ErrPlanEditBlocked)
	}
	return nil
}
