// Package planerrors defines the error taxonomy described in spec.md §7.
// Every failure mode the coordinator can produce is one of these sentinel
// kinds, wrapped with context via fmt.Errorf("...: %w", ...) the way the
// teacher wraps stdlib errors throughout internal/config and
// internal/gamification — there is no custom error-type hierarchy here,
// matching that plain style.
package planerrors

import "errors"

// Sentinel error kinds. Wrap these with fmt.Errorf("%w: detail", Err...)
// and unwrap with errors.Is / Kind.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrVersionMismatch = errors.New("version mismatch")
	ErrUnknownFields   = errors.New("unknown fields")
	ErrPlanEditBlocked = errors.New("plan edit blocked")
	ErrSignal          = errors.New("signal error")
	ErrLockTimeout     = errors.New("lock timeout")
	ErrMalformedInput  = errors.New("malformed input")
)

// Kind returns the taxonomy label for err, or "" if err does not wrap one
// of the sentinel kinds above. The CLI uses this to decide stderr text;
// every kind maps to exit code 1 per spec.md §6.5.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrVersionMismatch):
		return "VersionMismatch"
	case errors.Is(err, ErrUnknownFields):
		return "UnknownFields"
	case errors.Is(err, ErrPlanEditBlocked):
		return "PlanEditBlocked"
	case errors.Is(err, ErrSignal):
		return "SignalError"
	case errors.Is(err, ErrLockTimeout):
		return "LockTimeout"
	case errors.Is(err, ErrMalformedInput):
		return "MalformedInput"
	default:
		return "Unknown"
	}
}
