package planstate

import (
	"fmt"
	"strings"

	"github.com/joelklabo/planloop/internal/planerrors"
)

// overrideReasons are Now.Reason values that C5/C6 stamp onto state after
// ComputeNow has already run (spec.md §9's relaxation of the
// stored-equals-computed rule for these three states).
var overrideReasons = map[NowReason]bool{
	ReasonWaitingOnLock: true,
	ReasonDeadlocked:    true,
	ReasonEscalated:     true,
}

// Validate checks every invariant from spec.md §3 and returns a single
// wrapped planerrors.ErrValidation aggregating every violation found, or
// nil if state is fully consistent. It is deterministic and side-effect
// free, run before every persist and after every restore.
func Validate(s *SessionState) error {
	var problems []string

	if s.SchemaVersion != CurrentSchemaVersion {
		problems = append(problems, fmt.Sprintf("unknown schema_version %d", s.SchemaVersion))
	}

	seen := make(map[int]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		if seen[t.ID] {
			problems = append(problems, fmt.Sprintf("duplicate task id %d", t.ID))
		}
		seen[t.ID] = true
		if !t.Type.Valid() {
			problems = append(problems, fmt.Sprintf("task %d: invalid type %q", t.ID, t.Type))
		}
		if !t.Status.Valid() {
			problems = append(problems, fmt.Sprintf("task %d: invalid status %q", t.ID, t.Status))
		}
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				problems = append(problems, fmt.Sprintf("task %d: depends on itself", t.ID))
				continue
			}
			if s.TaskByID(dep) == nil {
				problems = append(problems, fmt.Sprintf("task %d: depends on missing task %d", t.ID, dep))
			}
		}
	}

	if cyclePath := findCycle(s); cyclePath != "" {
		problems = append(problems, fmt.Sprintf("dependency cycle: %s", cyclePath))
	}

	signalSeen := make(map[string]bool, len(s.Signals))
	for _, sig := range s.Signals {
		if signalSeen[sig.ID] {
			problems = append(problems, fmt.Sprintf("duplicate signal id %q", sig.ID))
		}
		signalSeen[sig.ID] = true
		if !sig.Type.Valid() {
			problems = append(problems, fmt.Sprintf("signal %s: invalid type %q", sig.ID, sig.Type))
		}
		if !sig.Level.Valid() {
			problems = append(problems, fmt.Sprintf("signal %s: invalid level %q", sig.ID, sig.Level))
		}
	}

	if !overrideReasons[s.Now.Reason] {
		want := ComputeNow(s)
		if !nowEqual(s.Now, want) {
			problems = append(problems, fmt.Sprintf("stored now %+v does not match computed now %+v", s.Now, want))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", planerrors.ErrValidation, strings.Join(problems, "; "))
}

func nowEqual(a, b Now) bool {
	if a.Reason != b.Reason {
		return false
	}
	if !intPtrEqual(a.TaskID, b.TaskID) {
		return false
	}
	if !strPtrEqual(a.SignalID, b.SignalID) {
		return false
	}
	return true
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// findCycle runs a DFS with visiting/visited sets over the depends_on
// graph and returns a human-readable description of the first cycle
// found, or "" if the graph is acyclic.
func findCycle(s *SessionState) string {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[int]int, len(s.Tasks))
	var path []int

	var visit func(id int) string
	visit = func(id int) string {
		switch state[id] {
		case visited:
			return ""
		case visiting:
			return cyclePathString(append(path, id))
		}
		state[id] = visiting
		path = append(path, id)
		t := s.TaskByID(id)
		if t != nil {
			for _, dep := range t.DependsOn {
				if cyc := visit(dep); cyc != "" {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		state[id] = visited
		return ""
	}

	for _, t := range s.Tasks {
		if state[t.ID] == unvisited {
			if cyc := visit(t.ID); cyc != "" {
				return cyc
			}
		}
	}
	return ""
}

func cyclePathString(path []int) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, "->")
}
