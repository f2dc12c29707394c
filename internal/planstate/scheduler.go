package planstate

// ComputeNow is the pure scheduling function of spec.md §4.2. It lives in
// this package (rather than only in internal/scheduler) because Validate
// below must call it on every persisted write, and internal/scheduler
// depends on this package for its types — putting the algorithm here
// avoids a cyclic import while internal/scheduler re-exports it as the
// public entry point named in SPEC_FULL.md's component table.
//
// Rule order is normative; the first matching rule wins.
func ComputeNow(s *SessionState) Now {
	for _, sig := range s.Signals {
		if sig.Open && sig.Level == LevelBlocker {
			id := sig.ID
			return Now{Reason: ReasonCIBlocker, SignalID: &id}
		}
	}

	for _, t := range s.Tasks {
		if t.Status == StatusInProgress {
			id := t.ID
			return Now{Reason: ReasonTask, TaskID: &id}
		}
	}

	for _, t := range s.Tasks {
		if t.Status != StatusTODO {
			continue
		}
		if allDepsDone(s, t) {
			id := t.ID
			return Now{Reason: ReasonTask, TaskID: &id}
		}
	}

	if len(s.Tasks) > 0 && allTasksSettled(s) {
		return Now{Reason: ReasonCompleted}
	}

	return Now{Reason: ReasonIdle}
}

func allDepsDone(s *SessionState, t *Task) bool {
	for _, depID := range t.DependsOn {
		dep := s.TaskByID(depID)
		if dep == nil || dep.Status != StatusDone {
			return false
		}
	}
	return true
}

func allTasksSettled(s *SessionState) bool {
	for _, t := range s.Tasks {
		switch t.Status {
		case StatusDone, StatusOutOfScope, StatusSkipped:
		default:
			return false
		}
	}
	return true
}
