package update

import "github.com/joelklabo/planloop/internal/planstate"

// VersionDiff reports a state's version before and after an update.
type VersionDiff struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// TaskSnapshot is a compact view of a task used in TaskDiff entries.
type TaskSnapshot struct {
	ID     int                  `json:"id"`
	Title  string               `json:"title"`
	Type   planstate.TaskType   `json:"type"`
	Status planstate.TaskStatus `json:"status"`
}

// FieldChange captures a before/after pair for one changed task field.
type FieldChange struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// TaskUpdateEntry is one modified task in a TaskDiff.
type TaskUpdateEntry struct {
	Task    TaskSnapshot           `json:"task"`
	Changes map[string]FieldChange `json:"changes"`
}

// TaskDiff aggregates task-level changes between two states.
type TaskDiff struct {
	Added   []TaskSnapshot    `json:"added"`
	Updated []TaskUpdateEntry `json:"updated"`
	Removed []TaskSnapshot    `json:"removed"`
}

// StateDiff is the structural diff dry_run returns instead of persisting.
type StateDiff struct {
	Version      VersionDiff    `json:"version"`
	Tasks        TaskDiff       `json:"tasks"`
	ContextNotes *FieldChange   `json:"context_notes,omitempty"`
	NextSteps    *FieldChange   `json:"next_steps,omitempty"`
	FinalSummary *FieldChange   `json:"final_summary,omitempty"`
}

func snapshot(t *planstate.Task) TaskSnapshot {
	return TaskSnapshot{ID: t.ID, Title: t.Title, Type: t.Type, Status: t.Status}
}

// Diff computes a human-friendly summary of what changed between before
// and after, ported from original_source's core/diff.py.
func Diff(before, after *planstate.SessionState) StateDiff {
	beforeByID := make(map[int]*planstate.Task, len(before.Tasks))
	for _, t := range before.Tasks {
		beforeByID[t.ID] = t
	}
	afterByID := make(map[int]*planstate.Task, len(after.Tasks))
	for _, t := range after.Tasks {
		afterByID[t.ID] = t
	}

	var td TaskDiff
	for _, t := range after.Tasks {
		orig, existed := beforeByID[t.ID]
		if !existed {
			td.Added = append(td.Added, snapshot(t))
			continue
		}
		changes := map[string]FieldChange{}
		if orig.Title != t.Title {
			changes["title"] = FieldChange{Before: orig.Title, After: t.Title}
		}
		if orig.Type != t.Type {
			changes["type"] = FieldChange{Before: orig.Type, After: t.Type}
		}
		if orig.Status != t.Status {
			changes["status"] = FieldChange{Before: orig.Status, After: t.Status}
		}
		if len(changes) > 0 {
			td.Updated = append(td.Updated, TaskUpdateEntry{Task: snapshot(t), Changes: changes})
		}
	}
	for _, t := range before.Tasks {
		if _, stillThere := afterByID[t.ID]; !stillThere {
			td.Removed = append(td.Removed, snapshot(t))
		}
	}

	d := StateDiff{
		Version: VersionDiff{Before: before.Version, After: after.Version},
		Tasks:   td,
	}

	if !stringSlicesEqual(before.ContextNotes, after.ContextNotes) {
		d.ContextNotes = &FieldChange{Before: before.ContextNotes, After: after.ContextNotes}
	}
	if !stringSlicesEqual(before.NextSteps, after.NextSteps) {
		d.NextSteps = &FieldChange{Before: before.NextSteps, After: after.NextSteps}
	}
	if !stringPtrEqual(before.FinalSummary, after.FinalSummary) {
		d.FinalSummary = &FieldChange{Before: before.FinalSummary, After: after.FinalSummary}
	}

	return d
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
