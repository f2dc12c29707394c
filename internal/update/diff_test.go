package update

import (
	"testing"

	"github.com/joelklabo/planloop/internal/planstate"
)

func TestDiff_ReportsAddedUpdatedRemoved(t *testing.T) {
	before := &planstate.SessionState{
		Version: 1,
		Tasks: []*planstate.Task{
			{ID: 1, Title: "keep-unchanged", Status: planstate.StatusTODO, Type: planstate.TaskTypeFeature},
			{ID: 2, Title: "will-be-removed", Status: planstate.StatusTODO, Type: planstate.TaskTypeFeature},
		},
	}
	after := &planstate.SessionState{
		Version: 2,
		Tasks: []*planstate.Task{
			{ID: 1, Title: "keep-unchanged", Status: planstate.StatusDone, Type: planstate.TaskTypeFeature},
			{ID: 3, Title: "new-task", Status: planstate.StatusTODO, Type: planstate.TaskTypeFeature},
		},
	}

	d := Diff(before, after)
	if d.Version.Before != 1 || d.Version.After != 2 {
		t.Errorf("Version diff = %+v", d.Version)
	}
	if len(d.Tasks.Added) != 1 || d.Tasks.Added[0].ID != 3 {
		t.Errorf("Added = %+v, want [task 3]", d.Tasks.Added)
	}
	if len(d.Tasks.Removed) != 1 || d.Tasks.Removed[0].ID != 2 {
		t.Errorf("Removed = %+v, want [task 2]", d.Tasks.Removed)
	}
	if len(d.Tasks.Updated) != 1 || d.Tasks.Updated[0].Task.ID != 1 {
		t.Errorf("Updated = %+v, want [task 1]", d.Tasks.Updated)
	}
	if _, ok := d.Tasks.Updated[0].Changes["status"]; !ok {
		t.Errorf("Updated[0].Changes = %+v, want status change", d.Tasks.Updated[0].Changes)
	}
}

func TestDiff_NoChangesYieldsEmptyTaskDiff(t *testing.T) {
	s := &planstate.SessionState{Tasks: []*planstate.Task{{ID: 1, Title: "a", Status: planstate.StatusTODO, Type: planstate.TaskTypeFeature}}}
	d := Diff(s, s)
	if len(d.Tasks.Added) != 0 || len(d.Tasks.Updated) != 0 || len(d.Tasks.Removed) != 0 {
		t.Errorf("Diff(s, s) = %+v, want no task changes", d.Tasks)
	}
	if d.ContextNotes != nil || d.NextSteps != nil || d.FinalSummary != nil {
		t.Errorf("Diff(s, s) reported changes on identical state")
	}
}
