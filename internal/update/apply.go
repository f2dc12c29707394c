package update

import (
	"fmt"
	"time"

	"github.com/joelklabo/planloop/internal/planerrors"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/scheduler"
)

// ValidatePayload enforces the session/version match rules of spec.md
// §4.6: if session is set it must match the target, and if
// last_seen_version is set it must equal the current version.
func ValidatePayload(s *planstate.SessionState, p *Payload) error {
	if p.Session != "" && p.Session != s.Session {
		return fmt.Errorf("%w: payload session %q does not match target %q", planerrors.ErrValidation, p.Session, s.Session)
	}
	if p.LastSeenVersion != "" && p.LastSeenVersion != fmt.Sprint(s.Version) {
		return fmt.Errorf("%w: expected version %d, got %s", planerrors.ErrVersionMismatch, s.Version, p.LastSeenVersion)
	}
	return nil
}

// Apply mutates state in place per spec.md §4.6's semantic rules: status
// patches and full edits must reference existing tasks (unknown ids fail
// the whole update), new tasks are assigned ids as max(existing)+1, and
// context_notes/next_steps/artifacts follow "replace if non-empty" /
// append semantics. On success it bumps version, stamps LastUpdatedAt,
// and recomputes Now. Apply does not call planstate.Validate — the
// caller does that after Apply returns, so a failed invariant rolls back
// the in-memory mutation by discarding state entirely.
func Apply(s *planstate.SessionState, p *Payload) error {
	for _, patch := range p.Tasks {
		task := s.TaskByID(patch.ID)
		if task == nil {
			return fmt.Errorf("%w: unknown task id %d", planerrors.ErrValidation, patch.ID)
		}
		applyTaskPatch(task, patch)
	}

	for _, upd := range p.UpdateTasks {
		task := s.TaskByID(upd.ID)
		if task == nil {
			return fmt.Errorf("%w: unknown task id %d", planerrors.ErrValidation, upd.ID)
		}
		applyUpdateTask(task, upd)
	}

	nextID := s.NextTaskID()
	for _, add := range p.AddTasks {
		taskType := planstate.TaskTypeFeature
		if add.Type != nil {
			taskType = *add.Type
		}
		s.Tasks = append(s.Tasks, &planstate.Task{
			ID:        nextID,
			Title:     add.Title,
			Type:      taskType,
			Status:    planstate.StatusTODO,
			DependsOn: add.DependsOn,
		})
		nextID++
	}

	if len(p.ContextNotes) > 0 {
		s.ContextNotes = p.ContextNotes
	}
	if len(p.NextSteps) > 0 {
		s.NextSteps = p.NextSteps
	}
	if len(p.Artifacts) > 0 {
		for i := range p.Artifacts {
			a := p.Artifacts[i]
			s.Artifacts = append(s.Artifacts, &a)
		}
	}
	if p.FinalSummary != nil {
		s.FinalSummary = p.FinalSummary
	}
	if p.Done {
		s.Done = true
	}

	s.LastUpdatedAt = time.Now().UTC()
	s.Version++
	s.Now = scheduler.ComputeNow(s)
	return nil
}

func applyTaskPatch(task *planstate.Task, patch TaskStatusPatch) {
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.NewTitle != nil {
		task.Title = *patch.NewTitle
	}
	now := time.Now().UTC()
	task.LastUpdatedAt = &now
}

func applyUpdateTask(task *planstate.Task, upd UpdateTaskInput) {
	if upd.NewTitle != nil {
		task.Title = *upd.NewTitle
	}
	if upd.NewType != nil {
		task.Type = *upd.NewType
	}
	if upd.Status != nil {
		task.Status = *upd.Status
	}
	now := time.Now().UTC()
	task.LastUpdatedAt = &now
}
