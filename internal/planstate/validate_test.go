package planstate

import (
	"errors"
	"testing"

	"github.com/joelklabo/planloop/internal/planerrors"
)

func baseState() *SessionState {
	return &SessionState{
		SchemaVersion: CurrentSchemaVersion,
		Now:           Now{Reason: ReasonIdle},
	}
}

func TestValidate_EmptyStateOK(t *testing.T) {
	s := baseState()
	if err := Validate(s); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_DuplicateTaskID(t *testing.T) {
	s := baseState()
	s.Tasks = []*Task{
		{ID: 1, Status: StatusTODO, Type: TaskTypeFeature},
		{ID: 1, Status: StatusTODO, Type: TaskTypeFeature},
	}
	s.Now = Now{Reason: ReasonTask, TaskID: intp(1)}
	err := Validate(s)
	if !errors.Is(err, planerrors.ErrValidation) {
		t.Fatalf("Validate() = %v, want ErrValidation", err)
	}
}

func TestValidate_SelfDependency(t *testing.T) {
	s := baseState()
	s.Tasks = []*Task{{ID: 1, Status: StatusTODO, Type: TaskTypeFeature, DependsOn: []int{1}}}
	s.Now = Now{Reason: ReasonIdle}
	err := Validate(s)
	if !errors.Is(err, planerrors.ErrValidation) {
		t.Fatalf("Validate() = %v, want ErrValidation", err)
	}
}

func TestValidate_MissingDependency(t *testing.T) {
	s := baseState()
	s.Tasks = []*Task{{ID: 1, Status: StatusTODO, Type: TaskTypeFeature, DependsOn: []int{99}}}
	err := Validate(s)
	if !errors.Is(err, planerrors.ErrValidation) {
		t.Fatalf("Validate() = %v, want ErrValidation", err)
	}
}

func TestValidate_DependencyCycle(t *testing.T) {
	s := baseState()
	s.Tasks = []*Task{
		{ID: 1, Status: StatusTODO, Type: TaskTypeFeature, DependsOn: []int{2}},
		{ID: 2, Status: StatusTODO, Type: TaskTypeFeature, DependsOn: []int{1}},
	}
	err := Validate(s)
	if !errors.Is(err, planerrors.ErrValidation) {
		t.Fatalf("Validate() = %v, want ErrValidation", err)
	}
}

func TestValidate_StoredNowMustMatchComputed(t *testing.T) {
	s := baseState()
	s.Tasks = []*Task{{ID: 1, Status: StatusTODO, Type: TaskTypeFeature}}
	s.Now = Now{Reason: ReasonIdle} // wrong: should be task/1
	err := Validate(s)
	if !errors.Is(err, planerrors.ErrValidation) {
		t.Fatalf("Validate() = %v, want ErrValidation", err)
	}

	s.Now = Now{Reason: ReasonTask, TaskID: intp(1)}
	if err := Validate(s); err != nil {
		t.Fatalf("Validate() with correct now = %v, want nil", err)
	}
}

func TestValidate_OverrideReasonsSkipComputedCheck(t *testing.T) {
	s := baseState()
	s.Tasks = []*Task{{ID: 1, Status: StatusTODO, Type: TaskTypeFeature}}
	sig := "queue_stall"
	s.Now = Now{Reason: ReasonWaitingOnLock, SignalID: &sig}
	if err := Validate(s); err != nil {
		t.Fatalf("Validate() with override reason = %v, want nil", err)
	}
}

func TestValidate_UnknownSchemaVersion(t *testing.T) {
	s := baseState()
	s.SchemaVersion = 99
	err := Validate(s)
	if !errors.Is(err, planerrors.ErrValidation) {
		t.Fatalf("Validate() = %v, want ErrValidation", err)
	}
}

func TestValidate_DuplicateSignalID(t *testing.T) {
	s := baseState()
	s.Signals = []*Signal{
		{ID: "s1", Type: SignalCI, Level: LevelInfo, Open: true},
		{ID: "s1", Type: SignalCI, Level: LevelInfo, Open: true},
	}
	s.Now = Now{Reason: ReasonIdle}
	err := Validate(s)
	if !errors.Is(err, planerrors.ErrValidation) {
		t.Fatalf("Validate() = %v, want ErrValidation", err)
	}
}
