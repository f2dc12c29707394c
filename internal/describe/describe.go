// Package describe exports authoritative JSON Schemas and enum/error
// references for planloop's wire types, so clients can validate update
// payloads before sending them. Ported from original_source's
// core/describe.py; model_json_schema() becomes a reflected
// invopop/jsonschema schema, following kadirpekel-hector's
// cmd/hector/schema.go usage of the same reflector.
package describe

import (
	"github.com/invopop/jsonschema"
	"github.com/joelklabo/planloop/internal/planerrors"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/update"
)

// EnumReference lists the enum values agents care about.
type EnumReference struct {
	TaskTypes     []planstate.TaskType   `json:"task_types"`
	TaskStatuses  []planstate.TaskStatus `json:"task_statuses"`
	SignalLevels  []planstate.SignalLevel `json:"signal_levels"`
	SignalTypes   []planstate.SignalType  `json:"signal_types"`
	ArtifactTypes []planstate.ArtifactType `json:"artifact_types"`
	NowReasons    []planstate.NowReason   `json:"now_reasons"`
}

// Payload aggregates everything the describe command emits.
type Payload struct {
	StateSchema  *jsonschema.Schema `json:"state_schema"`
	UpdateSchema *jsonschema.Schema `json:"update_schema"`
	Enums        EnumReference      `json:"enums"`
	ErrorCodes   []string           `json:"error_codes"`
	UsageHints   []string           `json:"usage_hints"`
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
}

// StateSchema returns the JSON Schema for planstate.SessionState.
func StateSchema() *jsonschema.Schema {
	return newReflector().Reflect(&planstate.SessionState{})
}

// UpdateSchema returns the JSON Schema for update.Payload.
func UpdateSchema() *jsonschema.Schema {
	return newReflector().Reflect(&update.Payload{})
}

// EnumValues returns the enum reference agents use to validate fields
// client-side before sending an update payload.
func EnumValues() EnumReference {
	return EnumReference{
		TaskTypes: []planstate.TaskType{
			planstate.TaskTypeTest, planstate.TaskTypeFix, planstate.TaskTypeRefactor,
			planstate.TaskTypeFeature, planstate.TaskTypeDoc, planstate.TaskTypeChore,
			planstate.TaskTypeDesign, planstate.TaskTypeInvestigate,
		},
		TaskStatuses: []planstate.TaskStatus{
			planstate.StatusTODO, planstate.StatusInProgress, planstate.StatusDone,
			planstate.StatusBlocked, planstate.StatusSkipped, planstate.StatusOutOfScope,
			planstate.StatusCancelled, planstate.StatusFailed, planstate.StatusWaiting,
		},
		SignalLevels: []planstate.SignalLevel{planstate.LevelBlocker, planstate.LevelHigh, planstate.LevelInfo},
		SignalTypes: []planstate.SignalType{
			planstate.SignalCI, planstate.SignalLint, planstate.SignalBench,
			planstate.SignalSystem, planstate.SignalOther,
		},
		ArtifactTypes: []planstate.ArtifactType{
			planstate.ArtifactDiff, planstate.ArtifactLog, planstate.ArtifactFile,
			planstate.ArtifactURL, planstate.ArtifactOther,
		},
		NowReasons: []planstate.NowReason{
			planstate.ReasonCIBlocker, planstate.ReasonTask, planstate.ReasonCompleted,
			planstate.ReasonIdle, planstate.ReasonWaitingOnLock, planstate.ReasonDeadlocked,
			planstate.ReasonEscalated,
		},
	}
}

// ErrorCodes returns the taxonomy labels planerrors.Kind can produce.
func ErrorCodes() []string {
	return []string{
		planerrors.Kind(planerrors.ErrNotFound),
		planerrors.Kind(planerrors.ErrValidation),
		planerrors.Kind(planerrors.ErrVersionMismatch),
		planerrors.Kind(planerrors.ErrUnknownFields),
		planerrors.Kind(planerrors.ErrPlanEditBlocked),
		planerrors.Kind(planerrors.ErrSignal),
		planerrors.Kind(planerrors.ErrLockTimeout),
		planerrors.Kind(planerrors.ErrMalformedInput),
	}
}

var usageHints = []string{
	"Poll status before every update; pass last_seen_version to detect concurrent writers.",
	"Prefer add_tasks/tasks status patches over update_tasks full edits when only status changes.",
	"A dry_run update never touches disk; inspect the returned diff before retrying for real.",
	"Close a blocker signal before expecting now.reason to return to task.",
}

// Describe aggregates the full describe payload.
func Describe() Payload {
	return Payload{
		StateSchema:  StateSchema(),
		UpdateSchema: UpdateSchema(),
		Enums:        EnumValues(),
		ErrorCodes:   ErrorCodes(),
		UsageHints:   usageHints,
	}
}
