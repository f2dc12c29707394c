// Package planstate defines the coordinator's typed entities (Task,
// Signal, Now, Artifact, SessionState) per spec.md §3, and the validator
// that enforces its invariants. Each enum is a Go string type whose
// values marshal as themselves, with a Valid() method backed by a set
// map of the allowed values.
package planstate

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	TaskTypeTest        TaskType = "test"
	TaskTypeFix         TaskType = "fix"
	TaskTypeRefactor    TaskType = "refactor"
	TaskTypeFeature     TaskType = "feature"
	TaskTypeDoc         TaskType = "doc"
	TaskTypeChore       TaskType = "chore"
	TaskTypeDesign      TaskType = "design"
	TaskTypeInvestigate TaskType = "investigate"
)

var validTaskTypes = map[TaskType]bool{
	TaskTypeTest: true, TaskTypeFix: true, TaskTypeRefactor: true,
	TaskTypeFeature: true, TaskTypeDoc: true, TaskTypeChore: true,
	TaskTypeDesign: true, TaskTypeInvestigate: true,
}

// Valid reports whether t is a recognized TaskType.
func (t TaskType) Valid() bool { return validTaskTypes[t] }

// TaskStatus is a task's position in its lifecycle.
type TaskStatus string

const (
	StatusTODO        TaskStatus = "TODO"
	StatusInProgress  TaskStatus = "IN_PROGRESS"
	StatusDone        TaskStatus = "DONE"
	StatusBlocked     TaskStatus = "BLOCKED"
	StatusSkipped     TaskStatus = "SKIPPED"
	StatusOutOfScope  TaskStatus = "OUT_OF_SCOPE"
	StatusCancelled   TaskStatus = "CANCELLED"
	StatusFailed      TaskStatus = "FAILED"
	StatusWaiting     TaskStatus = "WAITING"
)

var validTaskStatuses = map[TaskStatus]bool{
	StatusTODO: true, StatusInProgress: true, StatusDone: true,
	StatusBlocked: true, StatusSkipped: true, StatusOutOfScope: true,
	StatusCancelled: true, StatusFailed: true, StatusWaiting: true,
}

// Valid reports whether s is a recognized TaskStatus.
func (s TaskStatus) Valid() bool { return validTaskStatuses[s] }

// Terminal reports whether s is one of the terminal statuses named in
// spec.md §3's Task lifecycle (DONE/CANCELLED/FAILED/SKIPPED/OUT_OF_SCOPE).
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusCancelled, StatusFailed, StatusSkipped, StatusOutOfScope:
		return true
	default:
		return false
	}
}

// Task is a unit of work with a typed status and dependency edges.
type Task struct {
	ID             int        `json:"id"`
	Title          string     `json:"title"`
	Type           TaskType   `json:"type"`
	Status         TaskStatus `json:"status"`
	DependsOn      []int      `json:"depends_on"`
	CommitSHA      string     `json:"commit_sha,omitempty"`
	LastUpdatedAt  *time.Time `json:"last_updated_at,omitempty"`
}

// SignalLevel is the severity of a Signal.
type SignalLevel string

const (
	LevelBlocker SignalLevel = "blocker"
	LevelHigh    SignalLevel = "high"
	LevelInfo    SignalLevel = "info"
)

var validSignalLevels = map[SignalLevel]bool{LevelBlocker: true, LevelHigh: true, LevelInfo: true}

// Valid reports whether l is a recognized SignalLevel.
func (l SignalLevel) Valid() bool { return validSignalLevels[l] }

// SignalType classifies the source of a Signal.
type SignalType string

const (
	SignalCI     SignalType = "ci"
	SignalLint   SignalType = "lint"
	SignalBench  SignalType = "bench"
	SignalSystem SignalType = "system"
	SignalOther  SignalType = "other"
)

var validSignalTypes = map[SignalType]bool{
	SignalCI: true, SignalLint: true, SignalBench: true, SignalSystem: true, SignalOther: true,
}

// Valid reports whether t is a recognized SignalType.
func (t SignalType) Valid() bool { return validSignalTypes[t] }

// Signal is an out-of-band event that can preempt task scheduling.
type Signal struct {
	ID       string         `json:"id"`
	Type     SignalType     `json:"type"`
	Kind     string         `json:"kind"`
	Level    SignalLevel    `json:"level"`
	Open     bool           `json:"open"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Link     string         `json:"link,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	Attempts int            `json:"attempts"`
}

// NowReason is the category of the coordinator's single next-action
// descriptor.
type NowReason string

const (
	ReasonCIBlocker     NowReason = "ci_blocker"
	ReasonTask          NowReason = "task"
	ReasonCompleted     NowReason = "completed"
	ReasonIdle          NowReason = "idle"
	ReasonWaitingOnLock NowReason = "waiting_on_lock"
	ReasonDeadlocked    NowReason = "deadlocked"
	ReasonEscalated     NowReason = "escalated"
)

// Now is the derived "what to do next" descriptor. It is recomputed by
// scheduler.ComputeNow and is never an input to an update; C5/C6 may
// override it after computation (see spec.md §4.2, §9).
type Now struct {
	Reason   NowReason `json:"reason"`
	TaskID   *int      `json:"task_id,omitempty"`
	SignalID *string   `json:"signal_id,omitempty"`
}

// ArtifactType classifies an Artifact.
type ArtifactType string

const (
	ArtifactDiff ArtifactType = "diff"
	ArtifactLog  ArtifactType = "log"
	ArtifactFile ArtifactType = "file"
	ArtifactURL  ArtifactType = "url"
	ArtifactOther ArtifactType = "other"
)

// Artifact records a piece of evidence an agent produced (a diff, log,
// file, or URL).
type Artifact struct {
	Type      ArtifactType   `json:"type"`
	Path      string         `json:"path,omitempty"`
	Summary   string         `json:"summary"`
	CommitSHA string         `json:"commit_sha,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Environment is a fingerprint of the machine a session was created on.
// OS/Arch/Hostname are populated via gopsutil in internal/home; see
// SPEC_FULL.md §C.
type Environment struct {
	OS       string `json:"os"`
	Arch     string `json:"arch,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	Python   string `json:"python,omitempty"`
	Node     string `json:"node,omitempty"`
}

// PromptMetadata records which prompt template set a session was created
// with.
type PromptMetadata struct {
	Set               string `json:"set"`
	GoalVersion       string `json:"goal_version,omitempty"`
	HandshakeVersion  string `json:"handshake_version,omitempty"`
	SummaryVersion    string `json:"summary_version,omitempty"`
}

// CurrentSchemaVersion is the only schema_version this build accepts.
const CurrentSchemaVersion = 1

// SessionState is the root aggregate persisted per session. See
// SPEC_FULL.md §C for the Version/Tags additions over spec.md's literal
// field list.
type SessionState struct {
	SchemaVersion  int             `json:"schema_version"`
	Version        int             `json:"version"`
	Session        string          `json:"session"`
	Name           string          `json:"name"`
	Title          string          `json:"title"`
	Purpose        string          `json:"purpose"`
	Tags           []string        `json:"tags,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	LastUpdatedAt  time.Time       `json:"last_updated_at"`
	ProjectRoot    string          `json:"project_root"`
	Branch         string          `json:"branch,omitempty"`
	Prompts        PromptMetadata  `json:"prompts"`
	Environment    Environment     `json:"environment"`
	Tasks          []*Task         `json:"tasks"`
	Signals        []*Signal       `json:"signals"`
	NextSteps      []string        `json:"next_steps"`
	ContextNotes   []string        `json:"context_notes"`
	Artifacts      []*Artifact     `json:"artifacts"`
	Now            Now             `json:"now"`
	Done           bool            `json:"done"`
	FinalSummary   *string         `json:"final_summary,omitempty"`
}

// Clone returns a deep copy of state, used by the update pipeline's
// dry_run path (spec.md §4.6) so mutation never touches the original.
func (s *SessionState) Clone() *SessionState {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("planstate: clone marshal: %v", err))
	}
	var clone SessionState
	if err := json.Unmarshal(data, &clone); err != nil {
		panic(fmt.Sprintf("planstate: clone unmarshal: %v", err))
	}
	return &clone
}

// TaskByID returns the task with the given id, or nil.
func (s *SessionState) TaskByID(id int) *Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// SignalByID returns the signal with the given id, or nil.
func (s *SessionState) SignalByID(id string) *Signal {
	for _, sig := range s.Signals {
		if sig.ID == id {
			return sig
		}
	}
	return nil
}

// NextTaskID returns max(existing ids)+1, or 1 if no tasks exist, per
// spec.md §4.6's add_tasks id-assignment rule.
func (s *SessionState) NextTaskID() int {
	max := 0
	for _, t := range s.Tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}
