// Package update implements the update pipeline of spec.md §4.6: payload
// parsing, safe-mode gating, apply/validate, and the structural diff used
// by dry_run. Ported near line-for-line from original_source's
// core/update.py, core/update_payload.py (including the int-or-string
// last_seen_version coercion), and core/diff.py.
package update

import (
	"encoding/json"
	"fmt"

	"github.com/joelklabo/planloop/internal/planstate"
)

// TaskStatusPatch is a status-only edit to an existing task (the `tasks`
// channel of spec.md §4.6).
type TaskStatusPatch struct {
	ID       int                 `json:"id"`
	Status   *planstate.TaskStatus `json:"status,omitempty"`
	NewTitle *string             `json:"new_title,omitempty"`
}

// UpdateTaskInput is a full edit to an existing task (the `update_tasks`
// channel).
type UpdateTaskInput struct {
	ID      int                   `json:"id"`
	NewTitle *string              `json:"new_title,omitempty"`
	NewType *planstate.TaskType   `json:"new_type,omitempty"`
	Status  *planstate.TaskStatus `json:"status,omitempty"`
}

// AddTaskInput describes a new task to append (the `add_tasks` channel).
type AddTaskInput struct {
	Title                string              `json:"title"`
	Type                 *planstate.TaskType `json:"type,omitempty"`
	DependsOn            []int               `json:"depends_on,omitempty"`
	ImplementationNotes  string              `json:"implementation_notes,omitempty"`
}

// AgentInfo identifies the caller making the update.
type AgentInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Payload is the update command's request body (spec.md §4.6).
type Payload struct {
	Session          string                      `json:"session,omitempty"`
	LastSeenVersion  string                      `json:"last_seen_version,omitempty"`
	Tasks            []TaskStatusPatch           `json:"tasks,omitempty"`
	AddTasks         []AddTaskInput              `json:"add_tasks,omitempty"`
	UpdateTasks      []UpdateTaskInput           `json:"update_tasks,omitempty"`
	ContextNotes     []string                    `json:"context_notes,omitempty"`
	NextSteps        []string                    `json:"next_steps,omitempty"`
	Artifacts        []planstate.Artifact        `json:"artifacts,omitempty"`
	Agent            *AgentInfo                  `json:"agent,omitempty"`
	FinalSummary     *string                     `json:"final_summary,omitempty"`
	Done             bool                        `json:"done,omitempty"`

	// unknownFields is populated by ParsePayload for strict-mode rejection
	// and is never itself marshaled.
	unknownFields []string
}

var recognizedFields = map[string]bool{
	"session": true, "last_seen_version": true, "tasks": true,
	"add_tasks": true, "update_tasks": true, "context_notes": true,
	"next_steps": true, "artifacts": true, "agent": true,
	"final_summary": true, "done": true,
}

// ParsePayload decodes raw JSON into a Payload. It tolerates an integer
// last_seen_version (coerced to its string form, for compatibility with
// older clients per spec.md §4.6) and records any unrecognized top-level
// field names for strict-mode rejection.
func ParsePayload(raw []byte) (*Payload, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	var unknown []string
	for key := range generic {
		if !recognizedFields[key] {
			unknown = append(unknown, key)
		}
	}

	if lsv, ok := generic["last_seen_version"]; ok {
		var asInt int64
		if err := json.Unmarshal(lsv, &asInt); err == nil {
			generic["last_seen_version"] = json.RawMessage(fmt.Sprintf("%q", fmt.Sprint(asInt)))
			coerced, err := json.Marshal(generic)
			if err != nil {
				return nil, fmt.Errorf("malformed JSON: %w", err)
			}
			raw = coerced
		}
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	p.unknownFields = unknown
	return &p, nil
}

// UnknownFields returns the top-level field names ParsePayload did not
// recognize.
func (p *Payload) UnknownFields() []string { return p.unknownFields }

// HasStructuralFields reports whether the payload carries any of the
// structural channels that no_plan_edit rejects: add_tasks, update_tasks,
// context_notes, next_steps, artifacts.
func (p *Payload) HasStructuralFields() bool {
	return len(p.AddTasks) > 0 || len(p.UpdateTasks) > 0 ||
		len(p.ContextNotes) > 0 || len(p.NextSteps) > 0 || len(p.Artifacts) > 0
}
