package main

import (
	"fmt"

	"github.com/joelklabo/planloop/internal/config"
	"github.com/joelklabo/planloop/internal/deadlock"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/persist"
	"github.com/joelklabo/planloop/internal/planlock"
	"github.com/joelklabo/planloop/internal/planlog"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/watch"
	"github.com/spf13/cobra"
)

var (
	statusSessionFlag string
	statusJSONFlag     bool
	statusWatchFlag    bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report a session's current state and next action",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusSessionFlag, "session", "", "Session id (defaults to current_session)")
	statusCmd.Flags().BoolVar(&statusJSONFlag, "json", false, "Emit compact single-line JSON")
	statusCmd.Flags().BoolVar(&statusWatchFlag, "watch", false, "Publish this status snapshot to the watch hub, if enabled")
}

// StatusResponse is the shape of `status`'s JSON output.
type StatusResponse struct {
	Session          string                 `json:"session"`
	Now              planstate.Now          `json:"now"`
	Tasks            []*planstate.Task      `json:"tasks"`
	Signals          []*planstate.Signal    `json:"signals"`
	LockInfo         *planlock.Info         `json:"lock_info"`
	LockQueue        planlock.QueueView     `json:"lock_queue"`
	SafeModeDefaults config.UpdateSafeModeConfig `json:"safe_mode_defaults"`
	AgentInstructions string                `json:"agent_instructions"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	homeDir, err := resolveHome()
	if err != nil {
		return err
	}
	sessionID, err := resolveSession(homeDir, statusSessionFlag)
	if err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("no session specified and no current session set")
	}
	sessionDir := home.SessionDir(homeDir, sessionID)

	s, err := persist.Load(sessionDir)
	if err != nil {
		return err
	}
	if err := planstate.Validate(s); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(home.ConfigPath(homeDir))
	if err != nil {
		return err
	}

	// Every status call is a scan (spec.md §2's read path: load state ->
	// compute deadlock tick -> emit status), so the no-progress detector
	// runs here rather than waiting for an update.
	escalated, err := deadlock.Check(s, sessionDir, cfg.Deadlock.Threshold)
	if err != nil {
		return err
	}
	if escalated {
		if err := persist.Save(homeDir, sessionDir, s, "deadlock tick escalated"); err != nil {
			return err
		}
		if logger, logErr := planlog.For(sessionDir); logErr == nil {
			logger.LogEvent("deadlock_escalated", map[string]any{"signal_id": "deadlock"})
		}
		notifyWatch(cfg, watch.EventDeadlockWarning, watch.DeadlockPayload{Session: s.Session, SignalID: "deadlock"})
	}

	locked, lockInfo, err := planlock.Status(sessionDir)
	if err != nil {
		return err
	}
	_ = locked

	queue, err := planlock.QueueStatus(sessionDir, resolveAgent())
	if err != nil {
		return err
	}

	resp := StatusResponse{
		Session:           s.Session,
		Now:               s.Now,
		Tasks:             s.Tasks,
		Signals:           s.Signals,
		LockInfo:          lockInfo,
		LockQueue:         queue,
		SafeModeDefaults:  cfg.SafeModes.Update,
		AgentInstructions: agentInstructions(s.Now),
	}

	if statusWatchFlag {
		notifyWatch(cfg, watch.EventUpdateApplied, watch.UpdateAppliedPayload{Session: s.Session, Version: s.Version})
	}

	return emitJSON(resp, statusJSONFlag)
}

// agentInstructions returns a short piece of guidance matched to now's
// reason, ported in spirit from original_source's guide.py marker idea
// (minus the TUI/file-patching machinery, which is out of scope).
func agentInstructions(now planstate.Now) string {
	switch now.Reason {
	case planstate.ReasonCIBlocker:
		return "A blocker signal is open. Resolve it and close it via `planloop alert --close` before resuming task work."
	case planstate.ReasonTask:
		return "Work the active task, then report progress with `planloop update`."
	case planstate.ReasonCompleted:
		return "All tasks are settled. Confirm the final summary and stop."
	case planstate.ReasonWaitingOnLock:
		return "Another agent holds the session lock. Poll `planloop status` again shortly."
	case planstate.ReasonDeadlocked:
		return "No progress has been observed across repeated polls. Escalate to a human operator."
	case planstate.ReasonEscalated:
		return "The queue has stalled. Escalate to a human operator or release any lock you are holding."
	default:
		return "No active work. Add tasks with `planloop update` to begin."
	}
}
