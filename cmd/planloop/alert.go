package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joelklabo/planloop/internal/config"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/persist"
	"github.com/joelklabo/planloop/internal/planlock"
	"github.com/joelklabo/planloop/internal/planstate"
	"github.com/joelklabo/planloop/internal/signals"
	"github.com/joelklabo/planloop/internal/watch"
	"github.com/spf13/cobra"
)

var (
	alertSessionFlag string
	alertIDFlag      string
	alertCloseFlag   bool
	alertLevelFlag   string
	alertTypeFlag    string
	alertKindFlag    string
	alertTitleFlag   string
	alertMessageFlag string
	alertLinkFlag    string
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Open or close a signal on a session",
	RunE:  runAlert,
}

func init() {
	alertCmd.Flags().StringVar(&alertSessionFlag, "session", "", "Session id (defaults to current_session)")
	alertCmd.Flags().StringVar(&alertIDFlag, "id", "", "Signal id (generated when opening if omitted)")
	alertCmd.Flags().BoolVar(&alertCloseFlag, "close", false, "Close the named signal instead of opening one")
	alertCmd.Flags().StringVar(&alertLevelFlag, "level", string(planstate.LevelInfo), "Signal level: blocker, high, info")
	alertCmd.Flags().StringVar(&alertTypeFlag, "type", string(planstate.SignalOther), "Signal type: ci, lint, bench, system, other")
	alertCmd.Flags().StringVar(&alertKindFlag, "kind", "", "Free-form kind label")
	alertCmd.Flags().StringVar(&alertTitleFlag, "title", "", "Short signal title")
	alertCmd.Flags().StringVar(&alertMessageFlag, "message", "", "Signal message body")
	alertCmd.Flags().StringVar(&alertLinkFlag, "link", "", "Optional link (e.g. a CI run URL)")
}

// AlertResponse is the shape of `alert`'s JSON output.
type AlertResponse struct {
	Status   string        `json:"status"`
	SignalID string        `json:"signal_id"`
	Now      planstate.Now `json:"now"`
	Version  int           `json:"version"`
}

func runAlert(cmd *cobra.Command, args []string) error {
	homeDir, err := resolveHome()
	if err != nil {
		return err
	}
	sessionID, err := resolveSession(homeDir, alertSessionFlag)
	if err != nil {
		return err
	}
	sessionDir := home.SessionDir(homeDir, sessionID)

	cfg, err := config.LoadOrDefault(home.ConfigPath(homeDir))
	if err != nil {
		return err
	}
	lockOpts := planlock.Options{
		Timeout:        time.Duration(cfg.Lock.TimeoutSeconds) * time.Second,
		Sleep:          time.Duration(cfg.Lock.SleepIntervalMS) * time.Millisecond,
		StaleAfter:     time.Duration(cfg.Lock.StaleAfterSeconds) * time.Second,
		StallThreshold: cfg.Lock.StallThreshold,
	}

	agent := resolveAgent()

	handle, err := planlock.Acquire(sessionDir, agent, "alert", lockOpts)
	if err != nil {
		return err
	}
	defer handle.Release()

	state, err := persist.Load(sessionDir)
	if err != nil {
		return err
	}

	signalID := alertIDFlag

	if alertCloseFlag {
		if signalID == "" {
			return fmt.Errorf("--id is required when closing a signal")
		}
		if err := signals.Close(state, signalID); err != nil {
			return err
		}
	} else {
		if signalID == "" {
			signalID = "sig-" + uuid.NewString()[:8]
		}
		level := planstate.SignalLevel(alertLevelFlag)
		if !level.Valid() {
			return fmt.Errorf("invalid --level %q", alertLevelFlag)
		}
		sigType := planstate.SignalType(alertTypeFlag)
		if !sigType.Valid() {
			return fmt.Errorf("invalid --type %q", alertTypeFlag)
		}
		sig := &planstate.Signal{
			ID:      signalID,
			Type:    sigType,
			Kind:    alertKindFlag,
			Level:   level,
			Open:    true,
			Title:   alertTitleFlag,
			Message: alertMessageFlag,
			Link:    alertLinkFlag,
		}
		if err := signals.Open(state, sig); err != nil {
			return err
		}
	}

	if err := planstate.Validate(state); err != nil {
		return err
	}
	message := "signal opened"
	if alertCloseFlag {
		message = "signal closed"
	}
	if err := persist.Save(homeDir, sessionDir, state, message); err != nil {
		return fmt.Errorf("alert: persist: %w", err)
	}

	notifyWatch(cfg, watch.EventUpdateApplied, watch.UpdateAppliedPayload{Session: sessionID, Version: state.Version})

	return emitJSON(AlertResponse{
		Status:   "ok",
		SignalID: signalID,
		Now:      state.Now,
		Version:  state.Version,
	}, false)
}
