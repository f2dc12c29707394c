package main

import (
	"time"

	"github.com/joelklabo/planloop/internal/config"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/planlock"
	"github.com/joelklabo/planloop/internal/update"
	"github.com/joelklabo/planloop/internal/watch"
	"github.com/spf13/cobra"
)

var (
	updateSessionFlag          string
	updateFileFlag             string
	updateDryRunFlag           bool
	updateNoPlanEditFlag       bool
	updateStrictFlag           bool
	updateAllowPlanEditFlag    bool
	updateAllowExtraFieldsFlag bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply a status/context update to a session",
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateSessionFlag, "session", "", "Session id (defaults to current_session)")
	updateCmd.Flags().StringVar(&updateFileFlag, "file", "", "Read the update payload from this file instead of stdin")
	updateCmd.Flags().BoolVar(&updateDryRunFlag, "dry-run", false, "Compute and report the diff without persisting")
	updateCmd.Flags().BoolVar(&updateNoPlanEditFlag, "no-plan-edit", false, "Reject payloads touching structural plan fields")
	updateCmd.Flags().BoolVar(&updateStrictFlag, "strict", false, "Reject payloads carrying unrecognized fields")
	updateCmd.Flags().BoolVar(&updateAllowPlanEditFlag, "allow-plan-edit", false, "Override a config-level no_plan_edit default for this call")
	updateCmd.Flags().BoolVar(&updateAllowExtraFieldsFlag, "allow-extra-fields", false, "Override a config-level strict default for this call")
}

// UpdateResponse is the shape of `update`'s JSON output on a non-dry-run
// success.
type UpdateResponse struct {
	Status  string `json:"status"`
	Version int    `json:"version"`
}

// DryRunResponse is the shape of `update --dry-run`'s JSON output.
type DryRunResponse struct {
	DryRun update.StateDiff `json:"dry_run"`
}

func runUpdate(cmd *cobra.Command, args []string) error {
	homeDir, err := resolveHome()
	if err != nil {
		return err
	}
	sessionID, err := resolveSession(homeDir, updateSessionFlag)
	if err != nil {
		return err
	}
	sessionDir := home.SessionDir(homeDir, sessionID)

	raw, err := readPayload(updateFileFlag)
	if err != nil {
		return err
	}
	payload, err := update.ParsePayload(raw)
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(home.ConfigPath(homeDir))
	if err != nil {
		return err
	}

	modes := update.SafeModes{
		DryRun:     updateDryRunFlag || cfg.SafeModes.Update.DryRun,
		NoPlanEdit: (updateNoPlanEditFlag || cfg.SafeModes.Update.NoPlanEdit) && !updateAllowPlanEditFlag,
		Strict:     (updateStrictFlag || cfg.SafeModes.Update.Strict) && !updateAllowExtraFieldsFlag,
	}

	lockOpts := planlock.Options{
		Timeout:        time.Duration(cfg.Lock.TimeoutSeconds) * time.Second,
		Sleep:          time.Duration(cfg.Lock.SleepIntervalMS) * time.Millisecond,
		StaleAfter:     time.Duration(cfg.Lock.StaleAfterSeconds) * time.Second,
		StallThreshold: cfg.Lock.StallThreshold,
	}

	result, diff, err := update.Run(homeDir, sessionDir, resolveAgent(), payload, modes, lockOpts)
	if err != nil {
		return err
	}

	if diff != nil {
		return emitJSON(DryRunResponse{DryRun: *diff}, false)
	}

	notifyWatch(cfg, watch.EventUpdateApplied, watch.UpdateAppliedPayload{Session: sessionID, Version: result.Version})

	return emitJSON(UpdateResponse{Status: "ok", Version: result.Version}, false)
}
