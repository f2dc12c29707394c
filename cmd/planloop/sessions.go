package main

import (
	"fmt"

	"github.com/joelklabo/planloop/internal/home"
	"github.com/joelklabo/planloop/internal/registry"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect the home-level session registry",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every session known to the registry",
	RunE:  runSessionsList,
}

var sessionsInfoCmd = &cobra.Command{
	Use:   "info [id]",
	Short: "Show one session's registry summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsInfo,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsInfoCmd)
}

// SessionsListResponse is the shape of `sessions list`'s JSON output.
type SessionsListResponse struct {
	Sessions []registry.SessionSummary `json:"sessions"`
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	homeDir, err := resolveHome()
	if err != nil {
		return err
	}
	summaries, err := registry.List(home.RegistryPath(homeDir))
	if err != nil {
		return err
	}
	return emitJSON(SessionsListResponse{Sessions: summaries}, false)
}

func runSessionsInfo(cmd *cobra.Command, args []string) error {
	homeDir, err := resolveHome()
	if err != nil {
		return err
	}
	summary, found, err := registry.Get(home.RegistryPath(homeDir), args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("session %q not found in registry", args[0])
	}
	return emitJSON(summary, false)
}
