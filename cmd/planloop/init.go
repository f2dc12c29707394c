package main

import (
	"os"

	"github.com/joelklabo/planloop/internal/config"
	"github.com/joelklabo/planloop/internal/home"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap PLANLOOP_HOME and write a starter config.yml",
	RunE:  runInit,
}

// InitResponse is the shape of `init`'s JSON output.
type InitResponse struct {
	Home          string `json:"home"`
	ConfigWritten bool   `json:"config_written"`
}

// runInit makes explicit what the original's home.py does lazily on
// first access: resolve (and create) the home directory, and seed a
// starter config.yml if one isn't already there, so scripts that drive
// the other commands can rely on PLANLOOP_HOME existing up front.
func runInit(cmd *cobra.Command, args []string) error {
	homeDir, err := resolveHome()
	if err != nil {
		return err
	}

	configPath := home.ConfigPath(homeDir)
	written := false
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath, config.Default()); err != nil {
			return err
		}
		written = true
	} else if err != nil {
		return err
	}

	return emitJSON(InitResponse{Home: homeDir, ConfigWritten: written}, false)
}
