package main

import (
	"github.com/joelklabo/planloop/internal/selftest"
	"github.com/spf13/cobra"
)

var selftestJSONFlag bool

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the built-in coordination scenarios against a scratch home",
	RunE:  runSelftest,
}

func init() {
	selftestCmd.Flags().BoolVar(&selftestJSONFlag, "json", false, "Emit compact single-line JSON")
}

// SelftestResponse is the shape of `selftest`'s JSON output.
type SelftestResponse struct {
	Status    string                     `json:"status"`
	Scenarios []selftest.ScenarioResult `json:"scenarios"`
}

func runSelftest(cmd *cobra.Command, args []string) error {
	results, runErr := selftest.Run()

	status := "ok"
	if runErr != nil {
		status = "failed"
	}

	if err := emitJSON(SelftestResponse{Status: status, Scenarios: results}, selftestJSONFlag); err != nil {
		return err
	}

	return runErr
}
