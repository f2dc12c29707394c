package main

import (
	"github.com/joelklabo/planloop/internal/describe"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print state/update JSON schemas, enums, and error codes",
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	return emitJSON(describe.Describe(), false)
}
