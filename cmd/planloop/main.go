// Command planloop is the filesystem-backed coordinator CLI: one JSON
// document on stdout per successful invocation, a single error line on
// stderr otherwise. The subcommand tree is a cobra.Command tree (the
// teacher ships a single flat flag.FlagSet, so the tree structure itself
// is learned from theRebelliousNerd-codenerd's cmd/nerd and
// kadirpekel-hector's cmd/hector instead).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	homeFlag  string
	agentFlag string
)

var rootCmd = &cobra.Command{
	Use:           "planloop",
	Short:         "Filesystem-backed multi-agent session coordinator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "Override PLANLOOP_HOME")
	rootCmd.PersistentFlags().StringVar(&agentFlag, "agent", "", "Override PLANLOOP_AGENT_NAME for lock/queue identity")

	rootCmd.AddCommand(
		statusCmd,
		updateCmd,
		alertCmd,
		describeCmd,
		selftestCmd,
		sessionsCmd,
		debugCmd,
		initCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
