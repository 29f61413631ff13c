package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set-name is deliberately a no-op: the agent runs it as a shell command,
// and the hook parser watching that command is what actually delivers the
// name to the daemon. This keeps the rename path working even when the
// daemon socket is unavailable to the agent's sandbox.
var setNameCmd = &cobra.Command{
	Use:   "set-name <name>",
	Short: "Name the current session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "session name set to %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setNameCmd)
}
