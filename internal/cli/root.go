package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aura-hud/aura/internal/daemon"
	"github.com/aura-hud/aura/internal/logging"
)

var (
	verbosity int
	rootCmd   = &cobra.Command{
		Use:   "aura",
		Short: "Ambient HUD for AI coding agent sessions",
		Long:  `Aura is a floating desktop HUD that tracks Claude Code and Codex sessions and surfaces their live state in an always-available overlay.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return daemon.Run(ctx)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Setup(verbosity)
	}
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
