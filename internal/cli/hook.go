package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aura-hud/aura/internal/hook"
	"github.com/aura-hud/aura/internal/ipc"
)

var hookAgent string

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Translate an agent hook message from stdin into daemon events",
	Long: `Reads one hook JSON message from stdin, converts it to normalized
events, and forwards them to the daemon socket. Exits 0 even when the
daemon is down: the host agent must never be held up by the HUD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if hookAgent != "claude-code" {
			return fmt.Errorf("unsupported agent %q", hookAgent)
		}

		input, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}

		events, err := hook.Parse(input)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		client, err := ipc.Dial(ipc.SocketPath())
		if err != nil {
			slog.Debug("daemon unreachable, dropping events", "error", err)
			return nil
		}
		defer client.Close()

		if err := client.SendEvents(events); err != nil {
			slog.Debug("failed to send events", "error", err)
		}
		return nil
	},
}

func init() {
	hookCmd.Flags().StringVar(&hookAgent, "agent", "", "Agent kind (claude-code)")
	_ = hookCmd.MarkFlagRequired("agent")
	hookCmd.SilenceUsage = true
	rootCmd.AddCommand(hookCmd)
}
