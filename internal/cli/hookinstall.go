package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
)

// hookEventNames lists every Claude Code hook the adapter understands.
var hookEventNames = []string{
	"SessionStart",
	"UserPromptSubmit",
	"PreToolUse",
	"PostToolUse",
	"PostToolUseFailure",
	"Notification",
	"PermissionRequest",
	"Stop",
	"SubagentStart",
	"SubagentStop",
	"PreCompact",
	"SessionEnd",
}

var hookInstallCmd = &cobra.Command{
	Use:   "hook-install",
	Short: "Print the hooks block for the agent's settings file",
	Long:  `Prints a JSON hooks block wiring every supported Claude Code hook event to "aura hook". Merge it into ~/.claude/settings.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		block, err := buildHooksBlock()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), block)
		return nil
	},
}

// buildHooksBlock assembles the settings fragment.
func buildHooksBlock() (string, error) {
	doc := "{}"
	var err error
	for _, name := range hookEventNames {
		base := "hooks." + name + ".0.hooks.0."
		if doc, err = sjson.Set(doc, base+"type", "command"); err != nil {
			return "", fmt.Errorf("building hooks block: %w", err)
		}
		if doc, err = sjson.Set(doc, base+"command", "aura hook --agent claude-code"); err != nil {
			return "", fmt.Errorf("building hooks block: %w", err)
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(doc), "", "  "); err != nil {
		return "", err
	}
	return pretty.String(), nil
}

func init() {
	rootCmd.AddCommand(hookInstallCmd)
}
