package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Delete a conversation and its history",
	Long: `Delete a conversation: the remote thread, the stored handle and every
recorded turn.

Examples:
  strix forget --user alice`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := assistant.DeleteConversation(cmd.Context(), conversationKey); err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("Forgot"), conversationKey)
		return nil
	},
}
