package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/casualjim/strix/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the recorded turns of a conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		turns, err := assistant.History(cmd.Context(), conversationKey)
		if err != nil {
			return fmt.Errorf("list turns: %w", err)
		}
		printHistory(cmd.OutOrStdout(), turns)
		return nil
	},
}

func printHistory(w io.Writer, turns []store.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "No turns recorded.")
		return
	}
	for _, turn := range turns {
		fmt.Fprintln(w, color.HiBlackString(turn.Timestamp.Local().Format(time.DateTime)))
		fmt.Fprintf(w, "%s: %s\n", color.CyanString("User"), turn.Input)
		fmt.Fprintf(w, "%s: %s\n\n", color.MagentaString("Assistant"), turn.Output)
	}
}
