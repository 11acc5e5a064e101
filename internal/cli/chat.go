package cli

import (
	"context"
	"iter"

	"github.com/casualjim/strix/internal/broker"
	"github.com/casualjim/strix/internal/console"
	"github.com/spf13/cobra"
)

var chatRender bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the assistant.

Replies stream as they are generated. Tool calls the assistant makes are
printed as they happen. Type exit or press Ctrl-D to leave.

Examples:
  strix chat
  strix chat --user alice --render`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatRender, "render", false, "render replies as markdown once complete")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	topic := brk.Topic(ctx, broker.TopicName(conversationKey))
	sub, err := topic.Subscribe(ctx, console.NewPrinter(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	repl := console.REPL{
		In:     cmd.InOrStdin(),
		Out:    cmd.OutOrStdout(),
		Render: chatRender,
	}
	return repl.Run(ctx, func(ctx context.Context, text string) iter.Seq2[string, error] {
		return assistant.SendText(ctx, conversationKey, text)
	})
}
