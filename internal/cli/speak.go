package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/casualjim/strix"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	speakOut    string
	speakVoice  string
	speakFormat string
)

var speakCmd = &cobra.Command{
	Use:   "speak <audio-file>",
	Short: "Send a voice message and save the spoken reply",
	Long: `Send a recorded voice message and save the spoken reply.

The input format is taken from the file extension.

Examples:
  strix speak question.m4a
  strix speak question.wav --voice alloy --format mp3 --out answer.mp3`,
	Args: cobra.ExactArgs(1),
	RunE: runSpeak,
}

func init() {
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "", "file to write the reply to (default reply.<format>)")
	speakCmd.Flags().StringVar(&speakVoice, "voice", strix.DefaultVoice, "voice of the reply")
	speakCmd.Flags().StringVar(&speakFormat, "format", strix.DefaultOutputFormat, "audio format of the reply")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	audio, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	inputFormat := strings.TrimPrefix(filepath.Ext(args[0]), ".")

	out := speakOut
	if out == "" {
		out = "reply." + speakFormat
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	var written int
	for chunk, err := range assistant.SendAudio(ctx, conversationKey, audio, inputFormat, speakVoice, speakFormat) {
		if err != nil {
			return err
		}
		n, err := f.Write(chunk)
		if err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		written += n
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %d bytes to %s\n", color.GreenString("Wrote"), written, out)
	return nil
}
