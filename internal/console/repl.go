package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

// Sender runs one turn for the text the user typed.
type Sender func(ctx context.Context, text string) iter.Seq2[string, error]

// REPL reads user input line by line and prints the replies.
type REPL struct {
	In  io.Reader
	Out io.Writer

	// Render holds back the reply until the turn completed and renders it as
	// markdown. Otherwise fragments are printed as they arrive.
	Render bool
}

// Run loops until the input ends, the user types exit or ctx is done. A
// failed turn is printed and the loop continues.
func (r REPL) Run(ctx context.Context, send Sender) error {
	var renderer *glamour.TermRenderer
	if r.Render {
		var err error
		renderer, err = glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
	}

	scanner := bufio.NewScanner(r.In)
	scanner.Split(bufio.ScanLines)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "%s: ", color.CyanString("User"))
		if !scanner.Scan() {
			fmt.Fprintln(r.Out, "Exiting...")
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			return nil
		}

		fmt.Fprint(r.Out, color.MagentaString("Assistant")+": ")
		var reply strings.Builder
		for fragment, err := range send(ctx, input) {
			if err != nil {
				fmt.Fprintf(r.Out, "\n%s: %v\n", color.RedString("Error"), err)
				break
			}
			reply.WriteString(fragment)
			if renderer == nil {
				fmt.Fprint(r.Out, fragment)
			}
		}

		if renderer != nil && reply.Len() > 0 {
			out, err := renderer.Render(reply.String())
			if err != nil {
				out = reply.String()
			}
			fmt.Fprint(r.Out, out)
		}
		fmt.Fprintln(r.Out)
	}
}
