package console

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/casualjim/strix/events"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	ctx := context.Background()

	events.Dispatch(ctx, p, events.Fragment{ConversationKey: "u1", Text: "ignored"})
	events.Dispatch(ctx, p, events.ToolCall{ConversationKey: "u1", Name: "lookup", Arguments: `{"city": "Paris"}`})
	events.Dispatch(ctx, p, events.ToolOutput{ConversationKey: "u1", Name: "lookup", Output: "sunny"})
	events.Dispatch(ctx, p, events.Error{ConversationKey: "u1", Err: errors.New("boom")})

	assert.Equal(t, "lookup{\"city\"=\"Paris\"}\nTool: sunny\nError: boom\n", buf.String())
}

func replyWith(fragments ...string) Sender {
	return func(context.Context, string) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			for _, f := range fragments {
				if !yield(f, nil) {
					return
				}
			}
		}
	}
}

func TestREPL_Streams(t *testing.T) {
	var out bytes.Buffer
	var inputs []string
	send := func(ctx context.Context, text string) iter.Seq2[string, error] {
		inputs = append(inputs, text)
		return replyWith("Hello", ", there")(ctx, text)
	}

	r := REPL{In: strings.NewReader("hi\n\nagain\nexit\nnever read\n"), Out: &out}
	require.NoError(t, r.Run(context.Background(), send))

	assert.Equal(t, []string{"hi", "again"}, inputs)
	assert.Equal(t, 2, strings.Count(out.String(), "Assistant: Hello, there"))
	assert.NotContains(t, out.String(), "Exiting...")
}

func TestREPL_EndOfInput(t *testing.T) {
	var out bytes.Buffer
	r := REPL{In: strings.NewReader("hi\n"), Out: &out}
	require.NoError(t, r.Run(context.Background(), replyWith("bye")))
	assert.Contains(t, out.String(), "Exiting...")
}

func TestREPL_TurnError(t *testing.T) {
	var out bytes.Buffer
	send := func(context.Context, string) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			if !yield("partial", nil) {
				return
			}
			yield("", errors.New("run failed"))
		}
	}

	r := REPL{In: strings.NewReader("hi\n"), Out: &out}
	require.NoError(t, r.Run(context.Background(), send))
	assert.Contains(t, out.String(), "partial")
	assert.Contains(t, out.String(), "Error: run failed")
}

func TestREPL_Render(t *testing.T) {
	var out bytes.Buffer
	r := REPL{In: strings.NewReader("hi\n"), Out: &out, Render: true}
	require.NoError(t, r.Run(context.Background(), replyWith("Hello ", "there")))
	assert.Contains(t, out.String(), "Hello there")
}

func TestREPL_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := REPL{In: strings.NewReader("hi\n"), Out: &bytes.Buffer{}}
	assert.ErrorIs(t, r.Run(ctx, replyWith("x")), context.Canceled)
}
