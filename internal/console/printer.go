// Package console renders conversations on a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/casualjim/strix/events"
	"github.com/fatih/color"
)

var _ events.Hook = (*Printer)(nil)

// Printer writes the side channel of a turn: tool calls, tool outputs and
// errors. Fragments are left to whoever consumes the turn.
type Printer struct {
	events.NopHook
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) OnToolCall(_ context.Context, ev events.ToolCall) {
	args := strings.ReplaceAll(ev.Arguments, ": ", "=")
	p.printf("%s%s\n", color.YellowString(ev.Name), args)
}

func (p *Printer) OnToolOutput(_ context.Context, ev events.ToolOutput) {
	p.printf("%s: %s\n", color.YellowString("Tool"), ev.Output)
}

func (p *Printer) OnError(_ context.Context, ev events.Error) {
	p.printf("%s: %v\n", color.RedString("Error"), ev.Err)
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}
