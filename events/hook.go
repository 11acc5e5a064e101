package events

import "context"

// Hook observes the events of a turn. Hooks run on the goroutine that emits
// the event and must not block for long.
type Hook interface {
	OnFragment(context.Context, Fragment)
	OnToolCall(context.Context, ToolCall)
	OnToolOutput(context.Context, ToolOutput)
	OnTurnCompleted(context.Context, TurnCompleted)
	OnError(context.Context, Error)
}

// Dispatch hands the event to the matching hook method.
func Dispatch(ctx context.Context, hook Hook, event Event) {
	if hook == nil {
		return
	}
	switch ev := event.(type) {
	case Fragment:
		hook.OnFragment(ctx, ev)
	case ToolCall:
		hook.OnToolCall(ctx, ev)
	case ToolOutput:
		hook.OnToolOutput(ctx, ev)
	case TurnCompleted:
		hook.OnTurnCompleted(ctx, ev)
	case Error:
		hook.OnError(ctx, ev)
	}
}

// NopHook ignores every event. Embed it to implement only some methods.
type NopHook struct{}

func (NopHook) OnFragment(context.Context, Fragment)           {}
func (NopHook) OnToolCall(context.Context, ToolCall)           {}
func (NopHook) OnToolOutput(context.Context, ToolOutput)       {}
func (NopHook) OnTurnCompleted(context.Context, TurnCompleted) {}
func (NopHook) OnError(context.Context, Error)                 {}

// CompositeHook forwards every event to all of its hooks in order.
type CompositeHook struct {
	hooks []Hook
}

func NewCompositeHook(hooks ...Hook) *CompositeHook {
	filtered := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return &CompositeHook{hooks: filtered}
}

func (c *CompositeHook) OnFragment(ctx context.Context, ev Fragment) {
	for _, h := range c.hooks {
		h.OnFragment(ctx, ev)
	}
}

func (c *CompositeHook) OnToolCall(ctx context.Context, ev ToolCall) {
	for _, h := range c.hooks {
		h.OnToolCall(ctx, ev)
	}
}

func (c *CompositeHook) OnToolOutput(ctx context.Context, ev ToolOutput) {
	for _, h := range c.hooks {
		h.OnToolOutput(ctx, ev)
	}
}

func (c *CompositeHook) OnTurnCompleted(ctx context.Context, ev TurnCompleted) {
	for _, h := range c.hooks {
		h.OnTurnCompleted(ctx, ev)
	}
}

func (c *CompositeHook) OnError(ctx context.Context, ev Error) {
	for _, h := range c.hooks {
		h.OnError(ctx, ev)
	}
}
