package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingHook struct {
	NopHook
	fragments []Fragment
	calls     []ToolCall
	outputs   []ToolOutput
	completed []TurnCompleted
	errs      []Error
}

func (r *recordingHook) OnFragment(_ context.Context, ev Fragment) {
	r.fragments = append(r.fragments, ev)
}
func (r *recordingHook) OnToolCall(_ context.Context, ev ToolCall) { r.calls = append(r.calls, ev) }
func (r *recordingHook) OnToolOutput(_ context.Context, ev ToolOutput) {
	r.outputs = append(r.outputs, ev)
}

func (r *recordingHook) OnTurnCompleted(_ context.Context, ev TurnCompleted) {
	r.completed = append(r.completed, ev)
}
func (r *recordingHook) OnError(_ context.Context, ev Error) { r.errs = append(r.errs, ev) }

type fragmentsOnly struct {
	NopHook
	count int
}

func (f *fragmentsOnly) OnFragment(context.Context, Fragment) { f.count++ }

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	hook := &recordingHook{}

	Dispatch(ctx, hook, Fragment{Text: "a"})
	Dispatch(ctx, hook, ToolCall{Name: "lookup"})
	Dispatch(ctx, hook, ToolOutput{Name: "lookup", Output: "sunny"})
	Dispatch(ctx, hook, TurnCompleted{Output: "done"})
	Dispatch(ctx, hook, Error{Err: errors.New("boom")})

	assert.Len(t, hook.fragments, 1)
	assert.Len(t, hook.calls, 1)
	assert.Len(t, hook.outputs, 1)
	assert.Len(t, hook.completed, 1)
	assert.Len(t, hook.errs, 1)

	assert.NotPanics(t, func() { Dispatch(ctx, nil, Fragment{}) })
}

func TestCompositeHook(t *testing.T) {
	ctx := context.Background()
	first := &recordingHook{}
	second := &fragmentsOnly{}
	composite := NewCompositeHook(first, nil, second)

	composite.OnFragment(ctx, Fragment{Text: "Hel"})
	composite.OnFragment(ctx, Fragment{Text: "lo"})
	composite.OnToolCall(ctx, ToolCall{Name: "lookup"})
	composite.OnToolOutput(ctx, ToolOutput{Name: "lookup"})
	composite.OnTurnCompleted(ctx, TurnCompleted{Output: "Hello"})
	composite.OnError(ctx, Error{Err: errors.New("boom")})

	assert.Equal(t, []Fragment{{Text: "Hel"}, {Text: "lo"}}, first.fragments)
	assert.Len(t, first.calls, 1)
	assert.Len(t, first.outputs, 1)
	assert.Len(t, first.completed, 1)
	assert.Len(t, first.errs, 1)
	assert.Equal(t, 2, second.count)
}
