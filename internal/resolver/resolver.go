// Package resolver runs the local tools a paused run asks for and submits
// their outputs back to resume it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/strix/events"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/provider"
	"github.com/casualjim/strix/tool"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
)

// ErrUnknownTool is returned when a run requests a tool that is not registered
// and the resolver is configured to fail on it.
var ErrUnknownTool = errors.New("unknown tool")

// Submitter resumes a paused run with tool outputs.
type Submitter interface {
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []provider.ToolOutput) (<-chan provider.StreamEvent, error)
}

type Option = opts.Option[Resolver]

// WithHook sets the hook that observes tool calls and their outputs.
func WithHook(hook events.Hook) Option {
	return opts.Type[Resolver](func(r *Resolver) error {
		r.hook = hook
		return nil
	})
}

// FailOnUnknownTool makes a request for an unregistered tool abort the turn
// instead of being skipped.
func FailOnUnknownTool(fail bool) Option {
	return opts.Type[Resolver](func(r *Resolver) error {
		r.failOnUnknownTool = fail
		return nil
	})
}

type Resolver struct {
	tools             *tool.Registry
	submitter         Submitter
	hook              events.Hook
	failOnUnknownTool bool
	logger            *slog.Logger
}

func New(tools *tool.Registry, submitter Submitter, options ...Option) (*Resolver, error) {
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}
	if submitter == nil {
		return nil, errors.New("submitter is required")
	}
	r := Resolver{
		tools:     tools,
		submitter: submitter,
		logger:    slog.Default().With(slogx.LoggerName("strix.resolver")),
	}
	if err := opts.Apply(&r, options); err != nil {
		return nil, err
	}
	return &r, nil
}

// Resolve invokes every requested tool in order and submits all outputs in a
// single request. The returned stream is the resumed run.
//
// A tool that returns an error or panics aborts the resolution, nothing is
// submitted in that case.
func (r *Resolver) Resolve(ctx context.Context, conversationKey string, action provider.ActionRequired) (<-chan provider.StreamEvent, error) {
	outputs, err := r.invoke(ctx, conversationKey, action)
	if err != nil {
		return nil, err
	}
	return r.submitter.SubmitToolOutputs(ctx, action.ThreadID, action.RunID, outputs)
}

func (r *Resolver) invoke(ctx context.Context, conversationKey string, action provider.ActionRequired) ([]provider.ToolOutput, error) {
	outputs := make([]provider.ToolOutput, 0, len(action.ToolCalls))
	for _, call := range action.ToolCalls {
		events.Dispatch(ctx, r.hook, events.ToolCall{
			ConversationKey: conversationKey,
			RunID:           action.RunID,
			ToolCallID:      call.ID,
			Name:            call.Name,
			Arguments:       call.Arguments,
			Timestamp:       strfmt.DateTime(time.Now()),
		})

		def, ok := r.tools.Get(call.Name)
		if !ok {
			if r.failOnUnknownTool {
				return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
			}
			r.logger.WarnContext(ctx, "skipping unknown tool",
				slogx.ConversationKey(conversationKey),
				slogx.RunID(action.RunID),
				slogx.Tool(call.Name),
			)
			continue
		}

		output, err := def.Call(ctx, call.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool %s failed: %w", call.Name, err)
		}
		r.logger.DebugContext(ctx, "tool called",
			slogx.ConversationKey(conversationKey),
			slogx.RunID(action.RunID),
			slogx.Tool(call.Name),
		)

		events.Dispatch(ctx, r.hook, events.ToolOutput{
			ConversationKey: conversationKey,
			RunID:           action.RunID,
			ToolCallID:      call.ID,
			Name:            call.Name,
			Output:          output,
			Timestamp:       strfmt.DateTime(time.Now()),
		})
		outputs = append(outputs, provider.ToolOutput{ToolCallID: call.ID, Output: output})
	}
	return outputs, nil
}
