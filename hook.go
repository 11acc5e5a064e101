package strix

import (
	"context"
	"time"

	"github.com/casualjim/strix/events"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

func (a *Assistant) emitError(ctx context.Context, key, runID string, err error) {
	events.Dispatch(ctx, a.hook, events.Error{
		ConversationKey: key,
		RunID:           runID,
		Err:             err,
		Timestamp:       strfmt.DateTime(time.Now()),
	})
}

func (a *Assistant) emitTurnCompleted(ctx context.Context, key string, turnID uuid.UUID, input, output string, ts time.Time) {
	events.Dispatch(ctx, a.hook, events.TurnCompleted{
		ConversationKey: key,
		TurnID:          turnID,
		Input:           input,
		Output:          output,
		Timestamp:       strfmt.DateTime(ts),
	})
}

func composeHooks(hooks []events.Hook) events.Hook {
	switch len(hooks) {
	case 0:
		return nil
	case 1:
		return hooks[0]
	default:
		return events.NewCompositeHook(hooks...)
	}
}
