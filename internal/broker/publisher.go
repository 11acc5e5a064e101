package broker

import (
	"context"
	"log/slog"

	"github.com/casualjim/strix/events"
	"github.com/casualjim/strix/pkg/slogx"
)

// Publisher is an events.Hook that publishes every turn event on the topic of
// its conversation. Publish failures are logged, they never fail the turn.
type Publisher struct {
	broker Broker
	logger *slog.Logger
}

var _ events.Hook = (*Publisher)(nil)

func NewPublisher(b Broker) *Publisher {
	return &Publisher{
		broker: b,
		logger: slog.Default().With(slogx.LoggerName("strix.broker")),
	}
}

func (p *Publisher) publish(ctx context.Context, event events.Event) {
	// the turn's context may already be cancelled when its error is reported
	ctx = context.WithoutCancel(ctx)
	if err := p.broker.Topic(ctx, TopicName(event.Conversation())).Publish(ctx, event); err != nil {
		p.logger.Warn("failed to publish turn event", slogx.ConversationKey(event.Conversation()), slogx.Error(err))
	}
}

func (p *Publisher) OnFragment(ctx context.Context, ev events.Fragment) { p.publish(ctx, ev) }

func (p *Publisher) OnToolCall(ctx context.Context, ev events.ToolCall) { p.publish(ctx, ev) }

func (p *Publisher) OnToolOutput(ctx context.Context, ev events.ToolOutput) { p.publish(ctx, ev) }

func (p *Publisher) OnTurnCompleted(ctx context.Context, ev events.TurnCompleted) {
	p.publish(ctx, ev)
}

func (p *Publisher) OnError(ctx context.Context, ev events.Error) { p.publish(ctx, ev) }
