package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/strix/events"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/pkg/uuidx"
	"github.com/nats-io/nats.go"
)

// ConversationHeader carries the conversation key of a published event.
const ConversationHeader = "Strix-Conversation"

type natsBroker struct {
	conn     *nats.Conn
	settings settings
	topics   *haxmap.Map[string, *natsTopic]
}

// NATS returns a broker that publishes JSON encoded events on one subject per
// topic. The connection stays owned by the caller.
func NATS(conn *nats.Conn, options ...Option) (*natsBroker, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}
	return &natsBroker{
		conn:     conn,
		settings: s,
		topics:   haxmap.New[string, *natsTopic](),
	}, nil
}

func (b *natsBroker) Topic(_ context.Context, subject string) Topic {
	t, _ := b.topics.GetOrCompute(subject, func() *natsTopic {
		return &natsTopic{
			conn:     b.conn,
			subject:  subject,
			settings: b.settings,
			logger:   slog.Default().With(slogx.LoggerName("strix.broker.nats"), slog.String("subject", subject)),
		}
	})
	return t
}

type natsTopic struct {
	conn     *nats.Conn
	subject  string
	settings settings
	logger   *slog.Logger
}

func (t *natsTopic) Publish(_ context.Context, event events.Event) error {
	data, err := events.ToJSON(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := nats.NewMsg(t.subject)
	msg.Header.Set(ConversationHeader, event.Conversation())
	msg.Data = data
	if err := t.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", t.subject, err)
	}
	return nil
}

// Subscribe decodes the messages of the subject on a goroutine of its own and
// dispatches them to hook until ctx is done or the subscription is dropped.
func (t *natsTopic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, errHookRequired
	}

	msgs := make(chan *nats.Msg, t.settings.subscriberBuffer)
	nsub, err := t.conn.ChanSubscribe(t.subject, msgs)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", t.subject, err)
	}

	sub := &natsSubscription{
		id:     uuidx.NewString(),
		sub:    nsub,
		done:   make(chan struct{}),
		logger: t.logger,
	}
	go sub.forward(ctx, msgs, hook)
	return sub, nil
}

type natsSubscription struct {
	id     string
	sub    *nats.Subscription
	once   sync.Once
	done   chan struct{}
	logger *slog.Logger
}

func (s *natsSubscription) ID() string {
	return s.id
}

func (s *natsSubscription) forward(ctx context.Context, msgs <-chan *nats.Msg, hook events.Hook) {
	defer s.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case msg := <-msgs:
			event, err := events.FromJSON(msg.Data)
			if err != nil {
				s.logger.Warn("skipping undecodable event",
					slogx.ConversationKey(msg.Header.Get(ConversationHeader)),
					slogx.Error(err),
				)
				continue
			}
			events.Dispatch(ctx, hook, event)
		}
	}
}

func (s *natsSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Warn("failed to unsubscribe", slog.String("subscription", s.id), slogx.Error(err))
		}
	})
}
