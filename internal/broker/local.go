package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/strix/events"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/pkg/uuidx"
)

var errHookRequired = errors.New("hook is required")

type localBroker struct {
	settings settings
	topics   *haxmap.Map[string, *localTopic]
	logger   *slog.Logger
}

// Local returns an in-process broker. A subscriber that stays full for longer
// than the slow subscriber timeout is dropped so the turn never waits on it.
func Local(options ...Option) (*localBroker, error) {
	s, err := newSettings(options)
	if err != nil {
		return nil, err
	}
	return &localBroker{
		settings: s,
		topics:   haxmap.New[string, *localTopic](),
		logger:   slog.Default().With(slogx.LoggerName("strix.broker.local")),
	}, nil
}

func (b *localBroker) Topic(_ context.Context, name string) Topic {
	t, _ := b.topics.GetOrCompute(name, func() *localTopic {
		return &localTopic{
			name:        name,
			settings:    b.settings,
			subscribers: haxmap.New[string, *localSubscriber](),
			logger:      b.logger.With(slog.String("topic", name)),
		}
	})
	return t
}

type localTopic struct {
	name        string
	settings    settings
	subscribers *haxmap.Map[string, *localSubscriber]
	logger      *slog.Logger
}

// Publish hands the event to every live subscriber. It returns early with the
// context error when ctx is done.
func (t *localTopic) Publish(ctx context.Context, event events.Event) error {
	var dropped []*localSubscriber
	t.subscribers.ForEach(func(_ string, sub *localSubscriber) bool {
		switch sub.deliver(ctx, event, t.settings.slowSubscriberTimeout) {
		case delivered:
		case subscriberGone:
			dropped = append(dropped, sub)
		case publisherDone:
			return false
		}
		return true
	})

	for _, sub := range dropped {
		t.logger.Debug("dropping subscriber", slog.String("subscription", sub.id), slogx.ConversationKey(event.Conversation()))
		sub.Unsubscribe()
	}
	return ctx.Err()
}

func (t *localTopic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, errHookRequired
	}

	sub := &localSubscriber{
		id:     uuidx.NewString(),
		ctx:    ctx,
		events: make(chan events.Event, t.settings.subscriberBuffer),
	}
	sub.detach = func() { t.subscribers.Del(sub.id) }
	t.subscribers.Set(sub.id, sub)

	go forwardToHook(ctx, sub.events, hook)
	return sub, nil
}

type delivery int

const (
	delivered delivery = iota
	subscriberGone
	publisherDone
)

type localSubscriber struct {
	id     string
	ctx    context.Context
	detach func()

	mu     sync.RWMutex
	closed bool
	events chan events.Event
}

func (s *localSubscriber) ID() string {
	return s.id
}

// deliver waits at most timeout for room in the subscriber's queue. A
// subscriber whose context is done counts as gone.
func (s *localSubscriber) deliver(ctx context.Context, event events.Event, timeout time.Duration) delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.ctx.Err() != nil {
		return subscriberGone
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.events <- event:
		return delivered
	case <-ctx.Done():
		return publisherDone
	case <-s.ctx.Done():
		return subscriberGone
	case <-timer.C:
		return subscriberGone
	}
}

func (s *localSubscriber) Unsubscribe() {
	s.detach()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
