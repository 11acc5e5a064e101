package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/casualjim/strix/events"
)

// SubjectPrefix prefixes every conversation topic.
const SubjectPrefix = "strix."

type Broker interface {
	Topic(context.Context, string) Topic
}

type Topic interface {
	Publish(context.Context, events.Event) error
	Subscribe(context.Context, events.Hook) (Subscription, error)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}

// TopicName maps a conversation key to its topic. Underscores, dots, NATS
// wildcards and whitespace are escaped as _xx (hex), so a key always maps to
// a single subject token and different keys never share a topic.
func TopicName(conversationKey string) string {
	var b strings.Builder
	b.Grow(len(SubjectPrefix) + len(conversationKey))
	b.WriteString(SubjectPrefix)
	for _, r := range conversationKey {
		switch r {
		case '_', '.', '*', '>', ' ', '\t', '\n', '\r':
			fmt.Fprintf(&b, "_%02x", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func forwardToHook(ctx context.Context, ch <-chan events.Event, hook events.Hook) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			events.Dispatch(ctx, hook, event)
		case <-ctx.Done():
			return
		}
	}
}
