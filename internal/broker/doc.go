// Package broker distributes turn events to subscribers, one topic per
// conversation.
//
// Two implementations share the same contract:
//   - Local keeps topics in process and drops subscribers that fall behind
//   - NATS publishes JSON encoded events on a NATS subject per topic, with the
//     conversation key in the Strix-Conversation header
//
// Publisher adapts a Broker to events.Hook, so an assistant can emit its turn
// events on the bus without knowing about brokers:
//
//	b, err := broker.NATS(conn)
//	if err != nil {
//	    return err
//	}
//	assistant, err := strix.New(ctx, provider, store, strix.Hook(broker.NewPublisher(b)))
//
//	sub, err := b.Topic(ctx, broker.TopicName("user-1")).Subscribe(ctx, printer)
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
//
// TopicName maps a conversation key to a subject that is safe for NATS and
// unique to that key.
package broker
