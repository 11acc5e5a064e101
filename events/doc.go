// Package events describes what happens during a conversational turn so that
// other parts of an application can observe it.
//
// A turn emits, in order:
//   - Fragment for every piece of generated text
//   - ToolCall and ToolOutput around every local tool invocation
//   - TurnCompleted after the turn was persisted, or Error when it was aborted
//
// Every event carries the conversation key, which brokers use as the topic.
//
// Hooks receive events as typed method calls. Dispatch routes an Event value
// to the right method and CompositeHook fans one event out to several hooks:
//
//	hook := events.NewCompositeHook(logger, metrics)
//	events.Dispatch(ctx, hook, events.Fragment{ConversationKey: "u1", Text: "Hi"})
//
// ToJSON and FromJSON encode events with a "type" marker so they can cross a
// message bus. Errors travel as their message.
package events
