package events

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	fragmentJSON      = []byte(`{"type":"fragment"}`)
	toolCallJSON      = []byte(`{"type":"tool_call"}`)
	toolOutputJSON    = []byte(`{"type":"tool_output"}`)
	turnCompletedJSON = []byte(`{"type":"turn_completed"}`)
	errorJSON         = []byte(`{"type":"error"}`)
)

// Event is the sealed set of events a turn emits while it runs.
type Event interface {
	event()
	// Conversation returns the key of the conversation the event belongs to.
	Conversation() string
}

// Fragment is a piece of generated text, in the order it was produced.
type Fragment struct {
	ConversationKey string          `json:"conversation_key"`
	RunID           string          `json:"run_id"`
	Text            string          `json:"text"`
	Timestamp       strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Fragment) event()                 {}
func (f Fragment) Conversation() string { return f.ConversationKey }

// ToolCall is emitted before a requested tool runs.
type ToolCall struct {
	ConversationKey string          `json:"conversation_key"`
	RunID           string          `json:"run_id"`
	ToolCallID      string          `json:"tool_call_id"`
	Name            string          `json:"name"`
	Arguments       string          `json:"arguments"`
	Timestamp       strfmt.DateTime `json:"timestamp,omitempty"`
}

func (ToolCall) event()                 {}
func (c ToolCall) Conversation() string { return c.ConversationKey }

// ToolOutput is emitted after a tool ran successfully.
type ToolOutput struct {
	ConversationKey string          `json:"conversation_key"`
	RunID           string          `json:"run_id"`
	ToolCallID      string          `json:"tool_call_id"`
	Name            string          `json:"name"`
	Output          string          `json:"output"`
	Timestamp       strfmt.DateTime `json:"timestamp,omitempty"`
}

func (ToolOutput) event()                 {}
func (o ToolOutput) Conversation() string { return o.ConversationKey }

// TurnCompleted is emitted once the turn is persisted.
type TurnCompleted struct {
	ConversationKey string          `json:"conversation_key"`
	TurnID          uuid.UUID       `json:"turn_id"`
	Input           string          `json:"input"`
	Output          string          `json:"output"`
	Timestamp       strfmt.DateTime `json:"timestamp,omitempty"`
}

func (TurnCompleted) event()                 {}
func (c TurnCompleted) Conversation() string { return c.ConversationKey }

// Error is emitted when a turn is aborted.
type Error struct {
	ConversationKey string          `json:"conversation_key"`
	RunID           string          `json:"run_id"`
	Err             error           `json:"error"`
	Timestamp       strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) event()                 {}
func (e Error) Conversation() string { return e.ConversationKey }

func (e Error) Error() string {
	return fmt.Sprintf("conversation: %s, run_id: %s, timestamp: %s, error: %v", e.ConversationKey, e.RunID, e.Timestamp, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

type field struct {
	path  string
	value any
}

func build(base []byte, fields ...field) ([]byte, error) {
	result := base
	for _, f := range fields {
		var err error
		result, err = sjson.SetBytes(result, f.path, f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", f.path, err)
		}
	}
	return result, nil
}

func parse(data []byte, expected string) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid json: %s", data)
	}
	doc := gjson.ParseBytes(data)
	if msgType := doc.Get("type"); !msgType.Exists() || msgType.String() != expected {
		return gjson.Result{}, fmt.Errorf("missing or invalid type, expected '%s'", expected)
	}
	if key := doc.Get("conversation_key"); !key.Exists() {
		return gjson.Result{}, fmt.Errorf("missing required field 'conversation_key'")
	}
	return doc, nil
}

func parseTimestamp(doc gjson.Result) (strfmt.DateTime, error) {
	ts := doc.Get("timestamp")
	if !ts.Exists() || ts.String() == "" {
		return strfmt.DateTime{}, nil
	}
	dt, err := strfmt.ParseDateTime(ts.String())
	if err != nil {
		return strfmt.DateTime{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	return dt, nil
}

func timestampField(ts strfmt.DateTime) field {
	return field{"timestamp", ts.String()}
}

func (f Fragment) MarshalJSON() ([]byte, error) {
	return build(fragmentJSON,
		field{"conversation_key", f.ConversationKey},
		field{"run_id", f.RunID},
		field{"text", f.Text},
		timestampField(f.Timestamp),
	)
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	doc, err := parse(data, "fragment")
	if err != nil {
		return err
	}
	ts, err := parseTimestamp(doc)
	if err != nil {
		return err
	}
	f.ConversationKey = doc.Get("conversation_key").String()
	f.RunID = doc.Get("run_id").String()
	f.Text = doc.Get("text").String()
	f.Timestamp = ts
	return nil
}

func (c ToolCall) MarshalJSON() ([]byte, error) {
	return build(toolCallJSON,
		field{"conversation_key", c.ConversationKey},
		field{"run_id", c.RunID},
		field{"tool_call_id", c.ToolCallID},
		field{"name", c.Name},
		field{"arguments", c.Arguments},
		timestampField(c.Timestamp),
	)
}

func (c *ToolCall) UnmarshalJSON(data []byte) error {
	doc, err := parse(data, "tool_call")
	if err != nil {
		return err
	}
	name := doc.Get("name")
	if !name.Exists() {
		return fmt.Errorf("missing required field 'name'")
	}
	ts, err := parseTimestamp(doc)
	if err != nil {
		return err
	}
	c.ConversationKey = doc.Get("conversation_key").String()
	c.RunID = doc.Get("run_id").String()
	c.ToolCallID = doc.Get("tool_call_id").String()
	c.Name = name.String()
	c.Arguments = doc.Get("arguments").String()
	c.Timestamp = ts
	return nil
}

func (o ToolOutput) MarshalJSON() ([]byte, error) {
	return build(toolOutputJSON,
		field{"conversation_key", o.ConversationKey},
		field{"run_id", o.RunID},
		field{"tool_call_id", o.ToolCallID},
		field{"name", o.Name},
		field{"output", o.Output},
		timestampField(o.Timestamp),
	)
}

func (o *ToolOutput) UnmarshalJSON(data []byte) error {
	doc, err := parse(data, "tool_output")
	if err != nil {
		return err
	}
	ts, err := parseTimestamp(doc)
	if err != nil {
		return err
	}
	o.ConversationKey = doc.Get("conversation_key").String()
	o.RunID = doc.Get("run_id").String()
	o.ToolCallID = doc.Get("tool_call_id").String()
	o.Name = doc.Get("name").String()
	o.Output = doc.Get("output").String()
	o.Timestamp = ts
	return nil
}

func (c TurnCompleted) MarshalJSON() ([]byte, error) {
	return build(turnCompletedJSON,
		field{"conversation_key", c.ConversationKey},
		field{"turn_id", c.TurnID.String()},
		field{"input", c.Input},
		field{"output", c.Output},
		timestampField(c.Timestamp),
	)
}

func (c *TurnCompleted) UnmarshalJSON(data []byte) error {
	doc, err := parse(data, "turn_completed")
	if err != nil {
		return err
	}
	turnID := doc.Get("turn_id")
	if !turnID.Exists() {
		return fmt.Errorf("missing required field 'turn_id'")
	}
	if err := c.TurnID.UnmarshalText([]byte(turnID.String())); err != nil {
		return fmt.Errorf("invalid turn_id: %w", err)
	}
	ts, err := parseTimestamp(doc)
	if err != nil {
		return err
	}
	c.ConversationKey = doc.Get("conversation_key").String()
	c.Input = doc.Get("input").String()
	c.Output = doc.Get("output").String()
	c.Timestamp = ts
	return nil
}

// MarshalJSON renders the error message only, the error chain does not survive the wire.
func (e Error) MarshalJSON() ([]byte, error) {
	var msg string
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return build(errorJSON,
		field{"conversation_key", e.ConversationKey},
		field{"run_id", e.RunID},
		field{"error", msg},
		timestampField(e.Timestamp),
	)
}

func (e *Error) UnmarshalJSON(data []byte) error {
	doc, err := parse(data, "error")
	if err != nil {
		return err
	}
	msg := doc.Get("error")
	if !msg.Exists() {
		return fmt.Errorf("missing required field 'error'")
	}
	ts, err := parseTimestamp(doc)
	if err != nil {
		return err
	}
	e.ConversationKey = doc.Get("conversation_key").String()
	e.RunID = doc.Get("run_id").String()
	e.Err = errors.New(msg.String())
	e.Timestamp = ts
	return nil
}

// ToJSON encodes an event with its type marker.
func ToJSON(event Event) ([]byte, error) {
	return json.Marshal(event)
}

// FromJSON decodes an event produced by ToJSON.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	var ev interface {
		Event
		json.Unmarshaler
	}
	switch msgType := gjson.GetBytes(data, "type").String(); msgType {
	case "fragment":
		ev = &Fragment{}
	case "tool_call":
		ev = &ToolCall{}
	case "tool_output":
		ev = &ToolOutput{}
	case "turn_completed":
		ev = &TurnCompleted{}
	case "error":
		ev = &Error{}
	case "":
		return nil, fmt.Errorf("missing event type")
	default:
		return nil, fmt.Errorf("unknown event type: %s", msgType)
	}

	if err := ev.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return deref(ev), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *Fragment:
		return *e
	case *ToolCall:
		return *e
	case *ToolOutput:
		return *e
	case *TurnCompleted:
		return *e
	case *Error:
		return *e
	}
	return ev
}
