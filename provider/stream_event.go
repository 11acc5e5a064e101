package provider

import (
	"fmt"

	"github.com/go-openapi/strfmt"
)

// StreamEvent is the sealed set of events a run stream produces.
type StreamEvent interface {
	streamEvent()
}

// TextDelta carries a fragment of generated text.
type TextDelta struct {
	ThreadID  string          `json:"thread_id"`
	RunID     string          `json:"run_id"`
	Text      string          `json:"text"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (TextDelta) streamEvent() {}

// ActionRequired signals that the run paused until outputs for ToolCalls are submitted.
// The stream that carried it ends right after.
type ActionRequired struct {
	ThreadID  string          `json:"thread_id"`
	RunID     string          `json:"run_id"`
	ToolCalls []ToolCall      `json:"tool_calls"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (ActionRequired) streamEvent() {}

// RunFinished reports the terminal status of a run.
type RunFinished struct {
	ThreadID  string          `json:"thread_id"`
	RunID     string          `json:"run_id"`
	Status    RunStatus       `json:"status"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (RunFinished) streamEvent() {}

// Error is a failure reported through the stream.
type Error struct {
	ThreadID  string          `json:"thread_id"`
	RunID     string          `json:"run_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("thread_id: %s, run_id: %s, timestamp: %s, error: %v", e.ThreadID, e.RunID, e.Timestamp, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}
