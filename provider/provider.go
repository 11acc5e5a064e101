package provider

import (
	"context"
	"io"

	"github.com/casualjim/strix/tool"
)

// Assistants is the contract of a hosted assistant service: assistants own
// tools and instructions, threads hold conversations and runs execute an
// assistant against a thread.
//
// Streaming operations return a channel of StreamEvent that the implementation
// closes when the remote stream ends. Failures after the stream has started
// are delivered as Error events.
type Assistants interface {
	// FindOrCreateAssistant returns the ID of the assistant named params.Name,
	// creating it when no assistant with that name exists.
	FindOrCreateAssistant(ctx context.Context, params AssistantParams) (string, error)

	CreateThread(ctx context.Context) (string, error)
	DeleteThread(ctx context.Context, threadID string) error

	// CreateMessage appends a user message to the thread.
	CreateMessage(ctx context.Context, threadID, text string) error

	// ActiveRun reports the most recent run of the thread that is still in progress.
	ActiveRun(ctx context.Context, threadID string) (runID string, ok bool, err error)
	RunStatus(ctx context.Context, threadID, runID string) (RunStatus, error)
	CancelRun(ctx context.Context, threadID, runID string) error

	// StreamRun starts a run of the assistant on the thread.
	StreamRun(ctx context.Context, threadID, assistantID string) (<-chan StreamEvent, error)

	// SubmitToolOutputs resumes a run that is waiting for tool outputs.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (<-chan StreamEvent, error)
}

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Synthesizer turns text into encoded speech. The caller closes the returned reader.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, format string) (io.ReadCloser, error)
}

// AssistantParams describes the remote assistant to find or create.
type AssistantParams struct {
	Name         string
	Instructions string
	Model        string
	Tools        []tool.Definition
}

// RunStatus is the lifecycle state of a remote run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether the run can no longer change state.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCancelled, RunStatusFailed, RunStatusCompleted, RunStatusIncomplete, RunStatusExpired:
		return true
	}
	return false
}

// ToolCall is a single function call requested by a paused run.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput is the result of a ToolCall submitted back to the run.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}
