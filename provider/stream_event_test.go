package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("rate limited")
	ts := strfmt.DateTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	err := Error{ThreadID: "th_1", RunID: "run_1", Err: cause, Timestamp: ts}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "thread_id: th_1")
	assert.Contains(t, err.Error(), "run_id: run_1")
	assert.Contains(t, err.Error(), "error: rate limited")
}

func TestStreamEventsAreSealed(t *testing.T) {
	events := []StreamEvent{
		TextDelta{Text: "hi"},
		ActionRequired{RunID: "run_1"},
		RunFinished{Status: RunStatusCompleted},
		Error{Err: errors.New("x")},
	}
	assert.Len(t, events, 4)
}

func TestRunStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   RunStatus
		terminal bool
	}{
		{RunStatusQueued, false},
		{RunStatusInProgress, false},
		{RunStatusRequiresAction, false},
		{RunStatusCancelling, false},
		{RunStatusCancelled, true},
		{RunStatusFailed, true},
		{RunStatusCompleted, true},
		{RunStatusIncomplete, true},
		{RunStatusExpired, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}
