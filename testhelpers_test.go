package strix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/casualjim/strix/provider"
	"github.com/casualjim/strix/store"
	"github.com/casualjim/strix/store/memory"
)

// callLog records the order of remote and store calls across fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

func (l *callLog) index(call string) int {
	return slices.Index(l.all(), call)
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, c := range l.all() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// script is what one run stream produces. A hanging script keeps the run
// active and the stream open until the caller goes away.
type script struct {
	events []provider.StreamEvent
	hang   bool
}

type fakeAssistants struct {
	log *callLog

	mu            sync.Mutex
	params        []provider.AssistantParams
	threadSeq     int
	runSeq        int
	activeRun     string
	runs          []script
	submits       []script
	statuses      []provider.RunStatus
	cancelErr     error
	submitted     [][]provider.ToolOutput
	deleted       []string
	cancelledRuns map[string]bool
}

func newFakeAssistants(log *callLog) *fakeAssistants {
	return &fakeAssistants{log: log, cancelledRuns: make(map[string]bool)}
}

func (f *fakeAssistants) FindOrCreateAssistant(_ context.Context, params provider.AssistantParams) (string, error) {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	f.log.add("find_or_create_assistant")
	return "asst_1", nil
}

func (f *fakeAssistants) CreateThread(context.Context) (string, error) {
	f.mu.Lock()
	f.threadSeq++
	id := fmt.Sprintf("thread_%d", f.threadSeq)
	f.mu.Unlock()
	f.log.add("create_thread:%s", id)
	return id, nil
}

func (f *fakeAssistants) DeleteThread(_ context.Context, threadID string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, threadID)
	f.mu.Unlock()
	f.log.add("delete_thread:%s", threadID)
	return nil
}

func (f *fakeAssistants) CreateMessage(_ context.Context, threadID, text string) error {
	f.log.add("create_message:%s", text)
	return nil
}

func (f *fakeAssistants) ActiveRun(context.Context, string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("active_run")
	return f.activeRun, f.activeRun != "", nil
}

func (f *fakeAssistants) RunStatus(_ context.Context, _, runID string) (provider.RunStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("run_status:%s", runID)
	if len(f.statuses) > 0 {
		status := f.statuses[0]
		f.statuses = f.statuses[1:]
		if status.Terminal() && f.activeRun == runID {
			f.activeRun = ""
		}
		return status, nil
	}
	if f.cancelledRuns[runID] {
		if f.activeRun == runID {
			f.activeRun = ""
		}
		return provider.RunStatusCancelled, nil
	}
	return provider.RunStatusInProgress, nil
}

func (f *fakeAssistants) CancelRun(_ context.Context, _, runID string) error {
	f.log.add("cancel_run:%s", runID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelledRuns[runID] = true
	return nil
}

func (f *fakeAssistants) StreamRun(ctx context.Context, threadID, assistantID string) (<-chan provider.StreamEvent, error) {
	f.mu.Lock()
	f.runSeq++
	runID := fmt.Sprintf("run_%d", f.runSeq)
	if len(f.runs) == 0 {
		f.mu.Unlock()
		return nil, errors.New("no run scripted")
	}
	scr := f.runs[0]
	f.runs = f.runs[1:]
	f.activeRun = runID
	f.mu.Unlock()

	f.log.add("stream_run:%s", runID)
	return f.play(ctx, runID, scr), nil
}

func (f *fakeAssistants) SubmitToolOutputs(ctx context.Context, _, runID string, outputs []provider.ToolOutput) (<-chan provider.StreamEvent, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, outputs)
	if len(f.submits) == 0 {
		f.mu.Unlock()
		return nil, errors.New("no submit scripted")
	}
	scr := f.submits[0]
	f.submits = f.submits[1:]
	f.mu.Unlock()

	f.log.add("submit_tool_outputs:%s", runID)
	return f.play(ctx, runID, scr), nil
}

func (f *fakeAssistants) play(ctx context.Context, runID string, scr script) <-chan provider.StreamEvent {
	ch := make(chan provider.StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range scr.events {
			ev = withRunID(ev, runID)
			select {
			case <-ctx.Done():
				return
			case ch <- ev:
			}
			if fin, ok := ev.(provider.RunFinished); ok && fin.Status.Terminal() {
				f.mu.Lock()
				if f.activeRun == runID {
					f.activeRun = ""
				}
				f.mu.Unlock()
			}
		}
		if scr.hang {
			<-ctx.Done()
		}
	}()
	return ch
}

func (f *fakeAssistants) submittedOutputs() [][]provider.ToolOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.submitted)
}

func withRunID(ev provider.StreamEvent, runID string) provider.StreamEvent {
	switch e := ev.(type) {
	case provider.TextDelta:
		e.RunID = runID
		return e
	case provider.ActionRequired:
		e.RunID = runID
		return e
	case provider.RunFinished:
		e.RunID = runID
		return e
	case provider.Error:
		e.RunID = runID
		return e
	}
	return ev
}

func delta(text string) provider.TextDelta {
	return provider.TextDelta{ThreadID: "thread_1", Text: text}
}

func completed() provider.RunFinished {
	return provider.RunFinished{ThreadID: "thread_1", Status: provider.RunStatusCompleted}
}

func actionRequired(calls ...provider.ToolCall) provider.ActionRequired {
	return provider.ActionRequired{ThreadID: "thread_1", ToolCalls: calls}
}

// recordingStore logs handle writes into the shared call log.
type recordingStore struct {
	*memory.Store
	log *callLog
}

func newRecordingStore(log *callLog) *recordingStore {
	return &recordingStore{Store: memory.New(), log: log}
}

func (s *recordingStore) SaveConversationHandle(ctx context.Context, key, handle string) error {
	s.log.add("save_handle:%s", handle)
	return s.Store.SaveConversationHandle(ctx, key, handle)
}

func (s *recordingStore) SaveTurn(ctx context.Context, key string, turn store.Turn) error {
	s.log.add("save_turn")
	return s.Store.SaveTurn(ctx, key, turn)
}

type fakeAudio struct {
	transcript string
	speech     []byte

	mu     sync.Mutex
	texts  []string
	voices []string
	format []string
	inputs []string
}

func (f *fakeAudio) Transcribe(_ context.Context, _ []byte, format string) (string, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, format)
	f.mu.Unlock()
	return f.transcript, nil
}

func (f *fakeAudio) Synthesize(_ context.Context, text, voice, format string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.voices = append(f.voices, voice)
	f.format = append(f.format, format)
	f.mu.Unlock()
	return io.NopCloser(bytes.NewReader(f.speech)), nil
}

// interleavingAssistants streams fragments tagged with the thread ID and
// holds every stream after its first fragment until all streams started, so
// concurrent turns interleave.
type interleavingAssistants struct {
	*fakeAssistants
	fragments int
	started   sync.WaitGroup
}

func (f *interleavingAssistants) ActiveRun(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (f *interleavingAssistants) StreamRun(ctx context.Context, threadID, _ string) (<-chan provider.StreamEvent, error) {
	ch := make(chan provider.StreamEvent)
	go func() {
		defer close(ch)
		for i := range f.fragments {
			select {
			case <-ctx.Done():
				return
			case ch <- provider.TextDelta{ThreadID: threadID, RunID: "run_" + threadID, Text: threadID + ";"}:
			}
			if i == 0 {
				f.started.Done()
				f.started.Wait()
			}
		}
		select {
		case <-ctx.Done():
		case ch <- provider.RunFinished{ThreadID: threadID, RunID: "run_" + threadID, Status: provider.RunStatusCompleted}:
		}
	}()
	return ch, nil
}
