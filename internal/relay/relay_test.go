package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/strix/events"
	"github.com/casualjim/strix/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, conversationKey string, action provider.ActionRequired) (<-chan provider.StreamEvent, error)

func (f resolverFunc) Resolve(ctx context.Context, conversationKey string, action provider.ActionRequired) (<-chan provider.StreamEvent, error) {
	return f(ctx, conversationKey, action)
}

var noResolver = resolverFunc(func(context.Context, string, provider.ActionRequired) (<-chan provider.StreamEvent, error) {
	return nil, errors.New("unexpected resolve")
})

func streamOf(evs ...provider.StreamEvent) <-chan provider.StreamEvent {
	ch := make(chan provider.StreamEvent, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	return ch
}

func delta(text string) provider.TextDelta {
	return provider.TextDelta{ThreadID: "thread_1", RunID: "run_1", Text: text}
}

func finished(status provider.RunStatus) provider.RunFinished {
	return provider.RunFinished{ThreadID: "thread_1", RunID: "run_1", Status: status}
}

func collect(t *testing.T, turn *Turn) []string {
	t.Helper()
	var got []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case frag, ok := <-turn.Fragments():
			if !ok {
				return got
			}
			got = append(got, frag)
		case <-timeout:
			t.Fatal("timeout waiting for fragments")
			return nil
		}
	}
}

type fragmentHook struct {
	events.NopHook
	mu        sync.Mutex
	fragments []events.Fragment
}

func (h *fragmentHook) OnFragment(_ context.Context, ev events.Fragment) {
	h.mu.Lock()
	h.fragments = append(h.fragments, ev)
	h.mu.Unlock()
}

func TestNew_RequiresResolver(t *testing.T) {
	_, err := New(context.Background(), "user-1", nil)
	assert.ErrorContains(t, err, "resolver is required")

	_, err = New(context.Background(), "user-1", noResolver, WithBufferSize(-1))
	assert.ErrorContains(t, err, "must not be negative")
}

func TestTurn_StreamsFragmentsInOrder(t *testing.T) {
	hook := &fragmentHook{}
	turn, err := New(context.Background(), "user-1", noResolver, WithHook(hook))
	require.NoError(t, err)

	turn.Follow(streamOf(delta("Hel"), delta("lo, "), delta("world"), finished(provider.RunStatusCompleted)))

	got := collect(t, turn)
	require.NoError(t, turn.Wait())
	assert.Equal(t, []string{"Hel", "lo, ", "world"}, got)
	assert.Equal(t, strings.Join(got, ""), turn.Text())
	assert.Equal(t, "run_1", turn.RunID())

	require.Len(t, hook.fragments, 3)
	assert.Equal(t, "user-1", hook.fragments[0].ConversationKey)
	assert.Equal(t, "run_1", hook.fragments[0].RunID)
}

func TestTurn_ResolvesActionAndFollowsResumedStream(t *testing.T) {
	var (
		mu      sync.Mutex
		actions []provider.ActionRequired
	)
	resolver := resolverFunc(func(_ context.Context, key string, action provider.ActionRequired) (<-chan provider.StreamEvent, error) {
		mu.Lock()
		actions = append(actions, action)
		mu.Unlock()
		assert.Equal(t, "user-1", key)
		return streamOf(delta("It is "), delta("sunny."), finished(provider.RunStatusCompleted)), nil
	})

	turn, err := New(context.Background(), "user-1", resolver)
	require.NoError(t, err)

	action := provider.ActionRequired{
		ThreadID:  "thread_1",
		RunID:     "run_1",
		ToolCalls: []provider.ToolCall{{ID: "call_1", Name: "lookup", Arguments: `{"city":"Paris"}`}},
	}
	turn.Follow(streamOf(delta("Checking. "), action))

	got := collect(t, turn)
	require.NoError(t, turn.Wait())
	assert.Equal(t, []string{"Checking. ", "It is ", "sunny."}, got)
	assert.Equal(t, "Checking. It is sunny.", turn.Text())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, actions, 1)
	assert.Equal(t, action, actions[0])
}

func TestTurn_Failures(t *testing.T) {
	streamErr := errors.New("stream broke")

	tests := []struct {
		name     string
		resolver Resolver
		stream   <-chan provider.StreamEvent
		check    func(t *testing.T, err error)
	}{
		{
			name:     "stream error",
			resolver: noResolver,
			stream:   streamOf(delta("partial"), provider.Error{ThreadID: "thread_1", RunID: "run_1", Err: streamErr}),
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, streamErr)
				var perr provider.Error
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "run_1", perr.RunID)
			},
		},
		{
			name: "resolver error",
			resolver: resolverFunc(func(context.Context, string, provider.ActionRequired) (<-chan provider.StreamEvent, error) {
				return nil, errors.New("tool lookup failed")
			}),
			stream: streamOf(provider.ActionRequired{ThreadID: "thread_1", RunID: "run_1"}),
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "tool lookup failed")
			},
		},
		{
			name:     "cancelled run",
			resolver: noResolver,
			stream:   streamOf(delta("partial"), finished(provider.RunStatusCancelled)),
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "run finished with status cancelled")
			},
		},
		{
			name:     "no final status",
			resolver: noResolver,
			stream:   streamOf(delta("partial")),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoFinalStatus)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := New(context.Background(), "user-1", tt.resolver)
			require.NoError(t, err)
			turn.Follow(tt.stream)

			collect(t, turn)
			tt.check(t, turn.Wait())
		})
	}
}

func TestTurn_IncompleteRunSucceeds(t *testing.T) {
	turn, err := New(context.Background(), "user-1", noResolver)
	require.NoError(t, err)
	turn.Follow(streamOf(delta("cut"), finished(provider.RunStatusIncomplete)))

	collect(t, turn)
	require.NoError(t, turn.Wait())
	assert.Equal(t, "cut", turn.Text())
}

func TestTurn_Accumulate(t *testing.T) {
	hook := &fragmentHook{}
	turn, err := New(context.Background(), "user-1", noResolver, Accumulate(), WithHook(hook))
	require.NoError(t, err)
	turn.Follow(streamOf(delta("one "), delta("two"), finished(provider.RunStatusCompleted)))

	require.NoError(t, turn.Wait())
	assert.Equal(t, "one two", turn.Text())
	assert.Empty(t, collect(t, turn))
	assert.Len(t, hook.fragments, 2)
}

func TestTurn_ContextCancelStopsBlockedProducer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	turn, err := New(ctx, "user-1", noResolver, WithBufferSize(0))
	require.NoError(t, err)

	stream := make(chan provider.StreamEvent, 2)
	stream <- delta("nobody ")
	stream <- delta("listens")
	turn.Follow(stream)

	cancel()

	done := make(chan error, 1)
	go func() { done <- turn.Wait() }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not stop after cancellation")
	}
}

func TestTurn_WaitWithoutStreams(t *testing.T) {
	turn, err := New(context.Background(), "user-1", noResolver)
	require.NoError(t, err)
	assert.ErrorIs(t, turn.Wait(), ErrNoFinalStatus)
}
