// Package storetest holds the behaviour every store.Store implementation shares.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/casualjim/strix/pkg/uuidx"
	"github.com/casualjim/strix/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

type acceptanceTest struct {
	name string
	test func(t *testing.T, s store.Store)
}

// Run runs the store acceptance suite against the stores created by factory.
func Run(t *testing.T, factory Factory) {
	tests := []acceptanceTest{
		{"missing handle is absent", testMissingHandle},
		{"saves and reads a handle", testSaveHandle},
		{"keeps handles per key", testHandlesPerKey},
		{"appends turns in insertion order", testTurnOrder},
		{"keeps turns per key", testTurnsPerKey},
		{"delete removes handle and turns", testDelete},
		{"delete of an unknown key succeeds", testDeleteUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := factory(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.test(t, s)
		})
	}
}

func newTurn(input, output string, ts time.Time) store.Turn {
	return store.Turn{
		ID:        uuidx.New(),
		Input:     input,
		Output:    output,
		Timestamp: ts,
	}
}

func testMissingHandle(t *testing.T, s store.Store) {
	handle, ok, err := s.GetConversationHandle(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, handle)
}

func testSaveHandle(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveConversationHandle(ctx, "user-1", "thread_1"))

	handle, ok, err := s.GetConversationHandle(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "thread_1", handle)
}

func testHandlesPerKey(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveConversationHandle(ctx, "user-1", "thread_1"))
	require.NoError(t, s.SaveConversationHandle(ctx, "user-2", "thread_2"))

	h1, _, err := s.GetConversationHandle(ctx, "user-1")
	require.NoError(t, err)
	h2, _, err := s.GetConversationHandle(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "thread_1", h1)
	assert.Equal(t, "thread_2", h2)
}

func testTurnOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var saved []store.Turn
	for i := range 5 {
		turn := newTurn(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.SaveTurn(ctx, "user-1", turn))
		saved = append(saved, turn)
	}

	turns, err := s.Turns(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, turns, len(saved))
	for i, turn := range turns {
		assert.Equal(t, saved[i].ID, turn.ID)
		assert.Equal(t, "user-1", turn.ConversationKey)
		assert.Equal(t, saved[i].Input, turn.Input)
		assert.Equal(t, saved[i].Output, turn.Output)
		assert.True(t, saved[i].Timestamp.Equal(turn.Timestamp), "timestamp %d: want %s, got %s", i, saved[i].Timestamp, turn.Timestamp)
	}
}

func testTurnsPerKey(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.SaveTurn(ctx, "user-1", newTurn("hi", "hello", now)))
	require.NoError(t, s.SaveTurn(ctx, "user-2", newTurn("hey", "howdy", now)))

	turns, err := s.Turns(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hey", turns[0].Input)

	turns, err = s.Turns(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.SaveConversationHandle(ctx, "user-1", "thread_1"))
	require.NoError(t, s.SaveConversationHandle(ctx, "user-2", "thread_2"))
	require.NoError(t, s.SaveTurn(ctx, "user-1", newTurn("hi", "hello", now)))
	require.NoError(t, s.SaveTurn(ctx, "user-1", newTurn("again", "sure", now)))
	require.NoError(t, s.SaveTurn(ctx, "user-2", newTurn("hey", "howdy", now)))

	require.NoError(t, s.DeleteConversation(ctx, "user-1"))

	_, ok, err := s.GetConversationHandle(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
	turns, err := s.Turns(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	handle, ok, err := s.GetConversationHandle(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "thread_2", handle)
	turns, err = s.Turns(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func testDeleteUnknown(t *testing.T, s store.Store) {
	assert.NoError(t, s.DeleteConversation(context.Background(), "nobody"))
}
