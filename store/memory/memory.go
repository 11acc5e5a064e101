// Package memory is an in-process store. Nothing survives the process.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/strix/store"
)

var _ store.Store = (*Store)(nil)

type turnLog struct {
	mu    sync.Mutex
	turns []store.Turn
}

type Store struct {
	handles *haxmap.Map[string, string]
	turns   *haxmap.Map[string, *turnLog]
}

func New() *Store {
	return &Store{
		handles: haxmap.New[string, string](),
		turns:   haxmap.New[string, *turnLog](),
	}
}

func (s *Store) SaveConversationHandle(_ context.Context, key, handle string) error {
	if key == "" || handle == "" {
		return errors.New("conversation key and handle are required")
	}
	s.handles.Set(key, handle)
	return nil
}

func (s *Store) GetConversationHandle(_ context.Context, key string) (string, bool, error) {
	handle, ok := s.handles.Get(key)
	return handle, ok, nil
}

func (s *Store) SaveTurn(_ context.Context, key string, turn store.Turn) error {
	if key == "" {
		return errors.New("conversation key is required")
	}
	turn.ConversationKey = key
	log, _ := s.turns.GetOrCompute(key, func() *turnLog { return &turnLog{} })
	log.mu.Lock()
	log.turns = append(log.turns, turn)
	log.mu.Unlock()
	return nil
}

func (s *Store) Turns(_ context.Context, key string) ([]store.Turn, error) {
	log, ok := s.turns.Get(key)
	if !ok {
		return nil, nil
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	return slices.Clone(log.turns), nil
}

func (s *Store) DeleteConversation(_ context.Context, key string) error {
	s.turns.Del(key)
	s.handles.Del(key)
	return nil
}

func (s *Store) Close() error {
	return nil
}
