// Package store persists conversation handles and the turns exchanged in them.
package store

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Turn is one exchange recorded after its run completed.
type Turn struct {
	ID              uuid.UUID `json:"id" bson:"_id"`
	ConversationKey string    `json:"conversation_key" bson:"user_id"`
	Input           string    `json:"input" bson:"message"`
	Output          string    `json:"output" bson:"response"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
}

// Store is the persistence contract of a conversation.
//
// A conversation key maps to at most one remote thread handle. Turns are
// append-only and read back in insertion order.
type Store interface {
	io.Closer
	SaveConversationHandle(ctx context.Context, key, handle string) error
	// GetConversationHandle reports false when the key has no handle.
	GetConversationHandle(ctx context.Context, key string) (string, bool, error)
	SaveTurn(ctx context.Context, key string, turn Turn) error
	Turns(ctx context.Context, key string) ([]Turn, error)
	// DeleteConversation removes the handle and every turn of the key.
	DeleteConversation(ctx context.Context, key string) error
}
