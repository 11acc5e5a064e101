// Package mongo stores conversations in MongoDB.
//
// Thread handles live in the threads collection and turns in the messages
// collection, both keyed by user_id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ store.Store = (*Store)(nil)

const (
	threadsCollection  = "threads"
	messagesCollection = "messages"
)

type threadDocument struct {
	UserID   string `bson:"user_id"`
	ThreadID string `bson:"thread_id"`
}

type turnDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Message   string    `bson:"message"`
	Response  string    `bson:"response"`
	Timestamp time.Time `bson:"timestamp"`
}

type Store struct {
	client   *mongo.Client
	threads  *mongo.Collection
	messages *mongo.Collection
	owned    bool
}

// Connect dials url and opens the store on database. Close disconnects the client.
func Connect(ctx context.Context, url, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s, err := New(ctx, client, database)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New opens the store on database with a client the caller keeps ownership of.
func New(ctx context.Context, client *mongo.Client, database string) (*Store, error) {
	if database == "" {
		return nil, errors.New("database name is required")
	}
	db := client.Database(database)
	s := &Store{
		client:   client,
		threads:  db.Collection(threadsCollection),
		messages: db.Collection(messagesCollection),
	}

	if _, err := s.threads.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", threadsCollection, err)
	}
	if _, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	}); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", messagesCollection, err)
	}

	slog.Debug("opened mongo store", slogx.LoggerName("strix.store.mongo"), slog.String("database", database))
	return s, nil
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) SaveConversationHandle(ctx context.Context, key, handle string) error {
	if key == "" || handle == "" {
		return errors.New("conversation key and handle are required")
	}
	_, err := s.threads.UpdateOne(ctx,
		bson.M{"user_id": key},
		bson.M{"$set": threadDocument{UserID: key, ThreadID: handle}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save thread of %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetConversationHandle(ctx context.Context, key string) (string, bool, error) {
	var doc threadDocument
	err := s.threads.FindOne(ctx, bson.M{"user_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get thread of %s: %w", key, err)
	}
	return doc.ThreadID, true, nil
}

func (s *Store) SaveTurn(ctx context.Context, key string, turn store.Turn) error {
	if key == "" {
		return errors.New("conversation key is required")
	}
	if turn.ID == uuid.Nil {
		return errors.New("turn id is required")
	}
	_, err := s.messages.InsertOne(ctx, turnDocument{
		ID:        turn.ID.String(),
		UserID:    key,
		Message:   turn.Input,
		Response:  turn.Output,
		Timestamp: turn.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save turn of %s: %w", key, err)
	}
	return nil
}

// Turns sorts on _id, turn ids are UUIDv7 so that is insertion order.
func (s *Store) Turns(ctx context.Context, key string) ([]store.Turn, error) {
	cursor, err := s.messages.Find(ctx, bson.M{"user_id": key}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list turns of %s: %w", key, err)
	}
	var docs []turnDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode turns of %s: %w", key, err)
	}

	turns := make([]store.Turn, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid turn id %q: %w", doc.ID, err)
		}
		turns = append(turns, store.Turn{
			ID:              id,
			ConversationKey: doc.UserID,
			Input:           doc.Message,
			Output:          doc.Response,
			Timestamp:       doc.Timestamp,
		})
	}
	return turns, nil
}

// DeleteConversation removes the turns before the handle, a partial failure
// leaves the handle in place so the delete can be retried.
func (s *Store) DeleteConversation(ctx context.Context, key string) error {
	if _, err := s.messages.DeleteMany(ctx, bson.M{"user_id": key}); err != nil {
		return fmt.Errorf("failed to delete turns of %s: %w", key, err)
	}
	if _, err := s.threads.DeleteOne(ctx, bson.M{"user_id": key}); err != nil {
		return fmt.Errorf("failed to delete thread of %s: %w", key, err)
	}
	return nil
}
