// Package sqlite stores conversations in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/store"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS threads (
  user_id TEXT PRIMARY KEY,
  thread_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  message TEXT NOT NULL,
  response TEXT NOT NULL,
  timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id);
`

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories as needed.
func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" || p == "." {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	}
	// one writer, sqlite serializes anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Debug("opened sqlite store", slogx.LoggerName("strix.store.sqlite"), slog.String("path", p))
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveConversationHandle(ctx context.Context, key, handle string) error {
	if key == "" || handle == "" {
		return errors.New("conversation key and handle are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (user_id, thread_id) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET thread_id = excluded.thread_id`,
		key, handle,
	)
	if err != nil {
		return fmt.Errorf("failed to save thread of %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetConversationHandle(ctx context.Context, key string) (string, bool, error) {
	var handle string
	err := s.db.QueryRowContext(ctx, `SELECT thread_id FROM threads WHERE user_id = ?`, key).Scan(&handle)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get thread of %s: %w", key, err)
	}
	return handle, true, nil
}

func (s *Store) SaveTurn(ctx context.Context, key string, turn store.Turn) error {
	if key == "" {
		return errors.New("conversation key is required")
	}
	if turn.ID == uuid.Nil {
		return errors.New("turn id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, message, response, timestamp) VALUES (?, ?, ?, ?, ?)`,
		turn.ID.String(), key, turn.Input, turn.Output, turn.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save turn of %s: %w", key, err)
	}
	return nil
}

func (s *Store) Turns(ctx context.Context, key string) ([]store.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message, response, timestamp FROM messages WHERE user_id = ? ORDER BY rowid ASC`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns of %s: %w", key, err)
	}
	defer rows.Close()

	var turns []store.Turn
	for rows.Next() {
		var id, ts string
		turn := store.Turn{ConversationKey: key}
		if err := rows.Scan(&id, &turn.Input, &turn.Output, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan turn of %s: %w", key, err)
		}
		if turn.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid turn id %q: %w", id, err)
		}
		if turn.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("invalid turn timestamp %q: %w", ts, err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list turns of %s: %w", key, err)
	}
	return turns, nil
}

func (s *Store) DeleteConversation(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ?`, key); err != nil {
		return fmt.Errorf("failed to delete turns of %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE user_id = ?`, key); err != nil {
		return fmt.Errorf("failed to delete thread of %s: %w", key, err)
	}
	return tx.Commit()
}
