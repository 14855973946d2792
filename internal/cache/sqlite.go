package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a cache backend that survives process restarts, useful
// when the frontend runs as more than one replica behind a shared volume.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the cache database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversation_cache (
			key TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			model_id TEXT,
			messages TEXT NOT NULL,
			initial_view_pending INTEGER DEFAULT 0,
			updated_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_expires ON conversation_cache(expires_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Put upserts the entry under key with the given TTL.
func (s *SQLiteStore) Put(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	messagesJSON, err := json.Marshal(entry.Messages)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_cache (key, conversation_id, model_id, messages, initial_view_pending, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			model_id = excluded.model_id,
			messages = excluded.messages,
			initial_view_pending = excluded.initial_view_pending,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`, key, entry.ConversationID, entry.ModelID, string(messagesJSON),
		boolToInt(entry.InitialViewPending), entry.UpdatedAt, entry.UpdatedAt.Add(ttl))

	return err
}

// Fetch returns the entry for key, or nil if absent or expired. Expired
// rows are deleted opportunistically.
func (s *SQLiteStore) Fetch(ctx context.Context, key string) (*Entry, error) {
	entry := &Entry{}
	var messagesJSON string
	var initialViewPending int64
	var expiresAt time.Time

	err := s.db.QueryRowContext(ctx, `
		SELECT conversation_id, model_id, messages, initial_view_pending, updated_at, expires_at
		FROM conversation_cache WHERE key = ?
	`, key).Scan(&entry.ConversationID, &entry.ModelID, &messagesJSON,
		&initialViewPending, &entry.UpdatedAt, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(expiresAt) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM conversation_cache WHERE key = ?`, key)
		return nil, nil
	}

	if err := json.Unmarshal([]byte(messagesJSON), &entry.Messages); err != nil {
		return nil, err
	}
	entry.InitialViewPending = initialViewPending != 0

	return entry, nil
}

// Delete removes the entry for key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_cache WHERE key = ?`, key)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
