// Package store owns the local SQLite cache and the reconciliation protocol
// that maps provider-native records onto local surrogate-ID rows.
//
// The cache is a mirror of the provider, never an independent source of
// truth: surrogate IDs are the only thing it owns, every other field is
// overwritten by reconciliation. The natural key (account_id, provider-native
// id) detects "already cached" independent of the surrogate ID, which stays
// stable across syncs.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound means a local ID does not resolve to a cached row for the
// calling account. The fix is usually to re-run the listing command, which
// performs the sync.
var ErrNotFound = errors.New("record not found in local cache (re-run the listing command to sync)")

// Store wraps the local SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the cache database at dbPath, creating the parent
// directory on demand. Schema creation is idempotent.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL CHECK(provider IN ('gmail', 'outlook')),
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		provider_message_id TEXT NOT NULL,
		thread_id TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		from_email TEXT NOT NULL DEFAULT '',
		from_name TEXT NOT NULL DEFAULT '',
		snippet TEXT NOT NULL DEFAULT '',
		received_at TIMESTAMP,
		is_read INTEGER NOT NULL DEFAULT 0,
		is_archived INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_account_provider
		ON messages(account_id, provider_message_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_account ON messages(account_id)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		name TEXT NOT NULL,
		provider_label_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_account_name
		ON tags(account_id, name)`,
	`CREATE TABLE IF NOT EXISTS message_tags (
		message_id INTEGER NOT NULL REFERENCES messages(id),
		tag_id INTEGER NOT NULL REFERENCES tags(id),
		PRIMARY KEY (message_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_state (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		last_sync_at TIMESTAMP,
		sync_window_days INTEGER NOT NULL DEFAULT 30
	)`,
	`CREATE TABLE IF NOT EXISTS calendar_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		provider_calendar_id TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		start_at TIMESTAMP,
		end_at TIMESTAMP,
		is_all_day INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT '',
		html_link TEXT NOT NULL DEFAULT '',
		rrule TEXT,
		recurring_event_id TEXT NOT NULL DEFAULT '',
		original_start_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_account_provider
		ON calendar_events(account_id, provider_event_id)`,
}

func (s *Store) initSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema statement: %w", err)
		}
	}
	return nil
}

// Counts returns per-table row counts for the health check.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	tables := []string{"accounts", "messages", "tags", "message_tags", "sync_state", "calendar_events"}

	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int
		if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
