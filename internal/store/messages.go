package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobysf12/mail-cli/internal/provider"
)

// Message is a cached mail row. The surrogate ID is the CLI-facing
// reference; is_archived and is_deleted are local lifecycle flags flipped by
// commands after the corresponding remote mutation succeeds.
type Message struct {
	ID                int64      `db:"id"`
	AccountID         int64      `db:"account_id"`
	ProviderMessageID string     `db:"provider_message_id"`
	ThreadID          string     `db:"thread_id"`
	Subject           string     `db:"subject"`
	FromEmail         string     `db:"from_email"`
	FromName          string     `db:"from_name"`
	Snippet           string     `db:"snippet"`
	ReceivedAt        *time.Time `db:"received_at"`
	Read              bool       `db:"is_read"`
	Archived          bool       `db:"is_archived"`
	Deleted           bool       `db:"is_deleted"`
}

// UpsertMessage reconciles a fetched remote record into the cache by its
// natural key (account_id, provider_message_id). Existing rows keep their
// surrogate ID and get every provider-owned field overwritten; the local
// archive/delete flags are untouched. Idempotent under repetition.
func (s *Store) UpsertMessage(ctx context.Context, accountID int64, rec provider.Message) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id,
		`SELECT id FROM messages WHERE account_id = ? AND provider_message_id = ?`,
		accountID, rec.ID,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO messages (
				account_id, provider_message_id, thread_id, subject,
				from_email, from_name, snippet, received_at, is_read
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			accountID, rec.ID, rec.ThreadID, rec.Subject,
			rec.FromEmail, rec.FromName, rec.Snippet, timePtr(rec.ReceivedAt), rec.Read,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting message %s: %w", rec.ID, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading message id: %w", err)
		}

	case err != nil:
		return 0, fmt.Errorf("looking up message %s: %w", rec.ID, err)

	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE messages SET
				thread_id = ?, subject = ?, from_email = ?, from_name = ?,
				snippet = ?, received_at = ?, is_read = ?
			WHERE id = ?`,
			rec.ThreadID, rec.Subject, rec.FromEmail, rec.FromName,
			rec.Snippet, timePtr(rec.ReceivedAt), rec.Read, id,
		); err != nil {
			return 0, fmt.Errorf("updating message %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing message upsert: %w", err)
	}
	return id, nil
}

// MessageByID resolves a local surrogate ID to its cached row, scoped to the
// calling account: a numeric ID belonging to another account yields
// ErrNotFound.
func (s *Store) MessageByID(ctx context.Context, accountID, id int64) (*Message, error) {
	var msg Message
	err := s.db.GetContext(ctx, &msg,
		`SELECT * FROM messages WHERE id = ? AND account_id = ?`, id, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying message %d: %w", id, err)
	}
	return &msg, nil
}

// MessageFilter narrows ListMessages. Archived and deleted rows are excluded
// unless explicitly included.
type MessageFilter struct {
	Tag             string
	IncludeArchived bool
	IncludeDeleted  bool
	Limit           int
}

// ListMessages returns cached messages for the account, newest first.
func (s *Store) ListMessages(ctx context.Context, accountID int64, f MessageFilter) ([]Message, error) {
	conditions := []string{"account_id = ?"}
	args := []interface{}{accountID}

	if !f.IncludeArchived {
		conditions = append(conditions, "is_archived = 0")
	}
	if !f.IncludeDeleted {
		conditions = append(conditions, "is_deleted = 0")
	}
	if f.Tag != "" {
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM message_tags mt
			JOIN tags t ON t.id = mt.tag_id
			WHERE mt.message_id = messages.id AND t.account_id = ? AND t.name = ?
		)`)
		args = append(args, accountID, f.Tag)
	}

	query := "SELECT * FROM messages WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY received_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var messages []Message
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	return messages, nil
}

// SetArchived flips the local archived flag. Called only after the remote
// archive succeeded.
func (s *Store) SetArchived(ctx context.Context, id int64, archived bool) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_archived = ? WHERE id = ?`, archived, id); err != nil {
		return fmt.Errorf("marking message %d archived: %w", id, err)
	}
	return nil
}

// SetDeleted flips the local deleted flag. Called only after the remote
// delete succeeded.
func (s *Store) SetDeleted(ctx context.Context, id int64, deleted bool) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_deleted = ? WHERE id = ?`, deleted, id); err != nil {
		return fmt.Errorf("marking message %d deleted: %w", id, err)
	}
	return nil
}

// timePtr converts a zero time (provider reported nothing) to NULL.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
