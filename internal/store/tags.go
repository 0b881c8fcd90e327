package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tag is the local label abstraction. ProviderLabelID links to the
// provider's native label and is filled in lazily on first use; empty means
// the label has not been created remotely yet.
type Tag struct {
	ID              int64  `db:"id"`
	AccountID       int64  `db:"account_id"`
	Name            string `db:"name"`
	ProviderLabelID string `db:"provider_label_id"`
}

// TagWithCount pairs a tag with the number of messages carrying it.
type TagWithCount struct {
	Tag
	MessageCount int `db:"message_count"`
}

// GetOrCreateTag returns the tag named name for the account, creating the
// row when absent. (account_id, name) is unique per account.
func (s *Store) GetOrCreateTag(ctx context.Context, accountID int64, name, providerLabelID string) (*Tag, error) {
	existing, err := s.TagByName(ctx, accountID, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (account_id, name, provider_label_id) VALUES (?, ?, ?)`,
		accountID, name, providerLabelID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating tag %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading tag id: %w", err)
	}

	return &Tag{ID: id, AccountID: accountID, Name: name, ProviderLabelID: providerLabelID}, nil
}

// TagByName resolves a tag by its per-account unique name.
func (s *Store) TagByName(ctx context.Context, accountID int64, name string) (*Tag, error) {
	var tag Tag
	err := s.db.GetContext(ctx, &tag,
		`SELECT * FROM tags WHERE account_id = ? AND name = ?`, accountID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying tag %q: %w", name, err)
	}
	return &tag, nil
}

// ListTags returns every tag for the account with its message count.
func (s *Store) ListTags(ctx context.Context, accountID int64) ([]TagWithCount, error) {
	var tags []TagWithCount
	err := s.db.SelectContext(ctx, &tags, `
		SELECT t.*, COUNT(mt.message_id) AS message_count
		FROM tags t
		LEFT JOIN message_tags mt ON mt.tag_id = t.id
		WHERE t.account_id = ?
		GROUP BY t.id
		ORDER BY t.name`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	return tags, nil
}

// LinkMessageTag records tag membership for a message. Idempotent: linking
// an existing pair is a no-op.
func (s *Store) LinkMessageTag(ctx context.Context, messageID, tagID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO message_tags (message_id, tag_id) VALUES (?, ?)`,
		messageID, tagID); err != nil {
		return fmt.Errorf("linking message %d to tag %d: %w", messageID, tagID, err)
	}
	return nil
}

// UnlinkMessageTag removes tag membership for a message.
func (s *Store) UnlinkMessageTag(ctx context.Context, messageID, tagID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM message_tags WHERE message_id = ? AND tag_id = ?`,
		messageID, tagID); err != nil {
		return fmt.Errorf("unlinking message %d from tag %d: %w", messageID, tagID, err)
	}
	return nil
}
