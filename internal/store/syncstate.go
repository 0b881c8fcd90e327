package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultSyncWindowDays = 30

// SyncState records, per account, when the last successful mail sync
// finished and the configured look-back window.
type SyncState struct {
	ID             int64      `db:"id"`
	AccountID      int64      `db:"account_id"`
	LastSyncAt     *time.Time `db:"last_sync_at"`
	SyncWindowDays int        `db:"sync_window_days"`
}

// SyncStateFor returns the sync state row for the account.
func (s *Store) SyncStateFor(ctx context.Context, accountID int64) (*SyncState, error) {
	var st SyncState
	err := s.db.GetContext(ctx, &st,
		`SELECT * FROM sync_state WHERE account_id = ?`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync state for account %d: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying sync state: %w", err)
	}
	return &st, nil
}

// TouchSyncState records a successful sync pass. Called only at the end of
// one.
func (s *Store) TouchSyncState(ctx context.Context, accountID int64, at time.Time) error {
	at = at.UTC()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE sync_state SET last_sync_at = ? WHERE account_id = ?`, at, accountID); err != nil {
		return fmt.Errorf("updating sync state: %w", err)
	}
	return nil
}
