package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Account ties a provider to an authenticated email address. Immutable after
// creation except implicitly through re-auth.
type Account struct {
	ID        int64     `db:"id"`
	Provider  string    `db:"provider"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

// GetOrCreateAccount returns the account for email, creating it (and its
// sync_state row, seeded with syncWindowDays) on first authentication. A
// non-positive window falls back to the default. Email is unique across
// accounts.
func (s *Store) GetOrCreateAccount(ctx context.Context, provider, email string, syncWindowDays int) (*Account, error) {
	existing, err := s.AccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (provider, email, created_at) VALUES (?, ?, ?)`,
		provider, email, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating account %s: %w", email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading account id: %w", err)
	}

	if syncWindowDays <= 0 {
		syncWindowDays = defaultSyncWindowDays
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_state (account_id, sync_window_days) VALUES (?, ?)`,
		id, syncWindowDays,
	); err != nil {
		return nil, fmt.Errorf("seeding sync state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing account: %w", err)
	}

	return &Account{ID: id, Provider: provider, Email: email, CreatedAt: now}, nil
}

// AccountByEmail resolves an account by its unique email.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	var acc Account
	err := s.db.GetContext(ctx, &acc, `SELECT * FROM accounts WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying account %s: %w", email, err)
	}
	return &acc, nil
}

// FirstAccount returns the oldest cached account, or ErrNotFound when none
// exists yet.
func (s *Store) FirstAccount(ctx context.Context) (*Account, error) {
	var acc Account
	err := s.db.GetContext(ctx, &acc, `SELECT * FROM accounts ORDER BY id LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no accounts cached: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying first account: %w", err)
	}
	return &acc, nil
}

// Accounts lists every cached account.
func (s *Store) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := s.db.SelectContext(ctx, &accounts, `SELECT * FROM accounts ORDER BY id`); err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	return accounts, nil
}
