package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bobysf12/mail-cli/internal/provider"
)

// CalendarEvent is a cached event row. RRule is NULL for non-recurring
// events; the stored value carries no "RRULE:" prefix.
type CalendarEvent struct {
	ID                 int64      `db:"id"`
	AccountID          int64      `db:"account_id"`
	ProviderCalendarID string     `db:"provider_calendar_id"`
	ProviderEventID    string     `db:"provider_event_id"`
	Title              string     `db:"title"`
	Description        string     `db:"description"`
	Location           string     `db:"location"`
	StartAt            *time.Time `db:"start_at"`
	EndAt              *time.Time `db:"end_at"`
	AllDay             bool       `db:"is_all_day"`
	Status             string     `db:"status"`
	HTMLLink           string     `db:"html_link"`
	RRule              *string    `db:"rrule"`
	RecurringEventID   string     `db:"recurring_event_id"`
	OriginalStartAt    *time.Time `db:"original_start_at"`
	UpdatedAt          *time.Time `db:"updated_at"`
}

// UpsertEvent reconciles a fetched remote event into the cache by its
// natural key (account_id, provider_event_id). Existing rows keep their
// surrogate ID and get every provider-owned field overwritten. Idempotent
// under repetition.
func (s *Store) UpsertEvent(ctx context.Context, accountID int64, rec provider.Event) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id,
		`SELECT id FROM calendar_events WHERE account_id = ? AND provider_event_id = ?`,
		accountID, rec.ID,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO calendar_events (
				account_id, provider_calendar_id, provider_event_id,
				title, description, location, start_at, end_at, is_all_day,
				status, html_link, rrule, recurring_event_id,
				original_start_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			accountID, rec.CalendarID, rec.ID,
			rec.Title, rec.Description, rec.Location,
			timePtr(rec.Start), timePtr(rec.End), rec.AllDay,
			rec.Status, rec.HTMLLink, rrulePtr(rec.RRule), rec.RecurringEventID,
			timePtr(rec.OriginalStart), timePtr(rec.Updated),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting event %s: %w", rec.ID, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading event id: %w", err)
		}

	case err != nil:
		return 0, fmt.Errorf("looking up event %s: %w", rec.ID, err)

	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE calendar_events SET
				provider_calendar_id = ?, title = ?, description = ?,
				location = ?, start_at = ?, end_at = ?, is_all_day = ?,
				status = ?, html_link = ?, rrule = ?, recurring_event_id = ?,
				original_start_at = ?, updated_at = ?
			WHERE id = ?`,
			rec.CalendarID, rec.Title, rec.Description,
			rec.Location, timePtr(rec.Start), timePtr(rec.End), rec.AllDay,
			rec.Status, rec.HTMLLink, rrulePtr(rec.RRule), rec.RecurringEventID,
			timePtr(rec.OriginalStart), timePtr(rec.Updated), id,
		); err != nil {
			return 0, fmt.Errorf("updating event %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing event upsert: %w", err)
	}
	return id, nil
}

// EventByID resolves a local surrogate ID to its cached row, scoped to the
// calling account.
func (s *Store) EventByID(ctx context.Context, accountID, id int64) (*CalendarEvent, error) {
	var ev CalendarEvent
	err := s.db.GetContext(ctx, &ev,
		`SELECT * FROM calendar_events WHERE id = ? AND account_id = ?`, id, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying event %d: %w", id, err)
	}
	return &ev, nil
}

// DeleteEvent removes the cached row after the remote delete succeeded.
func (s *Store) DeleteEvent(ctx context.Context, accountID, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE id = ? AND account_id = ?`, id, accountID); err != nil {
		return fmt.Errorf("deleting event %d: %w", id, err)
	}
	return nil
}

// rrulePtr converts an empty rule (non-recurring) to NULL.
func rrulePtr(rule string) *string {
	if rule == "" {
		return nil
	}
	return &rule
}
