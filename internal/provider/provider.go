// Package provider defines the normalized records and capability interfaces
// shared by the remote back-ends. Two independent implementations exist,
// gmail and gcal; both translate between the provider's wire representation
// and the records below, and both surface remote rejections as *Error.
package provider

import (
	"context"
	"time"
)

// Message is the normalized mail record. Zero ReceivedAt means the provider
// reported no timestamp.
type Message struct {
	ID         string
	ThreadID   string
	Subject    string
	FromEmail  string
	FromName   string
	Snippet    string
	ReceivedAt time.Time
	Read       bool
	LabelIDs   []string
}

// MessageDetail extends Message with the decoded plain-text body.
type MessageDetail struct {
	Message
	Body string
}

// Mail is the mail back-end capability. List operations page internally
// until exhausted and return one materialized ordered slice, freshly fetched
// on every call. Mutations are synchronous round-trips; callers only touch
// the local cache after one succeeds.
type Mail interface {
	// Messages lists full message records no older than the given number
	// of days, in provider listing order.
	Messages(ctx context.Context, days int) ([]Message, error)
	// Message fetches one message with its body.
	Message(ctx context.Context, id string) (*MessageDetail, error)
	// EnsureLabel returns the provider label ID for name, creating the
	// label remotely when it does not exist yet.
	EnsureLabel(ctx context.Context, name string) (string, error)
	AddLabel(ctx context.Context, messageID, labelName string) error
	// RemoveLabel is a no-op when the label is unknown to the provider.
	RemoveLabel(ctx context.Context, messageID, labelName string) error
	Archive(ctx context.Context, messageID string) error
	Delete(ctx context.Context, messageID string) error
}

// CalendarInfo describes one calendar owned by or shared with the account.
type CalendarInfo struct {
	ID       string
	Summary  string
	TimeZone string
	Primary  bool
}

// Event is the normalized calendar event record. RRule holds the RFC-5545
// rule body without its "RRULE:" prefix; empty means non-recurring.
type Event struct {
	ID               string
	CalendarID       string
	Title            string
	Description      string
	Location         string
	Start            time.Time
	End              time.Time
	AllDay           bool
	Status           string
	HTMLLink         string
	RRule            string
	RecurringEventID string
	OriginalStart    time.Time
	Updated          time.Time
}

// EventInput carries the fields for creating an event.
type EventInput struct {
	CalendarID  string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	RRule       string
}

// EventPatch carries a partial update. Nil pointers mean "leave unchanged".
// ClearRRule sends an explicitly empty recurrence list; omitting the field
// would leave the prior recurrence in place.
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	AllDay      bool
	RRule       string
	ClearRRule  bool
}

// Calendar is the calendar back-end capability.
type Calendar interface {
	Calendars(ctx context.Context) ([]CalendarInfo, error)
	Events(ctx context.Context, calendarID string, from, to time.Time, limit int64) ([]Event, error)
	Event(ctx context.Context, calendarID, eventID string) (*Event, error)
	Create(ctx context.Context, input EventInput) (*Event, error)
	Update(ctx context.Context, calendarID, eventID string, patch EventPatch) (*Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
}
