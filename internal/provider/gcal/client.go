// Package gcal implements the calendar back-end on top of the Google
// Calendar API.
package gcal

import (
	"context"
	"fmt"
	"time"

	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/bobysf12/mail-cli/internal/auth"
	"github.com/bobysf12/mail-cli/internal/provider"
	"github.com/bobysf12/mail-cli/internal/rrule"
)

// DefaultCalendarID addresses the account's primary calendar.
const DefaultCalendarID = "primary"

// Client implements provider.Calendar for one account.
type Client struct {
	svc   *calendarapi.Service
	email string
}

var _ provider.Calendar = (*Client)(nil)

// New creates a Calendar client for the account. It fails fast with
// auth.ErrNotAuthenticated when no credential is stored for the email.
func New(ctx context.Context, email string, tokens *auth.Manager, opts ...option.ClientOption) (*Client, error) {
	if !tokens.HasCredential(email) {
		return nil, fmt.Errorf("%w: %s", auth.ErrNotAuthenticated, email)
	}

	opts = append([]option.ClientOption{option.WithTokenSource(tokens.TokenSource(ctx, email))}, opts...)
	svc, err := calendarapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Calendar service: %w", err)
	}

	return &Client{svc: svc, email: email}, nil
}

// Calendars lists every calendar visible to the account.
func (c *Client) Calendars(ctx context.Context) ([]provider.CalendarInfo, error) {
	var infos []provider.CalendarInfo
	pageToken := ""
	for {
		call := c.svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, provider.WrapErr("listing calendars", err)
		}
		for _, entry := range res.Items {
			infos = append(infos, provider.CalendarInfo{
				ID:       entry.Id,
				Summary:  entry.Summary,
				TimeZone: entry.TimeZone,
				Primary:  entry.Primary,
			})
		}
		if res.NextPageToken == "" {
			return infos, nil
		}
		pageToken = res.NextPageToken
	}
}

// Events lists events on the calendar, following the page cursor until
// exhausted or limit events have been collected. Recurring series are
// returned as single entries (not expanded into instances).
func (c *Client) Events(ctx context.Context, calendarID string, from, to time.Time, limit int64) ([]provider.Event, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	var events []provider.Event
	pageToken := ""
	for {
		call := c.svc.Events.List(calendarID).SingleEvents(false).Context(ctx)
		if !from.IsZero() {
			call = call.TimeMin(from.Format(time.RFC3339))
		}
		if !to.IsZero() {
			call = call.TimeMax(to.Format(time.RFC3339))
		}
		if limit > 0 {
			remaining := limit - int64(len(events))
			if remaining <= 0 {
				return events, nil
			}
			if remaining > 250 {
				remaining = 250
			}
			call = call.MaxResults(remaining)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, provider.WrapErr("listing events", err)
		}
		for _, ev := range res.Items {
			events = append(events, mapEvent(calendarID, ev))
		}
		if res.NextPageToken == "" || (limit > 0 && int64(len(events)) >= limit) {
			return events, nil
		}
		pageToken = res.NextPageToken
	}
}

// Event fetches a single event.
func (c *Client) Event(ctx context.Context, calendarID, eventID string) (*provider.Event, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	ev, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, provider.WrapErr(fmt.Sprintf("fetching event %s", eventID), err)
	}

	mapped := mapEvent(calendarID, ev)
	return &mapped, nil
}

// Create inserts a new event and returns the provider's view of it.
func (c *Client) Create(ctx context.Context, input provider.EventInput) (*provider.Event, error) {
	calendarID := input.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	ev, err := buildInsertEvent(input)
	if err != nil {
		return nil, err
	}

	created, err := c.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, provider.WrapErr("creating event", err)
	}

	mapped := mapEvent(calendarID, created)
	return &mapped, nil
}

// Update applies a partial update and returns the provider's view of the
// event afterwards.
func (c *Client) Update(ctx context.Context, calendarID, eventID string, patch provider.EventPatch) (*provider.Event, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	ev, err := buildPatchEvent(patch)
	if err != nil {
		return nil, err
	}

	updated, err := c.svc.Events.Patch(calendarID, eventID, ev).Context(ctx).Do()
	if err != nil {
		return nil, provider.WrapErr(fmt.Sprintf("updating event %s", eventID), err)
	}

	mapped := mapEvent(calendarID, updated)
	return &mapped, nil
}

// Delete removes the event on the provider side.
func (c *Client) Delete(ctx context.Context, calendarID, eventID string) error {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	return provider.WrapErr(fmt.Sprintf("deleting event %s", eventID), err)
}

// buildInsertEvent translates an EventInput into the wire representation.
func buildInsertEvent(input provider.EventInput) (*calendarapi.Event, error) {
	ev := &calendarapi.Event{
		Summary:     input.Title,
		Description: input.Description,
		Location:    input.Location,
		Start:       eventDateTime(input.Start, input.AllDay),
		End:         eventDateTime(input.End, input.AllDay),
	}

	if input.RRule != "" {
		recurrence, err := rrule.ToRecurrence(input.RRule)
		if err != nil {
			return nil, err
		}
		ev.Recurrence = recurrence
	}

	return ev, nil
}

// buildPatchEvent translates an EventPatch into the wire representation,
// sending only the provided fields. Clearing recurrence force-sends an empty
// recurrence list: omitting the field would leave prior recurrence intact.
func buildPatchEvent(patch provider.EventPatch) (*calendarapi.Event, error) {
	ev := &calendarapi.Event{}

	if patch.Title != nil {
		ev.Summary = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Location != nil {
		ev.Location = *patch.Location
	}
	if patch.Start != nil {
		ev.Start = eventDateTime(*patch.Start, patch.AllDay)
	}
	if patch.End != nil {
		ev.End = eventDateTime(*patch.End, patch.AllDay)
	}

	switch {
	case patch.ClearRRule:
		ev.Recurrence = []string{}
		ev.ForceSendFields = append(ev.ForceSendFields, "Recurrence")
	case patch.RRule != "":
		recurrence, err := rrule.ToRecurrence(patch.RRule)
		if err != nil {
			return nil, err
		}
		ev.Recurrence = recurrence
	}

	return ev, nil
}

// eventDateTime renders a point in time as either a date-only value (all-day
// events) or an RFC 3339 datetime.
func eventDateTime(t time.Time, allDay bool) *calendarapi.EventDateTime {
	if allDay {
		return &calendarapi.EventDateTime{Date: t.UTC().Format("2006-01-02")}
	}
	return &calendarapi.EventDateTime{DateTime: t.Format(time.RFC3339)}
}

// mapEvent converts the wire representation into the normalized record. An
// event is all-day iff its start is expressed as a date without a time
// component.
func mapEvent(calendarID string, ev *calendarapi.Event) provider.Event {
	rec := provider.Event{
		ID:               ev.Id,
		CalendarID:       calendarID,
		Title:            ev.Summary,
		Description:      ev.Description,
		Location:         ev.Location,
		AllDay:           ev.Start != nil && ev.Start.Date != "",
		Status:           ev.Status,
		HTMLLink:         ev.HtmlLink,
		RRule:            rrule.FromRecurrence(ev.Recurrence),
		RecurringEventID: ev.RecurringEventId,
		Start:            parseEventTime(ev.Start),
		End:              parseEventTime(ev.End),
		OriginalStart:    parseEventTime(ev.OriginalStartTime),
	}

	if ev.Updated != "" {
		if t, err := time.Parse(time.RFC3339, ev.Updated); err == nil {
			rec.Updated = t.UTC()
		}
	}

	return rec
}

// parseEventTime handles both date-only and datetime values; zero when the
// field is absent or malformed.
func parseEventTime(v *calendarapi.EventDateTime) time.Time {
	if v == nil {
		return time.Time{}
	}
	if v.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, v.DateTime); err == nil {
			return t
		}
		return time.Time{}
	}
	if v.Date != "" {
		if t, err := time.Parse("2006-01-02", v.Date); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
