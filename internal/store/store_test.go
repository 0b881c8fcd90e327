package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobysf12/mail-cli/internal/provider"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "cache", "mail.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestAccount(t *testing.T, s *Store, email string) *Account {
	t.Helper()

	acct, err := s.GetOrCreateAccount(context.Background(), "gmail", email, 0)
	require.NoError(t, err)
	return acct
}

func testMessage(id string, received time.Time) provider.Message {
	return provider.Message{
		ID:         id,
		ThreadID:   "thread-" + id,
		Subject:    "subject " + id,
		FromEmail:  "sender@example.com",
		FromName:   "Sender",
		Snippet:    "snippet",
		ReceivedAt: received,
		Read:       false,
	}
}

func TestGetOrCreateAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateAccount(ctx, "gmail", "alice@example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, "gmail", first.Provider)

	again, err := s.GetOrCreateAccount(ctx, "gmail", "alice@example.com", 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	// Creation also seeds the sync state row with the default window.
	st, err := s.SyncStateFor(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, st.SyncWindowDays)
	assert.Nil(t, st.LastSyncAt)
}

func TestGetOrCreateAccountSeedsConfiguredWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct, err := s.GetOrCreateAccount(ctx, "gmail", "alice@example.com", 7)
	require.NoError(t, err)

	st, err := s.SyncStateFor(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, st.SyncWindowDays)
}

func TestFirstAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FirstAccount(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	alice := newTestAccount(t, s, "alice@example.com")
	newTestAccount(t, s, "bob@example.com")

	first, err := s.FirstAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, first.Email)
}

func TestUpsertMessageIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")
	received := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	id1, err := s.UpsertMessage(ctx, acct.ID, testMessage("m1", received))
	require.NoError(t, err)

	// Same natural key keeps the surrogate ID.
	id2, err := s.UpsertMessage(ctx, acct.ID, testMessage("m1", received))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["messages"])
}

func TestUpsertMessageRefreshesProviderFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")
	received := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	id, err := s.UpsertMessage(ctx, acct.ID, testMessage("m1", received))
	require.NoError(t, err)

	// Flip a local flag, then re-sync with changed provider fields.
	require.NoError(t, s.SetArchived(ctx, id, true))

	updated := testMessage("m1", received)
	updated.Subject = "updated subject"
	updated.Read = true
	id2, err := s.UpsertMessage(ctx, acct.ID, updated)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	msg, err := s.MessageByID(ctx, acct.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "updated subject", msg.Subject)
	assert.True(t, msg.Read)
	// Local lifecycle flags survive reconciliation.
	assert.True(t, msg.Archived)
	assert.False(t, msg.Deleted)
}

func TestUpsertMessageTwoSyncsSameWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")
	received := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	batch := []provider.Message{
		testMessage("m1", received),
		testMessage("m2", received.Add(time.Hour)),
		testMessage("m3", received.Add(2*time.Hour)),
	}

	for range 2 {
		for _, msg := range batch {
			_, err := s.UpsertMessage(ctx, acct.ID, msg)
			require.NoError(t, err)
		}
	}

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts["messages"])
}

func TestMessageByIDScopedToAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newTestAccount(t, s, "alice@example.com")
	bob := newTestAccount(t, s, "bob@example.com")

	id, err := s.UpsertMessage(ctx, alice.ID, testMessage("m1", time.Now().UTC()))
	require.NoError(t, err)

	_, err = s.MessageByID(ctx, alice.ID, id)
	require.NoError(t, err)

	// Another account's numeric ID does not resolve.
	_, err = s.MessageByID(ctx, bob.ID, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	oldID, err := s.UpsertMessage(ctx, acct.ID, testMessage("old", base))
	require.NoError(t, err)
	newID, err := s.UpsertMessage(ctx, acct.ID, testMessage("new", base.Add(time.Hour)))
	require.NoError(t, err)

	messages, err := s.ListMessages(ctx, acct.ID, MessageFilter{})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, newID, messages[0].ID, "newest first")

	// Archived rows drop out unless explicitly included.
	require.NoError(t, s.SetArchived(ctx, oldID, true))

	messages, err = s.ListMessages(ctx, acct.ID, MessageFilter{})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, newID, messages[0].ID)

	messages, err = s.ListMessages(ctx, acct.ID, MessageFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	messages, err = s.ListMessages(ctx, acct.ID, MessageFilter{IncludeArchived: true, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestListMessagesByTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")

	tagged, err := s.UpsertMessage(ctx, acct.ID, testMessage("m1", time.Now().UTC()))
	require.NoError(t, err)
	_, err = s.UpsertMessage(ctx, acct.ID, testMessage("m2", time.Now().UTC()))
	require.NoError(t, err)

	tag, err := s.GetOrCreateTag(ctx, acct.ID, "work", "Label_1")
	require.NoError(t, err)
	require.NoError(t, s.LinkMessageTag(ctx, tagged, tag.ID))

	messages, err := s.ListMessages(ctx, acct.ID, MessageFilter{Tag: "work"})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, tagged, messages[0].ID)
}

func TestTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")

	tag, err := s.GetOrCreateTag(ctx, acct.ID, "work", "Label_1")
	require.NoError(t, err)

	again, err := s.GetOrCreateTag(ctx, acct.ID, "work", "")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, again.ID)
	assert.Equal(t, "Label_1", again.ProviderLabelID, "existing row wins")

	_, err = s.TagByName(ctx, acct.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	msgID, err := s.UpsertMessage(ctx, acct.ID, testMessage("m1", time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, s.LinkMessageTag(ctx, msgID, tag.ID))
	// Linking twice is a no-op.
	require.NoError(t, s.LinkMessageTag(ctx, msgID, tag.ID))

	tags, err := s.ListTags(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "work", tags[0].Name)
	assert.Equal(t, 1, tags[0].MessageCount)

	require.NoError(t, s.UnlinkMessageTag(ctx, msgID, tag.ID))

	tags, err = s.ListTags(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, 0, tags[0].MessageCount)
}

func testEvent(id, rule string) provider.Event {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	return provider.Event{
		ID:         id,
		CalendarID: "primary",
		Title:      "standup",
		Start:      start,
		End:        start.Add(30 * time.Minute),
		Status:     "confirmed",
		RRule:      rule,
	}
}

func TestUpsertEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")

	id1, err := s.UpsertEvent(ctx, acct.ID, testEvent("ev1", "FREQ=WEEKLY;BYDAY=MO"))
	require.NoError(t, err)

	id2, err := s.UpsertEvent(ctx, acct.ID, testEvent("ev1", "FREQ=WEEKLY;BYDAY=MO"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	ev, err := s.EventByID(ctx, acct.ID, id1)
	require.NoError(t, err)
	require.NotNil(t, ev.RRule)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", *ev.RRule)

	// Clearing recurrence on the provider side nulls the column.
	_, err = s.UpsertEvent(ctx, acct.ID, testEvent("ev1", ""))
	require.NoError(t, err)

	ev, err = s.EventByID(ctx, acct.ID, id1)
	require.NoError(t, err)
	assert.Nil(t, ev.RRule)
}

func TestEventByIDScopedToAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newTestAccount(t, s, "alice@example.com")
	bob := newTestAccount(t, s, "bob@example.com")

	id, err := s.UpsertEvent(ctx, alice.ID, testEvent("ev1", ""))
	require.NoError(t, err)

	_, err = s.EventByID(ctx, bob.ID, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")

	id, err := s.UpsertEvent(ctx, acct.ID, testEvent("ev1", ""))
	require.NoError(t, err)

	require.NoError(t, s.DeleteEvent(ctx, acct.ID, id))

	_, err = s.EventByID(ctx, acct.ID, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTouchSyncState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	acct := newTestAccount(t, s, "alice@example.com")

	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchSyncState(ctx, acct.ID, at))

	st, err := s.SyncStateFor(ctx, acct.ID)
	require.NoError(t, err)
	require.NotNil(t, st.LastSyncAt)
	assert.True(t, st.LastSyncAt.Equal(at))
}
