package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/model"
)

type countingTrigger struct{ calls int }

func (c *countingTrigger) Trigger(context.Context) { c.calls++ }

// canceledWith cancels a fresh session reserved by users and returns the
// notification each user received.
func canceledWith(t *testing.T, f *fixture, users ...string) map[string]model.Notification {
	t.Helper()
	s := f.schedule(t, 2*time.Hour, len(users)+1)
	f.reserve(t, s.ID, users...)
	_, err := f.svc.Cancel(f.ctx, s.ID, nil)
	require.NoError(t, err)

	notes, err := f.notes.ListBySession(f.ctx, s.ID)
	require.NoError(t, err)
	out := map[string]model.Notification{}
	for _, n := range notes {
		out[n.UserID] = n
	}
	return out
}

func TestInboxReadsTriggerThePoller(t *testing.T) {
	f := newFixture(t)
	trig := &countingTrigger{}
	f.inbox.poller = trig

	_, err := f.inbox.ListUnread(f.ctx, "u1")
	require.NoError(t, err)
	_, err = f.inbox.ListAll(f.ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, trig.calls)
}

func TestInboxMarkReadUnread(t *testing.T) {
	f := newFixture(t)
	n := canceledWith(t, f, "u1")["u1"]

	changed, err := f.inbox.MarkRead(f.ctx, n.ID, "u1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.inbox.MarkRead(f.ctx, n.ID, "u1")
	require.NoError(t, err)
	assert.False(t, changed)

	unread, err := f.inbox.ListUnread(f.ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, unread)

	got, err := f.notes.GetByID(f.ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)

	changed, err = f.inbox.MarkUnread(f.ctx, n.ID, "u1")
	require.NoError(t, err)
	assert.True(t, changed)
	got, err = f.notes.GetByID(f.ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead)
	assert.Nil(t, got.ReadAt)
}

func TestInboxOwnership(t *testing.T) {
	f := newFixture(t)
	n := canceledWith(t, f, "u1")["u1"]

	_, err := f.inbox.MarkRead(f.ctx, n.ID, "intruder")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.ErrorIs(t, f.inbox.Delete(f.ctx, n.ID, "intruder"), apperr.ErrUnauthorized)

	_, err = f.inbox.MarkRead(f.ctx, "missing", "u1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.inbox.Delete(f.ctx, "missing", "u1"), apperr.ErrNotFound)

	got, err := f.notes.GetByID(f.ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead)
	assert.Nil(t, got.DeletedAt)
}

func TestInboxDeleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	n := canceledWith(t, f, "u1")["u1"]

	require.NoError(t, f.inbox.Delete(f.ctx, n.ID, "u1"))
	require.NoError(t, f.inbox.Delete(f.ctx, n.ID, "u1"))

	_, err := f.inbox.MarkRead(f.ctx, n.ID, "u1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInboxMarkAllReadAndLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		canceledWith(t, f, "u1", "u2")
		f.advance(time.Second)
	}

	list, err := f.inbox.ListAll(f.ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

	n, err := f.inbox.MarkAllRead(f.ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	unread, err := f.inbox.ListUnread(f.ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, unread)
	unread, err = f.inbox.ListUnread(f.ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, unread, 3)
}
