package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/database/dbtest"
	"github.com/iliyamo/class-session-booking/internal/model"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type repos struct {
	db       *database.DB
	classes  *ClassRepo
	sessions *SessionRepo
	ledger   *ReservationRepo
	notes    *NotificationRepo
}

func setup(t *testing.T) (context.Context, repos) {
	t.Helper()
	db := dbtest.Open(t)
	return context.Background(), repos{
		db:       db,
		classes:  NewClassRepo(db),
		sessions: NewSessionRepo(db),
		ledger:   NewReservationRepo(db),
		notes:    NewNotificationRepo(db),
	}
}

func (r repos) session(t *testing.T, ctx context.Context, capacity int) *model.Session {
	t.Helper()
	c := &model.Class{Title: "Spinning"}
	require.NoError(t, r.classes.Create(ctx, c, now))
	s := &model.Session{ClassID: c.ID, StartsAt: now.Add(2 * time.Hour), DurationMin: 45, Capacity: capacity}
	require.NoError(t, r.sessions.Create(ctx, s, now))
	return s
}

func (r repos) book(t *testing.T, ctx context.Context, sessionID, userID string) error {
	t.Helper()
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.ledger.InsertConfirmedTx(ctx, tx, userID, sessionID, now); err != nil {
			return err
		}
		return r.ledger.IncrementReservedTx(ctx, tx, sessionID, now)
	})
}

func TestClassDefaults(t *testing.T) {
	ctx, r := setup(t)
	c := &model.Class{Title: "Yoga"}
	require.NoError(t, r.classes.Create(ctx, c, now))

	got, err := r.classes.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultClassDurationMin, got.DefaultDurationMin)
	assert.Equal(t, model.DefaultClassCapacity, got.DefaultCapacity)
	assert.True(t, got.CreatedAt.Equal(now))

	_, err = r.classes.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClassListAndUpdate(t *testing.T) {
	ctx, r := setup(t)
	for _, title := range []string{"Yoga", "Boxing", "Pilates"} {
		require.NoError(t, r.classes.Create(ctx, &model.Class{Title: title}, now))
	}

	page, err := r.classes.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Boxing", page[0].Title)
	assert.Equal(t, "Pilates", page[1].Title)

	rest, err := r.classes.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)

	c := rest[0]
	c.Title = "Hatha Yoga"
	c.DefaultCapacity = 8
	later := now.Add(time.Hour)
	require.NoError(t, r.classes.Update(ctx, &c, later))

	got, err := r.classes.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hatha Yoga", got.Title)
	assert.Equal(t, 8, got.DefaultCapacity)
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestLedgerKeepsCounterInStep(t *testing.T) {
	ctx, r := setup(t)
	s := r.session(t, ctx, 2)

	require.NoError(t, r.book(t, ctx, s.ID, "u1"))
	require.NoError(t, r.book(t, ctx, s.ID, "u2"))
	assert.ErrorIs(t, r.book(t, ctx, s.ID, "u3"), ErrCapacityExceeded)
	assert.ErrorIs(t, r.book(t, ctx, s.ID, "u1"), ErrDuplicate)

	got, err := r.sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	n, err := r.ledger.CountConfirmed(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ReservedCount)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, got.SeatsLeft())

	reason := "closed"
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		k, err := r.ledger.CancelAllBySessionTx(ctx, tx, s.ID, &reason, now)
		if err != nil {
			return err
		}
		assert.EqualValues(t, 2, k)
		return r.ledger.DecrementReservedTx(ctx, tx, s.ID, k, now)
	})
	require.NoError(t, err)

	got, err = r.sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ReservedCount)
	rows, err := r.ledger.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, model.ReservationCanceled, row.Status)
		require.NotNil(t, row.CancelReason)
		assert.Equal(t, "closed", *row.CancelReason)
	}
}

func TestDecrementGuardsAgainstDrift(t *testing.T) {
	ctx, r := setup(t)
	s := r.session(t, ctx, 2)
	require.NoError(t, r.book(t, ctx, s.ID, "u1"))

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return r.ledger.DecrementReservedTx(ctx, tx, s.ID, 2, now)
	})
	assert.ErrorIs(t, err, ErrCounterDrift)

	got, err := r.sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReservedCount)
}

func TestUserIDsBySession(t *testing.T) {
	ctx, r := setup(t)
	s := r.session(t, ctx, 5)
	require.NoError(t, r.book(t, ctx, s.ID, "b"))
	require.NoError(t, r.book(t, ctx, s.ID, "a"))
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := r.ledger.GetActiveTx(ctx, tx, "b", s.ID)
		if err != nil {
			return err
		}
		return r.ledger.CancelTx(ctx, tx, res, nil, now)
	})
	require.NoError(t, err)

	all, err := r.ledger.UserIDsBySession(ctx, s.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, all)

	confirmed, err := r.ledger.UserIDsBySession(ctx, s.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, confirmed)
}

func TestSessionListFilters(t *testing.T) {
	ctx, r := setup(t)
	a := r.session(t, ctx, 5)
	b := r.session(t, ctx, 5)
	b.Status = model.SessionCanceled
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error { return r.sessions.UpdateTx(ctx, tx, b, now) })
	require.NoError(t, err)

	scheduled, err := r.sessions.List(ctx, model.SessionFilter{Status: model.SessionScheduled})
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, a.ID, scheduled[0].ID)
	assert.Equal(t, "Spinning", scheduled[0].ClassTitle)

	from, to := now.Add(time.Hour), now.Add(3*time.Hour)
	between, err := r.sessions.ListScheduledStartingBetween(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, between, 1)

	// bounds are exclusive
	between, err = r.sessions.ListScheduledStartingBetween(ctx, from, a.StartsAt)
	require.NoError(t, err)
	assert.Empty(t, between)

	canceled, err := r.sessions.ListByStatus(ctx, model.SessionCanceled)
	require.NoError(t, err)
	require.Len(t, canceled, 1)
	assert.Equal(t, b.ID, canceled[0].ID)
}

func notification(userID, sessionID string, typ model.NotificationType) model.Notification {
	return model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: &sessionID,
		Type:      typ,
		Title:     "t",
		Body:      "b",
		CreatedAt: now,
	}
}

func TestInsertIgnoreReturnsOnlyWrittenRows(t *testing.T) {
	ctx, r := setup(t)
	s := r.session(t, ctx, 5)

	first, err := r.notes.InsertIgnore(ctx, []model.Notification{
		notification("u1", s.ID, model.NotificationSessionCanceled),
		notification("u2", s.ID, model.NotificationSessionCanceled),
	})
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := r.notes.InsertIgnore(ctx, []model.Notification{
		notification("u1", s.ID, model.NotificationSessionCanceled),
		notification("u3", s.ID, model.NotificationSessionCanceled),
		notification("u1", s.ID, model.NotificationSessionReminder),
	})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "u3", second[0].UserID)
	assert.Equal(t, model.NotificationSessionReminder, second[1].Type)

	users, err := r.notes.UserIDsWithType(ctx, s.ID, model.NotificationSessionCanceled)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, users)

	empty, err := r.notes.InsertIgnore(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInsertIgnoreBatches(t *testing.T) {
	ctx, r := setup(t)
	s := r.session(t, ctx, 5)

	items := make([]model.Notification, 0, insertBatchSize+50)
	for i := 0; i < cap(items); i++ {
		items = append(items, notification(uuid.NewString(), s.ID, model.NotificationSessionRescheduled))
	}
	written, err := r.notes.InsertIgnore(ctx, items)
	require.NoError(t, err)
	assert.Len(t, written, len(items))
}

func TestNotificationReadAndTombstone(t *testing.T) {
	ctx, r := setup(t)
	s := r.session(t, ctx, 5)
	n := notification("u1", s.ID, model.NotificationSessionCanceled)
	_, err := r.notes.InsertIgnore(ctx, []model.Notification{n})
	require.NoError(t, err)

	changed, err := r.notes.SetRead(ctx, n.ID, true, now)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = r.notes.SetRead(ctx, n.ID, true, now)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, r.notes.SoftDelete(ctx, n.ID, now))
	require.NoError(t, r.notes.SoftDelete(ctx, n.ID, now.Add(time.Minute)))

	got, err := r.notes.GetByID(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.True(t, got.DeletedAt.Equal(now))

	list, err := r.notes.ListAll(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	// the tombstone still blocks regeneration
	again, err := r.notes.InsertIgnore(ctx, []model.Notification{notification("u1", s.ID, model.NotificationSessionCanceled)})
	require.NoError(t, err)
	assert.Empty(t, again)
}
