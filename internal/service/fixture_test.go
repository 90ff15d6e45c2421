package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/database/dbtest"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/model"
	"github.com/iliyamo/class-session-booking/internal/repository"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx context.Context
	db  *database.DB
	now time.Time

	classes  *repository.ClassRepo
	sessions *repository.SessionRepo
	ledger   *repository.ReservationRepo
	notes    *repository.NotificationRepo

	reservations *ReservationService
	notifier     *Notifier
	svc          *SessionService
	inbox        *Inbox
}

type fixtureOption func(*NotifierConfig, *EventPublisher)

func withZone(z *time.Location) fixtureOption {
	return func(c *NotifierConfig, _ *EventPublisher) { c.Zone = z }
}

func withPublisher(p EventPublisher) fixtureOption {
	return func(_ *NotifierConfig, pub *EventPublisher) { *pub = p }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{ctx: context.Background(), db: dbtest.Open(t), now: baseTime}
	clk := clock.Func(func() time.Time { return f.now })
	log := logger.NewDiscard()

	cfg := NotifierConfig{Zone: time.UTC, ReminderMin: 0, ReminderMax: time.Hour, Locale: "es"}
	var pub EventPublisher
	for _, o := range opts {
		o(&cfg, &pub)
	}

	f.classes = repository.NewClassRepo(f.db)
	f.sessions = repository.NewSessionRepo(f.db)
	f.ledger = repository.NewReservationRepo(f.db)
	f.notes = repository.NewNotificationRepo(f.db)

	f.reservations = NewReservationService(f.db, f.sessions, f.ledger, clk, log)
	f.notifier = NewNotifier(f.sessions, f.ledger, f.notes, pub, clk, cfg, log)
	f.svc = NewSessionService(f.db, f.classes, f.sessions, f.ledger, f.reservations, f.notifier, clk, cfg.Zone, log)
	f.inbox = NewInbox(f.notes, nil, clk, log)
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) class(t *testing.T) *model.Class {
	t.Helper()
	c := &model.Class{Title: "Yoga"}
	require.NoError(t, f.classes.Create(f.ctx, c, f.now))
	return c
}

// schedule creates a session starting in `in` with the given capacity.
func (f *fixture) schedule(t *testing.T, in time.Duration, capacity int) *model.Session {
	t.Helper()
	c := f.class(t)
	s, err := f.svc.Schedule(f.ctx, ScheduleInput{
		ClassID:  c.ID,
		StartsAt: f.now.Add(in).Format(time.RFC3339),
		Capacity: &capacity,
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) reserve(t *testing.T, sessionID string, users ...string) {
	t.Helper()
	for _, u := range users {
		_, err := f.reservations.Create(f.ctx, u, sessionID)
		require.NoError(t, err, u)
	}
}

// requireLedgerConsistent checks reserved_count against the CONFIRMED rows.
func (f *fixture) requireLedgerConsistent(t *testing.T, sessionID string) int {
	t.Helper()
	s, err := f.sessions.GetByID(f.ctx, sessionID)
	require.NoError(t, err)
	n, err := f.ledger.CountConfirmed(f.ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, n, s.ReservedCount, "reserved_count drifted from CONFIRMED rows")
	return n
}

func countType(notes []model.Notification, typ model.NotificationType) map[string]int {
	out := map[string]int{}
	for _, n := range notes {
		if n.Type == typ {
			out[n.UserID]++
		}
	}
	return out
}
