package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/metrics"
	"github.com/iliyamo/class-session-booking/internal/model"
	"github.com/iliyamo/class-session-booking/internal/repository"
	"github.com/iliyamo/class-session-booking/internal/session"
)

// ScheduleInput is the payload for scheduling a session.  StartsAt is an
// RFC 3339 timestamp.  Nil duration or capacity take the class defaults.
type ScheduleInput struct {
	ClassID     string
	StartsAt    string
	DurationMin *int
	Capacity    *int
}

// ListInput filters the session listing.  Day is YYYY-MM-DD in the
// service's zone.  Page starts at 1.
type ListInput struct {
	ClassID string
	Status  string
	Day     string
	Page    int
	Limit   int
}

// SessionService drives the session lifecycle.  Transitions are decided by
// session.Machine and persisted in one transaction together with their
// ledger cascade.  Notifications are generated after the commit; their
// failures are logged and never undo a transition.
type SessionService struct {
	db           *database.DB
	classes      *repository.ClassRepo
	sessions     *repository.SessionRepo
	ledger       *repository.ReservationRepo
	reservations *ReservationService
	notifier     *Notifier
	clock        clock.Clock
	zone         *time.Location
	log          *slog.Logger
}

func NewSessionService(db *database.DB, classes *repository.ClassRepo, sessions *repository.SessionRepo,
	ledger *repository.ReservationRepo, reservations *ReservationService, notifier *Notifier,
	clk clock.Clock, zone *time.Location, log *slog.Logger) *SessionService {
	if zone == nil {
		zone = time.UTC
	}
	return &SessionService{
		db:           db,
		classes:      classes,
		sessions:     sessions,
		ledger:       ledger,
		reservations: reservations,
		notifier:     notifier,
		clock:        clk,
		zone:         zone,
		log:          log,
	}
}

// Schedule creates a SCHEDULED session of a class.
func (s *SessionService) Schedule(ctx context.Context, in ScheduleInput) (sess *model.Session, err error) {
	const op = "service.SessionService.Schedule"
	ctx, span := startSpan(ctx, op, attribute.String("class.id", in.ClassID))
	defer func() {
		endSpan(span, err)
		metrics.SessionTransitions.WithLabelValues("schedule", metrics.Result(err)).Inc()
		if err != nil {
			logFailure(s.log, op, err)
		}
	}()

	if strings.TrimSpace(in.ClassID) == "" {
		return nil, apperr.InvalidField("class_id", "class id is required")
	}
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(in.StartsAt))
	if err != nil {
		return nil, apperr.InvalidField("starts_at", "start time must be an RFC 3339 timestamp")
	}
	now := s.clock.Now().UTC()
	if startsAt.Before(now) {
		return nil, apperr.InvalidField("starts_at", "start time cannot be in the past")
	}

	class, err := s.classes.GetByID(ctx, in.ClassID)
	if err != nil {
		return nil, translate(err, "class")
	}
	duration := class.DefaultDurationMin
	if in.DurationMin != nil {
		duration = *in.DurationMin
	}
	if duration < model.MinSessionDurationMin {
		return nil, apperr.InvalidField("duration_min", "duration must be at least 10 minutes")
	}
	capacity := class.DefaultCapacity
	if in.Capacity != nil {
		capacity = *in.Capacity
	}
	if capacity < 1 {
		return nil, apperr.InvalidField("capacity", "capacity must be at least 1")
	}

	sess = &model.Session{
		ClassID:     class.ID,
		ClassTitle:  class.Title,
		StartsAt:    startsAt,
		DurationMin: duration,
		Capacity:    capacity,
	}
	if err := s.sessions.Create(ctx, sess, now); err != nil {
		return nil, translate(err, "class")
	}
	s.log.Info("session scheduled",
		slog.String("op", op),
		slog.String("session_id", sess.ID),
		slog.Time("starts_at", sess.StartsAt))
	return sess, nil
}

// transition loads the session under lock, applies fn and persists the
// result, all in one transaction.  fn reports whether anything must be
// written.
func (s *SessionService) transition(ctx context.Context, op, id string,
	fn func(ctx context.Context, tx *sql.Tx, m *session.Machine) (bool, error)) (sess *model.Session, err error) {
	ctx, span := startSpan(ctx, "service.SessionService."+op, attribute.String("session.id", id))
	defer func() {
		endSpan(span, err)
		metrics.SessionTransitions.WithLabelValues(op, metrics.Result(err)).Inc()
	}()

	now := s.clock.Now().UTC()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.sessions.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		m := session.New(cur, now)
		dirty, err := fn(ctx, tx, m)
		if err != nil {
			return err
		}
		if dirty {
			if err := s.sessions.UpdateTx(ctx, tx, cur, now); err != nil {
				return err
			}
		}
		sess = cur
		return nil
	})
	if err != nil {
		err = translate(err, "session")
		logFailure(s.log, "service.SessionService."+op, err)
		return nil, err
	}
	return sess, nil
}

// Update applies patch to a SCHEDULED session.  A start shift beyond
// session.RescheduleTolerance touches the session's reservations in the
// same transaction and notifies their holders after the commit.
func (s *SessionService) Update(ctx context.Context, id string, patch model.SessionPatch) (*model.Session, error) {
	const op = "service.SessionService.Update"
	var res session.UpdateResult
	sess, err := s.transition(ctx, "update", id, func(ctx context.Context, tx *sql.Tx, m *session.Machine) (bool, error) {
		var err error
		if res, err = m.Update(patch); err != nil {
			return false, err
		}
		if res.Rescheduled {
			if _, err := s.reservations.InTx(tx, m.Now()).UpdateAllBySession(ctx, m.Session().ID); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if res.Rescheduled {
		s.log.Info("session rescheduled",
			slog.String("op", op),
			slog.String("session_id", sess.ID),
			slog.Time("from", res.PreviousStart),
			slog.Time("to", sess.StartsAt))
		if _, err := s.notifier.NotifySessionRescheduled(ctx, sess, res.PreviousStart); err != nil {
			s.log.Error("reschedule notifications failed", slog.String("op", op), logger.Err(err))
		}
		// moved into the reminder window: remind now instead of waiting for a scan
		if s.notifier.InReminderWindow(sess.StartsAt, s.clock.Now()) {
			if _, err := s.notifier.NotifyReminder(ctx, sess); err != nil {
				s.log.Error("reminder after reschedule failed", slog.String("op", op), logger.Err(err))
			}
		}
	}
	return sess, nil
}

// Cancel cancels a SCHEDULED session together with its CONFIRMED
// reservations.  Canceling a CANCELED session returns it unchanged and
// generates nothing.
func (s *SessionService) Cancel(ctx context.Context, id string, reason *string) (*model.Session, error) {
	const op = "service.SessionService.Cancel"
	var res session.CancelResult
	sess, err := s.transition(ctx, "cancel", id, func(ctx context.Context, tx *sql.Tx, m *session.Machine) (bool, error) {
		var err error
		res, err = m.Cancel(ctx, reason, s.reservations.InTx(tx, m.Now()))
		if err != nil {
			return false, err
		}
		return !res.AlreadyCanceled, nil
	})
	if err != nil {
		return nil, err
	}
	if res.AlreadyCanceled {
		return sess, nil
	}

	s.log.Info("session canceled",
		slog.String("op", op),
		slog.String("session_id", sess.ID),
		slog.Int64("reservations_canceled", res.Canceled))
	if _, err := s.notifier.NotifySessionCanceled(ctx, sess); err != nil {
		// the pending-cancel scan retries
		s.log.Error("cancel notifications failed", slog.String("op", op), logger.Err(err))
	}
	return sess, nil
}

// Start moves a SCHEDULED session to IN_PROGRESS.
func (s *SessionService) Start(ctx context.Context, id string) (*model.Session, error) {
	return s.transition(ctx, "start", id, func(_ context.Context, _ *sql.Tx, m *session.Machine) (bool, error) {
		return true, m.Start()
	})
}

// Complete moves an IN_PROGRESS session to COMPLETED.
func (s *SessionService) Complete(ctx context.Context, id string) (*model.Session, error) {
	return s.transition(ctx, "complete", id, func(_ context.Context, _ *sql.Tx, m *session.Machine) (bool, error) {
		return true, m.Complete()
	})
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		err = translate(err, "session")
		logFailure(s.log, "service.SessionService.Get", err)
		return nil, err
	}
	return sess, nil
}

// List returns sessions matching in, ordered by start.
func (s *SessionService) List(ctx context.Context, in ListInput) ([]model.Session, error) {
	f := model.SessionFilter{ClassID: in.ClassID}
	if in.Status != "" {
		st := model.SessionStatus(strings.ToUpper(in.Status))
		switch st {
		case model.SessionScheduled, model.SessionInProgress, model.SessionCompleted, model.SessionCanceled:
			f.Status = st
		default:
			return nil, apperr.InvalidField("status", "unknown session status")
		}
	}
	if in.Day != "" {
		day, err := time.ParseInLocation(time.DateOnly, in.Day, s.zone)
		if err != nil {
			return nil, apperr.InvalidField("day", "day must be formatted as YYYY-MM-DD")
		}
		next := day.AddDate(0, 0, 1)
		f.From, f.To = &day, &next
	}

	f.Limit = in.Limit
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if in.Page > 1 {
		f.Offset = (in.Page - 1) * f.Limit
	}

	out, err := s.sessions.List(ctx, f)
	if err != nil {
		err = translate(err, "session")
		logFailure(s.log, "service.SessionService.List", err)
		return nil, err
	}
	return out, nil
}
