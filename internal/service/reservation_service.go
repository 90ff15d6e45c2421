package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/metrics"
	"github.com/iliyamo/class-session-booking/internal/model"
	"github.com/iliyamo/class-session-booking/internal/repository"
)

// ReservationService books and releases seats.  Every operation runs in a
// single transaction that keeps reserved_count equal to the number of
// CONFIRMED reservations.
type ReservationService struct {
	db       *database.DB
	sessions *repository.SessionRepo
	ledger   *repository.ReservationRepo
	clock    clock.Clock
	log      *slog.Logger
}

func NewReservationService(db *database.DB, sessions *repository.SessionRepo, ledger *repository.ReservationRepo,
	clk clock.Clock, log *slog.Logger) *ReservationService {
	return &ReservationService{db: db, sessions: sessions, ledger: ledger, clock: clk, log: log}
}

// Create reserves one seat of sessionID for userID.
func (s *ReservationService) Create(ctx context.Context, userID, sessionID string) (res *model.Reservation, err error) {
	const op = "service.ReservationService.Create"
	ctx, span := startSpan(ctx, op, attribute.String("session.id", sessionID))
	defer func() {
		endSpan(span, err)
		metrics.Reservations.WithLabelValues("create", metrics.Result(err)).Inc()
	}()

	if userID == "" {
		return nil, apperr.InvalidField("user_id", "user id is required")
	}
	now := s.clock.Now().UTC()

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		sess, err := s.sessions.GetForUpdateTx(ctx, tx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("session")
			}
			return err
		}
		if sess.Status != model.SessionScheduled {
			return apperr.ErrSessionNotReservable
		}
		if !sess.StartsAt.After(now) {
			return apperr.ErrSessionInPast
		}

		_, err = s.ledger.GetActiveTx(ctx, tx, userID, sessionID)
		switch {
		case err == nil:
			return apperr.ErrDuplicateReservation
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		r, err := s.ledger.InsertConfirmedTx(ctx, tx, userID, sessionID, now)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.ErrDuplicateReservation
			}
			return err
		}
		if err := s.ledger.IncrementReservedTx(ctx, tx, sessionID, now); err != nil {
			if errors.Is(err, repository.ErrCapacityExceeded) {
				return apperr.ErrCapacityExceeded
			}
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		err = translate(err, "session")
		logFailure(s.log, op, err)
		return nil, err
	}

	s.log.Info("reservation created",
		slog.String("op", op),
		slog.String("reservation_id", res.ID),
		slog.String("session_id", sessionID),
		slog.String("user_id", userID))
	return res, nil
}

// CancelMine cancels the caller's CONFIRMED reservation for sessionID.
func (s *ReservationService) CancelMine(ctx context.Context, userID, sessionID string) (res *model.Reservation, err error) {
	const op = "service.ReservationService.CancelMine"
	ctx, span := startSpan(ctx, op, attribute.String("session.id", sessionID))
	defer func() {
		endSpan(span, err)
		metrics.Reservations.WithLabelValues("cancel", metrics.Result(err)).Inc()
	}()

	now := s.clock.Now().UTC()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// lock order matches Create: session row first
		if _, err := s.sessions.GetForUpdateTx(ctx, tx, sessionID); err != nil {
			return err
		}
		r, err := s.ledger.GetActiveTx(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if err := s.ledger.CancelTx(ctx, tx, r, nil, now); err != nil {
			return err
		}
		if err := s.ledger.DecrementReservedTx(ctx, tx, sessionID, 1, now); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		err = translate(err, "reservation")
		logFailure(s.log, op, err)
		return nil, err
	}
	s.log.Info("reservation canceled",
		slog.String("op", op),
		slog.String("reservation_id", res.ID),
		slog.String("session_id", sessionID))
	return res, nil
}

// CancelAllBySession cancels every CONFIRMED reservation of the session in
// its own transaction and returns how many were canceled.  Zero is a
// successful no-op.
func (s *ReservationService) CancelAllBySession(ctx context.Context, sessionID string, reason *string) (int64, error) {
	const op = "service.ReservationService.CancelAllBySession"
	now := s.clock.Now().UTC()
	var n int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = s.InTx(tx, now).CancelAllBySession(ctx, sessionID, reason)
		return err
	})
	if err != nil {
		err = translate(err, "session")
		logFailure(s.log, op, err)
		return 0, err
	}
	return n, nil
}

// UpdateAllBySession touches every reservation of the session so
// downstream readers see that its schedule changed.
func (s *ReservationService) UpdateAllBySession(ctx context.Context, sessionID string) (int64, error) {
	const op = "service.ReservationService.UpdateAllBySession"
	now := s.clock.Now().UTC()
	var n int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = s.InTx(tx, now).UpdateAllBySession(ctx, sessionID)
		return err
	})
	if err != nil {
		err = translate(err, "session")
		logFailure(s.log, op, err)
		return 0, err
	}
	return n, nil
}

// ListMine returns the caller's reservations, newest first.
func (s *ReservationService) ListMine(ctx context.Context, userID string) ([]model.ReservationDetail, error) {
	out, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		err = translate(err, "reservation")
		logFailure(s.log, "service.ReservationService.ListMine", err)
		return nil, err
	}
	return out, nil
}

// InTx binds the ledger's bulk operations to tx.  The session lifecycle
// uses it to cascade a cancel inside its own unit of work.
func (s *ReservationService) InTx(tx *sql.Tx, now time.Time) *TxLedger {
	return &TxLedger{ledger: s.ledger, tx: tx, now: now}
}

// TxLedger is the ledger bound to one open transaction.
type TxLedger struct {
	ledger *repository.ReservationRepo
	tx     *sql.Tx
	now    time.Time
}

// CancelAllBySession flips the session's CONFIRMED reservations to CANCELED
// and releases exactly that many seats.
func (l *TxLedger) CancelAllBySession(ctx context.Context, sessionID string, reason *string) (int64, error) {
	n, err := l.ledger.CancelAllBySessionTx(ctx, l.tx, sessionID, reason, l.now)
	if err != nil {
		return 0, err
	}
	if err := l.ledger.DecrementReservedTx(ctx, l.tx, sessionID, n, l.now); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateAllBySession touches updated_at of every reservation of the session.
func (l *TxLedger) UpdateAllBySession(ctx context.Context, sessionID string) (int64, error) {
	return l.ledger.TouchAllBySessionTx(ctx, l.tx, sessionID, l.now)
}
