package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/model"
)

// ReservationRepo is the capacity ledger.  It owns the reservation rows and
// the reserved_count column of class_sessions, and every method that changes
// one of them changes the other inside the same transaction.
type ReservationRepo struct {
	db *database.DB
}

// NewReservationRepo constructs a ReservationRepo with the given DB handle.
func NewReservationRepo(db *database.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

const reservationColumns = `id, user_id, session_id, status, canceled_at, cancel_reason, created_at, updated_at`

func scanReservation(row rowScanner, extra ...any) (*model.Reservation, error) {
	var (
		res              model.Reservation
		status           string
		canceledAt       sql.NullInt64
		reason           sql.NullString
		created, updated int64
	)
	dest := append([]any{&res.ID, &res.UserID, &res.SessionID, &status, &canceledAt, &reason, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	res.CanceledAt = database.FromNullMillis(canceledAt)
	if reason.Valid {
		res.CancelReason = &reason.String
	}
	res.CreatedAt = database.FromMillis(created)
	res.UpdatedAt = database.FromMillis(updated)
	return &res, nil
}

// GetActiveTx returns the user's CONFIRMED reservation for the session, or
// ErrNotFound.
func (r *ReservationRepo) GetActiveTx(ctx context.Context, tx *sql.Tx, userID, sessionID string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE user_id = ? AND session_id = ? AND status = ?` + r.db.Dialect.ForUpdate()
	res, err := scanReservation(tx.QueryRowContext(ctx, r.db.Dialect.Rebind(q),
		userID, sessionID, string(model.ReservationConfirmed)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// InsertConfirmedTx writes a new CONFIRMED reservation.  A concurrent
// duplicate that slipped past the caller's check is reported as
// ErrDuplicate by the active-reservation unique index.
func (r *ReservationRepo) InsertConfirmedTx(ctx context.Context, tx *sql.Tx, userID, sessionID string, now time.Time) (*model.Reservation, error) {
	now = now.UTC().Truncate(time.Millisecond)
	res := &model.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Status:    model.ReservationConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	const q = `INSERT INTO reservations (id, user_id, session_id, status, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(q),
		res.ID, res.UserID, res.SessionID, string(res.Status), database.ToMillis(now), database.ToMillis(now))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return res, nil
}

// IncrementReservedTx takes one seat with a single conditional statement.
// Zero rows affected means the session is full and ErrCapacityExceeded is
// returned; the caller must roll back.
func (r *ReservationRepo) IncrementReservedTx(ctx context.Context, tx *sql.Tx, sessionID string, now time.Time) error {
	const q = `UPDATE class_sessions
               SET reserved_count = reserved_count + 1, updated_at = ?
               WHERE id = ? AND reserved_count < capacity`
	res, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(q), database.ToMillis(now), sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCapacityExceeded
	}
	return nil
}

// DecrementReservedTx releases n seats.  The guard keeps the counter from
// going negative; hitting it returns ErrCounterDrift.
func (r *ReservationRepo) DecrementReservedTx(ctx context.Context, tx *sql.Tx, sessionID string, n int64, now time.Time) error {
	if n <= 0 {
		return nil
	}
	const q = `UPDATE class_sessions
               SET reserved_count = reserved_count - ?, updated_at = ?
               WHERE id = ? AND reserved_count >= ?`
	res, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(q), n, database.ToMillis(now), sessionID, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCounterDrift
	}
	return nil
}

// CancelTx flips a single CONFIRMED reservation to CANCELED.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, res *model.Reservation, reason *string, now time.Time) error {
	now = now.UTC().Truncate(time.Millisecond)
	var why sql.NullString
	if reason != nil {
		why = sql.NullString{String: *reason, Valid: true}
	}
	const q = `UPDATE reservations
               SET status = ?, canceled_at = ?, cancel_reason = ?, updated_at = ?
               WHERE id = ? AND status = ?`
	out, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(q),
		string(model.ReservationCanceled), database.ToMillis(now), why, database.ToMillis(now),
		res.ID, string(model.ReservationConfirmed))
	if err != nil {
		return err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	res.Status = model.ReservationCanceled
	res.CanceledAt = &now
	res.CancelReason = reason
	res.UpdatedAt = now
	return nil
}

// CancelAllBySessionTx flips every CONFIRMED reservation of the session to
// CANCELED and returns how many rows changed.
func (r *ReservationRepo) CancelAllBySessionTx(ctx context.Context, tx *sql.Tx, sessionID string, reason *string, now time.Time) (int64, error) {
	var why sql.NullString
	if reason != nil {
		why = sql.NullString{String: *reason, Valid: true}
	}
	const q = `UPDATE reservations
               SET status = ?, canceled_at = ?, cancel_reason = ?, updated_at = ?
               WHERE session_id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(q),
		string(model.ReservationCanceled), database.ToMillis(now), why, database.ToMillis(now),
		sessionID, string(model.ReservationConfirmed))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TouchAllBySessionTx bumps updated_at on every reservation of the session,
// whatever its status.
func (r *ReservationRepo) TouchAllBySessionTx(ctx context.Context, tx *sql.Tx, sessionID string, now time.Time) (int64, error) {
	const q = `UPDATE reservations SET updated_at = ? WHERE session_id = ?`
	res, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(q), database.ToMillis(now), sessionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UserIDsBySession lists the distinct users holding a reservation for the
// session.  With confirmedOnly only CONFIRMED holders are returned.
func (r *ReservationRepo) UserIDsBySession(ctx context.Context, sessionID string, confirmedOnly bool) ([]string, error) {
	q := `SELECT DISTINCT user_id FROM reservations WHERE session_id = ?`
	args := []any{sessionID}
	if confirmedOnly {
		q += ` AND status = ?`
		args = append(args, string(model.ReservationConfirmed))
	}
	q += ` ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountConfirmed counts CONFIRMED reservations of a session.  It is the
// source of truth that reserved_count caches.
func (r *ReservationRepo) CountConfirmed(ctx context.Context, sessionID string) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE session_id = ? AND status = ?`
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(q), sessionID, string(model.ReservationConfirmed)).Scan(&n)
	return n, err
}

const reservationDetailQuery = `SELECT r.id, r.user_id, r.session_id, r.status, r.canceled_at, r.cancel_reason,
       r.created_at, r.updated_at, c.title, s.starts_at, s.status
  FROM reservations r
  JOIN class_sessions s ON s.id = r.session_id
  JOIN classes c ON c.id = s.class_id`

// ListByUser returns the user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID string) ([]model.ReservationDetail, error) {
	q := reservationDetailQuery + ` WHERE r.user_id = ? ORDER BY r.created_at DESC, r.id`
	return r.listDetails(ctx, q, userID)
}

// ListBySession returns every reservation of a session, oldest first.
func (r *ReservationRepo) ListBySession(ctx context.Context, sessionID string) ([]model.ReservationDetail, error) {
	q := reservationDetailQuery + ` WHERE r.session_id = ? ORDER BY r.created_at ASC, r.id`
	return r.listDetails(ctx, q, sessionID)
}

func (r *ReservationRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationDetail{}
	for rows.Next() {
		var (
			d        model.ReservationDetail
			startsAt int64
			status   string
		)
		res, err := scanReservation(rows, &d.ClassTitle, &startsAt, &status)
		if err != nil {
			return nil, err
		}
		d.Reservation = *res
		d.SessionStartsAt = database.FromMillis(startsAt)
		d.SessionStatus = model.SessionStatus(status)
		out = append(out, d)
	}
	return out, rows.Err()
}
