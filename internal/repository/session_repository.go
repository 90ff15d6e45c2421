package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/model"
)

// SessionRepo manages persistence for class sessions.  It never writes
// reserved_count; that column belongs to the capacity ledger in
// ReservationRepo.
type SessionRepo struct {
	db *database.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *database.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `s.id, s.class_id, c.title, s.starts_at, s.duration_min, s.capacity,
       s.reserved_count, s.status, s.cancel_reason, s.created_at, s.updated_at`

const sessionFrom = ` FROM class_sessions s JOIN classes c ON c.id = s.class_id`

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		s                          model.Session
		startsAt, created, updated int64
		status                     string
		reason                     sql.NullString
	)
	if err := row.Scan(&s.ID, &s.ClassID, &s.ClassTitle, &startsAt, &s.DurationMin, &s.Capacity,
		&s.ReservedCount, &status, &reason, &created, &updated); err != nil {
		return nil, err
	}
	s.StartsAt = database.FromMillis(startsAt)
	s.Status = model.SessionStatus(status)
	if reason.Valid {
		s.CancelReason = &reason.String
	}
	s.CreatedAt = database.FromMillis(created)
	s.UpdatedAt = database.FromMillis(updated)
	return &s, nil
}

// Create inserts a SCHEDULED session with a zero reserved count.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session, now time.Time) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Status = model.SessionScheduled
	s.ReservedCount = 0
	s.StartsAt = s.StartsAt.UTC().Truncate(time.Millisecond)
	s.CreatedAt = now.UTC().Truncate(time.Millisecond)
	s.UpdatedAt = s.CreatedAt

	const q = `INSERT INTO class_sessions (id, class_id, starts_at, duration_min, capacity, reserved_count,
                 status, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q),
		s.ID, s.ClassID, database.ToMillis(s.StartsAt), s.DurationMin, s.Capacity,
		string(s.Status), database.ToMillis(s.CreatedAt), database.ToMillis(s.UpdatedAt))
	return err
}

// GetByID retrieves a session joined with its class title.  It returns
// ErrNotFound when missing.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	q := `SELECT ` + sessionColumns + sessionFrom + ` WHERE s.id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(q), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetForUpdateTx loads a session inside tx and locks its row until the
// transaction ends.  Concurrent writers to the same session queue up behind
// the lock.
func (r *SessionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Session, error) {
	q := `SELECT s.id, s.class_id, '', s.starts_at, s.duration_min, s.capacity,
       s.reserved_count, s.status, s.cancel_reason, s.created_at, s.updated_at
       FROM class_sessions s WHERE s.id = ?` + r.db.Dialect.ForUpdate()
	s, err := scanSession(tx.QueryRowContext(ctx, r.db.Dialect.Rebind(q), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	const tq = `SELECT title FROM classes WHERE id = ?`
	if err := tx.QueryRowContext(ctx, r.db.Dialect.Rebind(tq), s.ClassID).Scan(&s.ClassTitle); err != nil &&
		!errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return s, nil
}

// UpdateTx persists the mutable fields of s (schedule, capacity, status and
// cancel reason) and stamps updated_at.
func (r *SessionRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s *model.Session, now time.Time) error {
	s.StartsAt = s.StartsAt.UTC().Truncate(time.Millisecond)
	s.UpdatedAt = now.UTC().Truncate(time.Millisecond)
	var reason sql.NullString
	if s.CancelReason != nil {
		reason = sql.NullString{String: *s.CancelReason, Valid: true}
	}
	const q = `UPDATE class_sessions
               SET starts_at = ?, duration_min = ?, capacity = ?, status = ?, cancel_reason = ?, updated_at = ?
               WHERE id = ?`
	res, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(q),
		database.ToMillis(s.StartsAt), s.DurationMin, s.Capacity, string(s.Status), reason,
		database.ToMillis(s.UpdatedAt), s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns sessions matching f ordered by start time.
func (r *SessionRepo) List(ctx context.Context, f model.SessionFilter) ([]model.Session, error) {
	var (
		where []string
		args  []any
	)
	if f.ClassID != "" {
		where = append(where, "s.class_id = ?")
		args = append(args, f.ClassID)
	}
	if f.Status != "" {
		where = append(where, "s.status = ?")
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		where = append(where, "s.starts_at >= ?")
		args = append(args, database.ToMillis(*f.From))
	}
	if f.To != nil {
		where = append(where, "s.starts_at < ?")
		args = append(args, database.ToMillis(*f.To))
	}
	q := `SELECT ` + sessionColumns + sessionFrom
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY s.starts_at ASC, s.id ASC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	return r.query(ctx, q, args...)
}

// ListScheduledStartingBetween returns SCHEDULED sessions whose start lies
// strictly inside (from, to).
func (r *SessionRepo) ListScheduledStartingBetween(ctx context.Context, from, to time.Time) ([]model.Session, error) {
	q := `SELECT ` + sessionColumns + sessionFrom + `
          WHERE s.status = ? AND s.starts_at > ? AND s.starts_at < ?
          ORDER BY s.starts_at ASC`
	return r.query(ctx, q, string(model.SessionScheduled), database.ToMillis(from), database.ToMillis(to))
}

// ListByStatus returns every session in status.
func (r *SessionRepo) ListByStatus(ctx context.Context, status model.SessionStatus) ([]model.Session, error) {
	q := `SELECT ` + sessionColumns + sessionFrom + ` WHERE s.status = ? ORDER BY s.starts_at ASC`
	return r.query(ctx, q, string(status))
}

func (r *SessionRepo) query(ctx context.Context, q string, args ...any) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
