package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/model"
)

// insertBatchSize keeps multi-row inserts well below the bind parameter
// limits of every dialect.
const insertBatchSize = 200

var notificationInsertColumns = []string{"id", "user_id", "session_id", "type", "title", "body", "is_read", "created_at"}

// NotificationRepo manages persistence for in-app notifications.  Rows are
// never removed: deletion sets the deleted_at tombstone.
type NotificationRepo struct {
	db *database.DB
}

// NewNotificationRepo constructs a NotificationRepo with the given DB handle.
func NewNotificationRepo(db *database.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, user_id, session_id, type, title, body, is_read, created_at, read_at, deleted_at`

func scanNotification(row rowScanner) (*model.Notification, error) {
	var (
		n                 model.Notification
		sessionID         sql.NullString
		typ               string
		created           int64
		readAt, deletedAt sql.NullInt64
	)
	if err := row.Scan(&n.ID, &n.UserID, &sessionID, &typ, &n.Title, &n.Body, &n.IsRead,
		&created, &readAt, &deletedAt); err != nil {
		return nil, err
	}
	if sessionID.Valid {
		n.SessionID = &sessionID.String
	}
	n.Type = model.NotificationType(typ)
	n.CreatedAt = database.FromMillis(created)
	n.ReadAt = database.FromNullMillis(readAt)
	n.DeletedAt = database.FromNullMillis(deletedAt)
	return &n, nil
}

// UserIDsWithType returns the users that already hold a notification of typ
// for the session, soft-deleted rows included.
func (r *NotificationRepo) UserIDsWithType(ctx context.Context, sessionID string, typ model.NotificationType) ([]string, error) {
	const q = `SELECT user_id FROM notifications WHERE session_id = ? AND type = ?`
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), sessionID, string(typ))
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

// InsertIgnore batch-inserts notifications, skipping any whose
// (user, session, type) already exists.  It returns the subset that was
// actually written.
func (r *NotificationRepo) InsertIgnore(ctx context.Context, items []model.Notification) ([]model.Notification, error) {
	if len(items) == 0 {
		return nil, nil
	}
	for start := 0; start < len(items); start += insertBatchSize {
		end := min(start+insertBatchSize, len(items))
		batch := items[start:end]
		q := r.db.Dialect.InsertIgnore("notifications", notificationInsertColumns, len(batch))
		args := make([]any, 0, len(batch)*len(notificationInsertColumns))
		for _, n := range batch {
			var sessionID sql.NullString
			if n.SessionID != nil {
				sessionID = sql.NullString{String: *n.SessionID, Valid: true}
			}
			args = append(args, n.ID, n.UserID, sessionID, string(n.Type), n.Title, n.Body, n.IsRead,
				database.ToMillis(n.CreatedAt))
		}
		if _, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q), args...); err != nil {
			return nil, err
		}
	}

	// ids are fresh UUIDs, so the rows that exist under them are exactly
	// the rows this call inserted
	written := make(map[string]struct{}, len(items))
	for start := 0; start < len(items); start += insertBatchSize {
		end := min(start+insertBatchSize, len(items))
		args := make([]any, 0, end-start)
		for _, n := range items[start:end] {
			args = append(args, n.ID)
		}
		q := `SELECT id FROM notifications WHERE id IN ` + database.In(len(args))
		rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			written[id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	out := make([]model.Notification, 0, len(written))
	for _, n := range items {
		if _, ok := written[n.ID]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// GetByID returns a notification including soft-deleted ones.
func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`
	n, err := scanNotification(r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(q), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

// ListUnread returns the user's unread, non-deleted notifications, newest first.
func (r *NotificationRepo) ListUnread(ctx context.Context, userID string) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications
          WHERE user_id = ? AND is_read = ? AND deleted_at IS NULL
          ORDER BY created_at DESC, id`
	return r.list(ctx, q, userID, false)
}

// ListAll returns up to limit non-deleted notifications, newest first.
func (r *NotificationRepo) ListAll(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications
          WHERE user_id = ? AND deleted_at IS NULL
          ORDER BY created_at DESC, id
          LIMIT ?`
	return r.list(ctx, q, userID, limit)
}

// ListBySession returns all notifications of a session, deleted ones
// included.
func (r *NotificationRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE session_id = ? ORDER BY created_at, id`
	return r.list(ctx, q, sessionID)
}

func (r *NotificationRepo) list(ctx context.Context, q string, args ...any) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// SetRead flips the read flag of a live notification.  It reports whether
// the row changed; false means the flag already had the requested value.
func (r *NotificationRepo) SetRead(ctx context.Context, id string, read bool, now time.Time) (bool, error) {
	var readAt sql.NullInt64
	if read {
		readAt = sql.NullInt64{Int64: database.ToMillis(now), Valid: true}
	}
	const q = `UPDATE notifications SET is_read = ?, read_at = ?
               WHERE id = ? AND is_read = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q), read, readAt, id, !read)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkAllRead marks every unread live notification of the user as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error) {
	const q = `UPDATE notifications SET is_read = ?, read_at = ?
               WHERE user_id = ? AND is_read = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q), true, database.ToMillis(now), userID, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SoftDelete sets the tombstone.  Deleting an already deleted row is a no-op.
func (r *NotificationRepo) SoftDelete(ctx context.Context, id string, now time.Time) error {
	const q = `UPDATE notifications SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q), database.ToMillis(now), id)
	return err
}
