package model

import "time"

// NotificationType identifies the event a notification was generated for.
type NotificationType string

const (
	NotificationSessionCanceled    NotificationType = "SESSION_CANCELED"
	NotificationSessionRescheduled NotificationType = "SESSION_RESCHEDULED"
	NotificationSessionReminder    NotificationType = "SESSION_REMINDER"
)

// Notification is an in-app message for one user.  DeletedAt is a tombstone
// that is kept forever so the (user, session, type) triple can never be
// generated twice.
type Notification struct {
	ID        string           `json:"id"`                   // notifications.id
	UserID    string           `json:"user_id"`              // notifications.user_id
	SessionID *string          `json:"session_id,omitempty"` // notifications.session_id (nullable)
	Type      NotificationType `json:"type"`                 // notifications.type
	Title     string           `json:"title"`                // notifications.title
	Body      string           `json:"body"`                 // notifications.body
	IsRead    bool             `json:"is_read"`              // notifications.is_read
	CreatedAt time.Time        `json:"created_at"`           // notifications.created_at
	ReadAt    *time.Time       `json:"read_at,omitempty"`    // notifications.read_at (nullable)
	DeletedAt *time.Time       `json:"-"`                    // notifications.deleted_at (nullable)
}
