// Package queue publishes notification events to RabbitMQ and provides the
// consumer that hands them to the outbound delivery log.
package queue

// NotificationCreatedEvent is published once for every notification the
// engine writes.  It carries everything an email or push worker needs so it
// does not have to query the primary database.
type NotificationCreatedEvent struct {
	NotificationID  string `json:"notification_id"`
	UserID          string `json:"user_id"`
	SessionID       string `json:"session_id,omitempty"`
	Type            string `json:"type"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	SessionStartsAt string `json:"session_starts_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}
