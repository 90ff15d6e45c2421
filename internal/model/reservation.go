package model

import "time"

// ReservationStatus is the state of a single seat claim.
type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCanceled  ReservationStatus = "CANCELED"
)

// Reservation records a user's claim on one seat of a session.  At most one
// CONFIRMED reservation exists per (user, session); CanceledAt is set iff
// the status is CANCELED.
type Reservation struct {
	ID           string            `json:"id"`                      // reservations.id
	UserID       string            `json:"user_id"`                 // reservations.user_id
	SessionID    string            `json:"session_id"`              // reservations.session_id
	Status       ReservationStatus `json:"status"`                  // reservations.status
	CanceledAt   *time.Time        `json:"canceled_at,omitempty"`   // reservations.canceled_at (nullable)
	CancelReason *string           `json:"cancel_reason,omitempty"` // reservations.cancel_reason (nullable)
	CreatedAt    time.Time         `json:"created_at"`              // reservations.created_at
	UpdatedAt    time.Time         `json:"updated_at"`              // reservations.updated_at
}

// ReservationDetail is a reservation joined with its session and class for
// listing a member's bookings and building rosters.
type ReservationDetail struct {
	Reservation
	ClassTitle      string        `json:"class_title"`
	SessionStartsAt time.Time     `json:"session_starts_at"`
	SessionStatus   SessionStatus `json:"session_status"`
}
