package model

import "time"

// SessionStatus is the lifecycle state of a class session.
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "SCHEDULED"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionCanceled   SessionStatus = "CANCELED"
)

// MinSessionDurationMin is the shortest session that can be scheduled.
const MinSessionDurationMin = 10

// Session is a single scheduled occurrence of a class.
//
// Fields:
//
//	ID            – primary key (UUID).
//	ClassID       – class this session belongs to.
//	ClassTitle    – joined from classes, read-only.
//	StartsAt      – start time (UTC).
//	DurationMin   – length in minutes, at least MinSessionDurationMin.
//	Capacity      – number of seats, at least 1.
//	ReservedCount – cached count of CONFIRMED reservations; written only by
//	                the capacity ledger.
//	Status        – lifecycle state.
//	CancelReason  – set when the session is canceled.
type Session struct {
	ID            string        `json:"id"`                      // class_sessions.id
	ClassID       string        `json:"class_id"`                // class_sessions.class_id
	ClassTitle    string        `json:"class_title,omitempty"`   // classes.title
	StartsAt      time.Time     `json:"starts_at"`               // class_sessions.starts_at
	DurationMin   int           `json:"duration_min"`            // class_sessions.duration_min
	Capacity      int           `json:"capacity"`                // class_sessions.capacity
	ReservedCount int           `json:"reserved_count"`          // class_sessions.reserved_count
	Status        SessionStatus `json:"status"`                  // class_sessions.status
	CancelReason  *string       `json:"cancel_reason,omitempty"` // class_sessions.cancel_reason (nullable)
	CreatedAt     time.Time     `json:"created_at"`              // class_sessions.created_at
	UpdatedAt     time.Time     `json:"updated_at"`              // class_sessions.updated_at
}

// EndsAt is the derived end time.
func (s *Session) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMin) * time.Minute)
}

// SeatsLeft is the number of seats still available.
func (s *Session) SeatsLeft() int {
	if left := s.Capacity - s.ReservedCount; left > 0 {
		return left
	}
	return 0
}

// SessionPatch carries the optional fields of an update.  Nil means
// "leave unchanged".
type SessionPatch struct {
	StartsAt    *time.Time
	DurationMin *int
	Capacity    *int
}

// SessionFilter narrows ListSessions.
type SessionFilter struct {
	ClassID string
	Status  SessionStatus
	From    *time.Time // inclusive
	To      *time.Time // exclusive
	Limit   int
	Offset  int
}
