package model

import "time"

// Class is the catalogue entry that sessions are scheduled from.  Its
// defaults are applied when a session is scheduled without an explicit
// duration or capacity.
//
// Fields:
//
//	ID                 – primary key (UUID).
//	Title              – display name used in notification copy.
//	Description        – free text.
//	Discipline         – e.g. yoga, pilates.
//	InstructorName     – who leads the class.
//	LocationName       – where it takes place.
//	DefaultDurationMin – default session length in minutes.
//	DefaultCapacity    – default number of seats.
type Class struct {
	ID                 string    `json:"id"`                   // classes.id
	Title              string    `json:"title"`                // classes.title
	Description        string    `json:"description"`          // classes.description
	Discipline         string    `json:"discipline"`           // classes.discipline
	InstructorName     string    `json:"instructor_name"`      // classes.instructor_name
	LocationName       string    `json:"location_name"`        // classes.location_name
	DefaultDurationMin int       `json:"default_duration_min"` // classes.default_duration_min
	DefaultCapacity    int       `json:"default_capacity"`     // classes.default_capacity
	CreatedAt          time.Time `json:"created_at"`           // classes.created_at
	UpdatedAt          time.Time `json:"updated_at"`           // classes.updated_at
}

const (
	DefaultClassDurationMin = 60
	DefaultClassCapacity    = 20
)
