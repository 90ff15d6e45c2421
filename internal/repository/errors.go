// Package repository contains the data access logic for classes, sessions,
// reservations and notifications.  Repositories speak plain database/sql
// against the dialect chosen at startup; methods with a Tx suffix take part
// in a caller-owned transaction so several writes can commit atomically.
//
// The sentinel values below let the service layer distinguish failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrCapacityExceeded is returned by the seat increment when the session has
// no free seat left.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrDuplicate is returned when a unique constraint rejects a write, e.g. a
// second CONFIRMED reservation for the same user and session.
var ErrDuplicate = errors.New("duplicate")

// ErrCounterDrift is returned when a decrement would take reserved_count
// below zero, which means the cached counter no longer matches the
// reservation rows.
var ErrCounterDrift = errors.New("reserved count drift")

type rowScanner interface {
	Scan(dest ...any) error
}
