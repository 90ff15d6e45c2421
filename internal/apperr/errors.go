// Package apperr defines the typed failures surfaced by the booking core.
// Every failure carries a stable Code that the transport layer maps to a
// status and a user-facing message; storage details never leak through it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotFound               Code = "NOT_FOUND"
	CodeInvalidArgument        Code = "INVALID_ARGUMENT"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeDuplicateReservation   Code = "DUPLICATE_RESERVATION"
	CodeCapacityExceeded       Code = "CAPACITY_EXCEEDED"
	CodeSessionNotReservable   Code = "SESSION_NOT_RESERVABLE"
	CodeSessionInPast          Code = "SESSION_IN_PAST"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeUnauthenticated        Code = "UNAUTHENTICATED"
	CodeRateLimited            Code = "RATE_LIMITED"
	CodeUnavailable            Code = "UNAVAILABLE"
	CodeInternal               Code = "INTERNAL"
)

// Error is a classified failure.  Field is set for field-level
// InvalidArgument failures.
type Error struct {
	Code    Code
	Message string
	Field   string
	cause   error
}

// Error includes the cause, if any.  Use Message for anything shown to
// clients.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same code, so callers can compare
// against the package sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound               = &Error{Code: CodeNotFound, Message: "resource not found"}
	ErrInvalidArgument        = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrInvalidStateTransition = &Error{Code: CodeInvalidStateTransition, Message: "operation not allowed in current state"}
	ErrDuplicateReservation   = &Error{Code: CodeDuplicateReservation, Message: "you already have a reservation for this session"}
	ErrCapacityExceeded       = &Error{Code: CodeCapacityExceeded, Message: "session is full"}
	ErrSessionNotReservable   = &Error{Code: CodeSessionNotReservable, Message: "session is not open for reservations"}
	ErrSessionInPast          = &Error{Code: CodeSessionInPast, Message: "session has already started"}
	ErrUnauthorized           = &Error{Code: CodeUnauthorized, Message: "not allowed to modify this resource"}
	ErrUnavailable            = &Error{Code: CodeUnavailable, Message: "service temporarily unavailable, try again"}
	ErrInternal               = &Error{Code: CodeInternal, Message: "internal error"}
)

// New returns an error of the given code with a custom message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NotFound reports a missing aggregate by name, e.g. NotFound("session").
func NotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

// InvalidField reports a field-level validation failure.
func InvalidField(field, msg string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: msg, Field: field}
}

// InvalidTransition reports an operation that is illegal in the given state.
func InvalidTransition(op, state string) *Error {
	return &Error{Code: CodeInvalidStateTransition, Message: fmt.Sprintf("cannot %s a session in state %s", op, state)}
}

// Unavailable wraps a transient storage failure.  The cause is kept for
// logging but never rendered.
func Unavailable(cause error) *Error {
	return &Error{Code: CodeUnavailable, Message: ErrUnavailable.Message, cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: ErrInternal.Message, cause: cause}
}

// From classifies err.  Unclassified errors become Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// CodeOf returns the code of err, or CodeInternal when unclassified.
func CodeOf(err error) Code {
	return From(err).Code
}

// HTTPStatus maps codes to HTTP statuses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeInvalidStateTransition, CodeDuplicateReservation, CodeCapacityExceeded,
		CodeSessionNotReservable, CodeSessionInPast:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
