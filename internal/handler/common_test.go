package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/middleware"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   apperr.Code
		msg    string
	}{
		{"app error", apperr.ErrCapacityExceeded, http.StatusConflict, apperr.CodeCapacityExceeded, "session is full"},
		{"wrapped app error", errors.Join(errors.New("ctx"), apperr.NotFound("session")), http.StatusNotFound, apperr.CodeNotFound, "session not found"},
		{"raw error is hidden", errors.New("dial tcp: refused"), http.StatusInternalServerError, apperr.CodeInternal, "internal error"},
		{"unavailable", apperr.Unavailable(errors.New("deadlock")), http.StatusServiceUnavailable, apperr.CodeUnavailable, apperr.ErrUnavailable.Message},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, apperr.CodeNotFound, "Not Found"},
		{"echo method", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, apperr.CodeInvalidArgument, "Method Not Allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, tc.msg, body.Error.Message)
		})
	}
}

func TestErrorHandlerWritesEnvelope(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	ErrorHandler(logger.NewDiscard())(apperr.InvalidField("capacity", "capacity must be at least 1"), c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"INVALID_ARGUMENT","message":"capacity must be at least 1","field":"capacity"}}`, rec.Body.String())
}

func TestValidatorUsesJSONNames(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&scheduleRequest{StartsAt: "2026-03-10T10:00:00Z"})
	require.Error(t, err)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "class_id", ae.Field)
	assert.Equal(t, "class_id is required", ae.Message)

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	reason := string(long)
	err = v.Validate(&cancelRequest{Reason: &reason})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "reason", ae.Field)

	assert.NoError(t, v.Validate(&cancelRequest{}))
}

func TestGetUserID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := getUserID(c)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))

	c.Set(middleware.ContextUserID, "u1")
	id, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}
