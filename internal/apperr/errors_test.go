package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("reserve: %w", New(CodeCapacityExceeded, "no seats left"))
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.False(t, errors.Is(err, ErrDuplicateReservation))
}

func TestFromClassifiesUnknownAsInternal(t *testing.T) {
	t.Parallel()

	e := From(errors.New("connection reset"))
	require.NotNil(t, e)
	assert.Equal(t, CodeInternal, e.Code)
	assert.Equal(t, "internal error", e.Message)
	assert.Nil(t, From(nil))
}

func TestUnavailableKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("deadlock")
	e := Unavailable(cause)
	assert.ErrorIs(t, e, cause)
	assert.NotContains(t, e.Message, "deadlock")
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := map[Code]int{
		CodeNotFound:               http.StatusNotFound,
		CodeInvalidArgument:        http.StatusBadRequest,
		CodeInvalidStateTransition: http.StatusConflict,
		CodeCapacityExceeded:       http.StatusConflict,
		CodeUnauthorized:           http.StatusForbidden,
		CodeUnauthenticated:        http.StatusUnauthorized,
		CodeUnavailable:            http.StatusServiceUnavailable,
		CodeInternal:               http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}
