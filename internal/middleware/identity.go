package middleware

// identity.go holds the context keys written by JWTAuth and the helpers that
// read them back.  Handlers and the rate limiter use these instead of poking
// at c.Get directly.

import (
	"github.com/labstack/echo/v4"
)

// Context keys populated by JWTAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Roles carried in the "role" claim.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// UserID returns the authenticated caller's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if v, ok := c.Get(ContextUserID).(string); ok {
		return v
	}
	return ""
}

// Role returns the authenticated caller's role, or "".
func Role(c echo.Context) string {
	if v, ok := c.Get(ContextRole).(string); ok {
		return v
	}
	return ""
}

// rateSubject identifies the caller for rate limiting.  Anonymous callers
// share the "anon" bucket of their IP.
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
