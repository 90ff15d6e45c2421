package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-session-booking/internal/apperr"
)

// reject writes the standard error envelope and stops the chain.  Handlers
// render through the same shape so clients parse one format.
func reject(c echo.Context, status int, code apperr.Code, msg string) error {
	return c.JSON(status, echo.Map{
		"error": echo.Map{"code": code, "message": msg},
	})
}
