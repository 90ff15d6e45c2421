// Package handler exposes the booking core over HTTP.  Handlers bind and
// validate requests, read the caller from the JWT context and return
// errors to ErrorHandler, which renders every failure in one envelope.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/middleware"
)

// errorBody is the JSON shape of every failure response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
}

// ErrorHandler renders apperr failures and echo's own HTTP errors (unknown
// routes, bad bodies) as {"error":{"code","message","field"}}.  Causes are
// logged, never sent.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	log = log.With(slog.String("op", "handler.ErrorHandler"))

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				slog.String("path", c.Request().URL.Path),
				slog.String("code", string(body.Error.Code)),
				logger.Err(err),
			)
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn("write error response", logger.Err(werr))
		}
	}
}

func classify(err error) (int, errorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := apperr.CodeInvalidArgument
		switch {
		case he.Code == http.StatusNotFound:
			code = apperr.CodeNotFound
		case he.Code == http.StatusUnauthorized:
			code = apperr.CodeUnauthenticated
		case he.Code == http.StatusForbidden:
			code = apperr.CodeUnauthorized
		case he.Code == http.StatusTooManyRequests:
			code = apperr.CodeRateLimited
		case he.Code >= http.StatusInternalServerError:
			code = apperr.CodeInternal
		}
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			msg = s
		}
		return he.Code, errorBody{Error: errorDetail{Code: code, Message: msg}}
	}
	ae := apperr.From(err)
	return ae.Code.HTTPStatus(), errorBody{Error: errorDetail{Code: ae.Code, Message: ae.Message, Field: ae.Field}}
}

// Validator adapts go-playground/validator to echo.  Failures come back as
// field-level INVALID_ARGUMENT errors named after the json tag.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (v *Validator) Validate(i any) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.New(apperr.CodeInvalidArgument, err.Error())
	}
	fe := verrs[0]
	return apperr.InvalidField(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.New(apperr.CodeInvalidArgument, "invalid request body")
	}
	return c.Validate(dst)
}

// getUserID returns the caller's id stored by middleware.JWTAuth.
func getUserID(c echo.Context) (string, error) {
	id := middleware.UserID(c)
	if id == "" {
		return "", apperr.New(apperr.CodeUnauthenticated, "authentication required")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidField(name, name+" must be an integer")
	}
	return n, nil
}
