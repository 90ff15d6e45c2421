package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/model"
	"github.com/iliyamo/class-session-booking/internal/service"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SessionHandler serves session reads for members and the lifecycle
// operations for admins.
type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type scheduleRequest struct {
	ClassID     string `json:"class_id" validate:"required"`
	StartsAt    string `json:"starts_at" validate:"required"`
	DurationMin *int   `json:"duration_min"`
	Capacity    *int   `json:"capacity"`
}

// updateRequest is a partial update; absent fields are left alone.
type updateRequest struct {
	StartsAt    *string `json:"starts_at"`
	DurationMin *int    `json:"duration_min"`
	Capacity    *int    `json:"capacity"`
}

type cancelRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// Schedule handles POST /v1/admin/sessions.
func (h *SessionHandler) Schedule(c echo.Context) error {
	var req scheduleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.svc.Schedule(c.Request().Context(), service.ScheduleInput{
		ClassID:     req.ClassID,
		StartsAt:    req.StartsAt,
		DurationMin: req.DurationMin,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

// Update handles PATCH /v1/admin/sessions/:id.
func (h *SessionHandler) Update(c echo.Context) error {
	var req updateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	patch := model.SessionPatch{DurationMin: req.DurationMin, Capacity: req.Capacity}
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return apperr.InvalidField("starts_at", "starts_at must be an RFC 3339 timestamp")
		}
		patch.StartsAt = &t
	}
	s, err := h.svc.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Cancel handles POST /v1/admin/sessions/:id/cancel.  The body is optional.
func (h *SessionHandler) Cancel(c echo.Context) error {
	var req cancelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.svc.Cancel(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Start handles POST /v1/admin/sessions/:id/start.
func (h *SessionHandler) Start(c echo.Context) error {
	s, err := h.svc.Start(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Complete handles POST /v1/admin/sessions/:id/complete.
func (h *SessionHandler) Complete(c echo.Context) error {
	s, err := h.svc.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c echo.Context) error {
	s, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// List handles GET /v1/sessions?class_id=&status=&day=&page=&limit=.
func (h *SessionHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), service.ListInput{
		ClassID: c.QueryParam("class_id"),
		Status:  c.QueryParam("status"),
		Day:     c.QueryParam("day"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Roster handles GET /v1/admin/sessions/:id/roster.xlsx.
func (h *SessionHandler) Roster(c echo.Context) error {
	id := c.Param("id")
	b, err := h.svc.Roster(c.Request().Context(), id)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="roster-`+id+`.xlsx"`)
	return c.Stream(http.StatusOK, mimeXLSX, bytes.NewReader(b))
}
