package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-session-booking/internal/service"
)

// ReservationHandler books and releases seats for the authenticated member.
type ReservationHandler struct {
	svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// Create handles POST /v1/sessions/:id/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Create(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// CancelMine handles DELETE /v1/sessions/:id/reservations/me.
func (h *ReservationHandler) CancelMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.CancelMine(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ListMine handles GET /v1/me/reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListMine(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
