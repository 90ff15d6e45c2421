package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-session-booking/internal/service"
)

// PendingProcessor runs the reminder and pending-cancellation scans.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) (service.PendingResult, error)
}

// NotificationHandler serves the member inbox and the admin scan trigger.
type NotificationHandler struct {
	inbox   *service.Inbox
	pending PendingProcessor
}

func NewNotificationHandler(inbox *service.Inbox, pending PendingProcessor) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, pending: pending}
}

// ListUnread handles GET /v1/notifications/unread.
func (h *NotificationHandler) ListUnread(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	items, err := h.inbox.ListUnread(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListAll handles GET /v1/notifications?limit=.
func (h *NotificationHandler) ListAll(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	items, err := h.inbox.ListAll(c.Request().Context(), userID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MarkRead handles PATCH /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	return h.setRead(c, true)
}

// MarkUnread handles PATCH /v1/notifications/:id/unread.
func (h *NotificationHandler) MarkUnread(c echo.Context) error {
	return h.setRead(c, false)
}

func (h *NotificationHandler) setRead(c echo.Context, read bool) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	mark := h.inbox.MarkUnread
	if read {
		mark = h.inbox.MarkRead
	}
	changed, err := mark(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "is_read": read, "changed": changed})
}

// MarkAllRead handles PATCH /v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	n, err := h.inbox.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Delete handles DELETE /v1/notifications/:id.
func (h *NotificationHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	if err := h.inbox.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ProcessPending handles POST /v1/admin/notifications/process-pending.  It
// bypasses the poller throttle.
func (h *NotificationHandler) ProcessPending(c echo.Context) error {
	res, err := h.pending.ProcessPending(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
