package router // package router wires HTTP routes to handlers and middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-session-booking/internal/handler"
	"github.com/iliyamo/class-session-booking/internal/middleware"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Health        *handler.HealthHandler
	Classes       *handler.ClassHandler
	Sessions      *handler.SessionHandler
	Reservations  *handler.ReservationHandler
	Notifications *handler.NotificationHandler
}

// Middleware carries the optional Redis-backed middlewares.  Nil entries are
// skipped.
type Middleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes mounts the health checks at the root and the API under /v1.
// Every /v1 route requires a valid access token; /v1/admin additionally
// requires the ADMIN role.
func RegisterRoutes(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	// Health checks stay outside auth and rate limiting.
	e.GET("/healthz", h.Health.Health)
	e.GET("/readyz", h.Health.Ready)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleMember))
	if mw.RateLimit != nil {
		v1.Use(mw.RateLimit)
	}

	// Catalogue reads are identical for every caller and cached.
	classGet := []echo.MiddlewareFunc{}
	if mw.Cache != nil {
		classGet = append(classGet, mw.Cache)
	}
	v1.GET("/classes", h.Classes.List)
	v1.GET("/classes/:id", h.Classes.Get, classGet...)

	v1.GET("/sessions", h.Sessions.List)
	v1.GET("/sessions/:id", h.Sessions.Get)
	v1.POST("/sessions/:id/reservations", h.Reservations.Create)
	v1.DELETE("/sessions/:id/reservations/me", h.Reservations.CancelMine)
	v1.GET("/me/reservations", h.Reservations.ListMine)

	v1.GET("/notifications", h.Notifications.ListAll)
	v1.GET("/notifications/unread", h.Notifications.ListUnread)
	v1.PATCH("/notifications/read-all", h.Notifications.MarkAllRead)
	v1.PATCH("/notifications/:id/read", h.Notifications.MarkRead)
	v1.PATCH("/notifications/:id/unread", h.Notifications.MarkUnread)
	v1.DELETE("/notifications/:id", h.Notifications.Delete)

	admin := v1.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("/classes", h.Classes.Create)
	admin.PATCH("/classes/:id", h.Classes.Update)
	admin.POST("/sessions", h.Sessions.Schedule)
	admin.PATCH("/sessions/:id", h.Sessions.Update)
	admin.POST("/sessions/:id/cancel", h.Sessions.Cancel)
	admin.POST("/sessions/:id/start", h.Sessions.Start)
	admin.POST("/sessions/:id/complete", h.Sessions.Complete)
	admin.GET("/sessions/:id/roster.xlsx", h.Sessions.Roster)
	admin.POST("/notifications/process-pending", h.Notifications.ProcessPending)
}
