// Package app assembles repositories, services, handlers and routes into a
// ready-to-serve echo instance.  cmd/server owns process concerns (config,
// connections, signals); everything in between lives here so the HTTP
// tests exercise the same wiring.
package app

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/config"
	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/handler"
	"github.com/iliyamo/class-session-booking/internal/middleware"
	"github.com/iliyamo/class-session-booking/internal/repository"
	"github.com/iliyamo/class-session-booking/internal/router"
	"github.com/iliyamo/class-session-booking/internal/service"
)

// App is the assembled HTTP application.
type App struct {
	Echo *echo.Echo

	Sessions     *service.SessionService
	Reservations *service.ReservationService
	Notifier     *service.Notifier
	Inbox        *service.Inbox
	Poller       *service.Poller
}

// New wires the application.  rdb and publisher may be nil; the features
// they back degrade to local or no-op behaviour.
func New(cfg config.Config, db *database.DB, rdb *redis.Client, publisher service.EventPublisher,
	clk clock.Clock, log *slog.Logger) *App {
	zone := cfg.Location()
	lower, upper := cfg.Notify.ReminderWindow()

	classes := repository.NewClassRepo(db)
	sessions := repository.NewSessionRepo(db)
	ledger := repository.NewReservationRepo(db)
	notes := repository.NewNotificationRepo(db)

	reservations := service.NewReservationService(db, sessions, ledger, clk, log)
	notifier := service.NewNotifier(sessions, ledger, notes, publisher, clk, service.NotifierConfig{
		Zone:        zone,
		ReminderMin: lower,
		ReminderMax: upper,
		Locale:      cfg.Notify.Locale,
	}, log)
	sessionSvc := service.NewSessionService(db, classes, sessions, ledger, reservations, notifier, clk, zone, log)
	classSvc := service.NewClassService(classes, clk, log)
	poller := service.NewPoller(notifier, rdb, cfg.Notify.PollerMinInterval, clk, log)
	inbox := service.NewInbox(notes, poller, clk, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	var mw router.Middleware
	if rdb != nil {
		mw.RateLimit = middleware.NewTokenBucket(cfg.RateLimit, rdb, log)
		mw.Cache = middleware.NewRedisCache(cfg.Cache, rdb)
	}
	router.RegisterRoutes(e, router.Handlers{
		Health:        handler.NewHealthHandler(db, rdb),
		Classes:       handler.NewClassHandler(classSvc),
		Sessions:      handler.NewSessionHandler(sessionSvc),
		Reservations:  handler.NewReservationHandler(reservations),
		Notifications: handler.NewNotificationHandler(inbox, notifier),
	}, mw, cfg.JWTSecret)

	return &App{
		Echo:         e,
		Sessions:     sessionSvc,
		Reservations: reservations,
		Notifier:     notifier,
		Inbox:        inbox,
		Poller:       poller,
	}
}
