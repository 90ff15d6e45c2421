package main // entry point of the class session booking API

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/class-session-booking/internal/app"
	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/config"
	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/queue"
	"github.com/iliyamo/class-session-booking/internal/service"
	"github.com/iliyamo/class-session-booking/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", logger.Err(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Warn("tracing disabled", logger.Err(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DB.Migrate {
		n, err := database.Migrate(ctx, db)
		if err != nil {
			return err
		}
		log.Info("migrations applied", slog.Int("count", n), slog.String("driver", cfg.DB.Driver))
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, using local poller throttle and no rate limit or cache")
	} else {
		defer rdb.Close()
	}

	var publisher service.EventPublisher = queue.NopPublisher{Log: log}
	if cfg.AMQP.URL != "" {
		p := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)
		defer p.Close()
		publisher = p

		if cfg.AMQP.ConsumerEnabled {
			consumer := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, cfg.AMQP.DeliveryLogDir, log)
			go func() { _ = consumer.Run(ctx) }()
		}
	}

	a := app.New(cfg, db, rdb, publisher, clock.System{}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
