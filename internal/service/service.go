// Package service implements the booking operations on top of the
// repositories: the reservation ledger, the session lifecycle, the
// notification engine and the read-path poller that drives it.
//
// Services take the caller's user id explicitly and return *apperr.Error
// values for every failure a client can act on.  Anything else is reported
// as apperr.CodeInternal.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/queue"
	"github.com/iliyamo/class-session-booking/internal/repository"
	"github.com/iliyamo/class-session-booking/internal/telemetry"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_publisher.go github.com/iliyamo/class-session-booking/internal/service EventPublisher

// EventPublisher hands created notifications to the delivery pipeline.
type EventPublisher interface {
	PublishNotificationCreated(ctx context.Context, ev queue.NotificationCreatedEvent) error
}

// translate maps repository sentinels onto client-facing errors.  what names
// the aggregate a missing row refers to.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, repository.ErrForbidden):
		return apperr.ErrUnauthorized
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.ErrDuplicateReservation
	case errors.Is(err, repository.ErrCapacityExceeded):
		return apperr.ErrCapacityExceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Unavailable(err)
	}
	return apperr.Internal(err)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
	}
	span.End()
}

// logFailure logs err at a level matching its code: rejections a client
// caused are debug noise, the rest are errors.
func logFailure(log *slog.Logger, op string, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeInternal, apperr.CodeUnavailable:
		log.Error("operation failed", slog.String("op", op), logger.Err(err))
	default:
		log.Debug("operation rejected", slog.String("op", op), slog.String("code", string(apperr.CodeOf(err))))
	}
}
