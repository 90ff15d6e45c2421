package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/metrics"
	"github.com/iliyamo/class-session-booking/internal/model"
	"github.com/iliyamo/class-session-booking/internal/queue"
	"github.com/iliyamo/class-session-booking/internal/render"
	"github.com/iliyamo/class-session-booking/internal/repository"
	"github.com/iliyamo/class-session-booking/internal/session"
)

// NotifierConfig tunes the notification engine.
type NotifierConfig struct {
	Zone        *time.Location // calendar-day decisions
	ReminderMin time.Duration  // exclusive lower bound of the reminder lead time
	ReminderMax time.Duration  // exclusive upper bound of the reminder lead time
	Locale      string
}

// PendingResult counts the notifications one ProcessPending pass wrote.
type PendingResult struct {
	Reminders     int `json:"reminders"`
	Cancellations int `json:"cancellations"`
}

// Notifier is the notification deduplication engine.  For an event on a
// session it selects the candidate users, drops those that already hold a
// notification of that type (deleted ones included) and batch-inserts the
// rest with insert-ignore.  UNIQUE (user, session, type) makes every run
// idempotent, so passes may overlap freely.
type Notifier struct {
	sessions  *repository.SessionRepo
	ledger    *repository.ReservationRepo
	notes     *repository.NotificationRepo
	renderer  *render.Renderer
	publisher EventPublisher
	clock     clock.Clock
	cfg       NotifierConfig
	log       *slog.Logger
}

func NewNotifier(sessions *repository.SessionRepo, ledger *repository.ReservationRepo, notes *repository.NotificationRepo,
	publisher EventPublisher, clk clock.Clock, cfg NotifierConfig, log *slog.Logger) *Notifier {
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	return &Notifier{
		sessions:  sessions,
		ledger:    ledger,
		notes:     notes,
		renderer:  render.New(cfg.Locale, cfg.Zone),
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		log:       log,
	}
}

// NotifySessionCanceled notifies every user that ever reserved the session.
func (n *Notifier) NotifySessionCanceled(ctx context.Context, s *model.Session) (int, error) {
	reason := session.DefaultCancelReason
	if s.CancelReason != nil && *s.CancelReason != "" {
		reason = *s.CancelReason
	}
	out := n.renderer.Render(model.NotificationSessionCanceled, render.Input{
		ClassTitle: s.ClassTitle,
		StartsAt:   s.StartsAt,
		Reason:     reason,
	})
	return n.generate(ctx, s, model.NotificationSessionCanceled, false, out)
}

// NotifySessionRescheduled notifies every user that ever reserved the
// session about its new start.
func (n *Notifier) NotifySessionRescheduled(ctx context.Context, s *model.Session, previous time.Time) (int, error) {
	out := n.renderer.Render(model.NotificationSessionRescheduled, render.Input{
		ClassTitle:    s.ClassTitle,
		StartsAt:      s.StartsAt,
		PreviousStart: previous,
	})
	return n.generate(ctx, s, model.NotificationSessionRescheduled, false, out)
}

// NotifyReminder reminds the CONFIRMED holders of the session.
func (n *Notifier) NotifyReminder(ctx context.Context, s *model.Session) (int, error) {
	out := n.renderer.Render(model.NotificationSessionReminder, render.Input{
		ClassTitle: s.ClassTitle,
		StartsAt:   s.StartsAt,
	})
	return n.generate(ctx, s, model.NotificationSessionReminder, true, out)
}

func (n *Notifier) generate(ctx context.Context, s *model.Session, typ model.NotificationType, confirmedOnly bool,
	msg render.Output) (written int, err error) {
	const op = "service.Notifier.generate"
	ctx, span := startSpan(ctx, op,
		attribute.String("session.id", s.ID),
		attribute.String("notification.type", string(typ)))
	defer func() { endSpan(span, err) }()

	candidates, err := n.ledger.UserIDsBySession(ctx, s.ID, confirmedOnly)
	if err != nil {
		return 0, fmt.Errorf("%s: candidates: %w", op, err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	existing, err := n.notes.UserIDsWithType(ctx, s.ID, typ)
	if err != nil {
		return 0, fmt.Errorf("%s: existing: %w", op, err)
	}
	skip := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		skip[id] = struct{}{}
	}

	now := n.clock.Now().UTC().Truncate(time.Millisecond)
	sessionID := s.ID
	items := make([]model.Notification, 0, len(candidates))
	for _, userID := range candidates {
		if _, ok := skip[userID]; ok {
			continue
		}
		items = append(items, model.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			SessionID: &sessionID,
			Type:      typ,
			Title:     msg.Title,
			Body:      msg.Body,
			CreatedAt: now,
		})
	}
	if len(items) == 0 {
		return 0, nil
	}

	created, err := n.notes.InsertIgnore(ctx, items)
	if err != nil {
		return 0, fmt.Errorf("%s: insert: %w", op, err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(typ)).Add(float64(len(created)))
	n.log.Info("notifications created",
		slog.String("op", op),
		slog.String("session_id", s.ID),
		slog.String("type", string(typ)),
		slog.Int("count", len(created)))

	for _, note := range created {
		n.publish(ctx, s, note)
	}
	return len(created), nil
}

// publish hands one notification to the delivery pipeline.  Failures are
// logged; the in-app row is already committed.
func (n *Notifier) publish(ctx context.Context, s *model.Session, note model.Notification) {
	if n.publisher == nil {
		return
	}
	ev := queue.NotificationCreatedEvent{
		NotificationID:  note.ID,
		UserID:          note.UserID,
		SessionID:       s.ID,
		Type:            string(note.Type),
		Title:           note.Title,
		Body:            note.Body,
		SessionStartsAt: s.StartsAt.UTC().Format(time.RFC3339),
		CreatedAt:       note.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := n.publisher.PublishNotificationCreated(ctx, ev); err != nil {
		n.log.Warn("notification event not published",
			slog.String("notification_id", note.ID),
			logger.Err(err))
	}
}

// InReminderWindow reports whether a session starting at start is due a
// reminder at now: the lead time lies strictly between the configured
// bounds and both instants fall on the same calendar day in the
// configured zone.
func (n *Notifier) InReminderWindow(start, now time.Time) bool {
	lead := start.Sub(now)
	if lead <= 0 || lead <= n.cfg.ReminderMin || lead >= n.cfg.ReminderMax {
		return false
	}
	sy, sm, sd := start.In(n.cfg.Zone).Date()
	ny, nm, nd := now.In(n.cfg.Zone).Date()
	return sy == ny && sm == nm && sd == nd
}

// ProcessReminders generates reminders for every SCHEDULED session inside
// the reminder window.  A failing session is logged and skipped; only a
// failed listing is returned.
func (n *Notifier) ProcessReminders(ctx context.Context) (int, error) {
	const op = "service.Notifier.ProcessReminders"
	now := n.clock.Now().UTC()
	due, err := n.sessions.ListScheduledStartingBetween(ctx, now.Add(n.cfg.ReminderMin), now.Add(n.cfg.ReminderMax))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	total := 0
	for i := range due {
		if !n.InReminderWindow(due[i].StartsAt, now) {
			continue
		}
		c, err := n.NotifyReminder(ctx, &due[i])
		if err != nil {
			n.skip(op, due[i].ID, err)
			continue
		}
		total += c
	}
	return total, nil
}

// ProcessPendingCancellations re-runs the cancel notification for every
// CANCELED session so users missed by a failed or interrupted pass are
// caught up.
func (n *Notifier) ProcessPendingCancellations(ctx context.Context) (int, error) {
	const op = "service.Notifier.ProcessPendingCancellations"
	canceled, err := n.sessions.ListByStatus(ctx, model.SessionCanceled)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	total := 0
	for i := range canceled {
		c, err := n.NotifySessionCanceled(ctx, &canceled[i])
		if err != nil {
			n.skip(op, canceled[i].ID, err)
			continue
		}
		total += c
	}
	return total, nil
}

// ProcessPending runs the reminder scan and then the pending-cancel scan.
func (n *Notifier) ProcessPending(ctx context.Context) (res PendingResult, err error) {
	ctx, span := startSpan(ctx, "service.Notifier.ProcessPending")
	defer func() { endSpan(span, err) }()

	var remErr, cancelErr error
	res.Reminders, remErr = n.ProcessReminders(ctx)
	res.Cancellations, cancelErr = n.ProcessPendingCancellations(ctx)
	return res, errors.Join(remErr, cancelErr)
}

// skip logs a session the scan could not process.  The next scan retries it.
func (n *Notifier) skip(op, sessionID string, err error) {
	n.log.Error("session skipped by scan",
		slog.String("op", op),
		slog.String("session_id", sessionID),
		logger.Err(err))
}
