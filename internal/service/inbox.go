package service

import (
	"context"
	"log/slog"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/model"
	"github.com/iliyamo/class-session-booking/internal/repository"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Trigger is the read-path hook that gives the poller a chance to run.
type Trigger interface {
	Trigger(ctx context.Context)
}

// Inbox serves a user's notifications.  Reads trigger the poller first so
// due reminders and missed cancellations show up without a daemon.
type Inbox struct {
	notes  *repository.NotificationRepo
	poller Trigger
	clock  clock.Clock
	log    *slog.Logger
}

// NewInbox returns an Inbox.  poller may be nil.
func NewInbox(notes *repository.NotificationRepo, poller Trigger, clk clock.Clock, log *slog.Logger) *Inbox {
	return &Inbox{notes: notes, poller: poller, clock: clk, log: log}
}

func (i *Inbox) poll(ctx context.Context) {
	if i.poller != nil {
		i.poller.Trigger(ctx)
	}
}

// ListUnread returns the user's unread notifications, newest first.
func (i *Inbox) ListUnread(ctx context.Context, userID string) ([]model.Notification, error) {
	i.poll(ctx)
	out, err := i.notes.ListUnread(ctx, userID)
	if err != nil {
		err = translate(err, "notification")
		logFailure(i.log, "service.Inbox.ListUnread", err)
		return nil, err
	}
	return out, nil
}

// ListAll returns up to limit notifications, newest first.  A limit outside
// 1..MaxListLimit is replaced by the default or clamped.
func (i *Inbox) ListAll(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	i.poll(ctx)
	out, err := i.notes.ListAll(ctx, userID, limit)
	if err != nil {
		err = translate(err, "notification")
		logFailure(i.log, "service.Inbox.ListAll", err)
		return nil, err
	}
	return out, nil
}

// MarkRead marks a notification read.  changed is false when it already was.
func (i *Inbox) MarkRead(ctx context.Context, id, userID string) (changed bool, err error) {
	return i.setRead(ctx, "service.Inbox.MarkRead", id, userID, true)
}

// MarkUnread marks a notification unread.  changed is false when it already was.
func (i *Inbox) MarkUnread(ctx context.Context, id, userID string) (changed bool, err error) {
	return i.setRead(ctx, "service.Inbox.MarkUnread", id, userID, false)
}

func (i *Inbox) setRead(ctx context.Context, op, id, userID string, read bool) (bool, error) {
	n, err := i.owned(ctx, id, userID)
	if err == nil && n.DeletedAt != nil {
		err = apperr.NotFound("notification")
	}
	if err != nil {
		logFailure(i.log, op, err)
		return false, err
	}
	changed, err := i.notes.SetRead(ctx, id, read, i.clock.Now().UTC())
	if err != nil {
		err = translate(err, "notification")
		logFailure(i.log, op, err)
		return false, err
	}
	return changed, nil
}

// MarkAllRead marks every unread notification of the user read and returns
// how many changed.
func (i *Inbox) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := i.notes.MarkAllRead(ctx, userID, i.clock.Now().UTC())
	if err != nil {
		err = translate(err, "notification")
		logFailure(i.log, "service.Inbox.MarkAllRead", err)
		return 0, err
	}
	return n, nil
}

// Delete soft-deletes a notification.  The tombstone keeps the engine from
// generating it again.  Deleting twice succeeds.
func (i *Inbox) Delete(ctx context.Context, id, userID string) error {
	const op = "service.Inbox.Delete"
	n, err := i.owned(ctx, id, userID)
	if err != nil {
		logFailure(i.log, op, err)
		return err
	}
	if n.DeletedAt != nil {
		return nil
	}
	if err := i.notes.SoftDelete(ctx, id, i.clock.Now().UTC()); err != nil {
		err = translate(err, "notification")
		logFailure(i.log, op, err)
		return err
	}
	return nil
}

// owned loads a notification and checks that userID owns it.
func (i *Inbox) owned(ctx context.Context, id, userID string) (*model.Notification, error) {
	n, err := i.notes.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "notification")
	}
	if n.UserID != userID {
		return nil, apperr.ErrUnauthorized
	}
	return n, nil
}
