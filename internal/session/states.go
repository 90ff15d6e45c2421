package session

import (
	"context"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/model"
)

type scheduledState struct{}

func (scheduledState) Status() model.SessionStatus { return model.SessionScheduled }

func (scheduledState) update(m *Machine, p model.SessionPatch) (UpdateResult, error) {
	next := *m.s
	if p.StartsAt != nil {
		if p.StartsAt.Before(m.now) {
			return UpdateResult{}, apperr.InvalidField("starts_at", "start time cannot be in the past")
		}
		next.StartsAt = p.StartsAt.UTC()
	}
	if p.DurationMin != nil {
		if *p.DurationMin < model.MinSessionDurationMin {
			return UpdateResult{}, apperr.InvalidField("duration_min", "duration must be at least 10 minutes")
		}
		next.DurationMin = *p.DurationMin
	}
	if p.Capacity != nil {
		if *p.Capacity < 1 {
			return UpdateResult{}, apperr.InvalidField("capacity", "capacity must be at least 1")
		}
		if *p.Capacity < m.s.ReservedCount {
			return UpdateResult{}, apperr.InvalidField("capacity", "capacity cannot be lower than the seats already reserved")
		}
		next.Capacity = *p.Capacity
	}

	shift := next.StartsAt.Sub(m.s.StartsAt)
	if shift < 0 {
		shift = -shift
	}
	res := UpdateResult{Rescheduled: shift > RescheduleTolerance, PreviousStart: m.s.StartsAt}
	*m.s = next
	return res, nil
}

func (scheduledState) cancel(ctx context.Context, m *Machine, reason *string, res Reservations) (CancelResult, error) {
	why := DefaultCancelReason
	if reason != nil && *reason != "" {
		why = *reason
	}
	n, err := res.CancelAllBySession(ctx, m.s.ID, &why)
	if err != nil {
		return CancelResult{}, err
	}
	m.s.Status = model.SessionCanceled
	m.s.CancelReason = &why
	m.s.ReservedCount = 0
	return CancelResult{Canceled: n}, nil
}

func (scheduledState) start(m *Machine) error {
	m.s.Status = model.SessionInProgress
	return nil
}

func (scheduledState) complete(*Machine) error {
	return apperr.InvalidTransition("complete", string(model.SessionScheduled))
}

type inProgressState struct{}

func (inProgressState) Status() model.SessionStatus { return model.SessionInProgress }

func (inProgressState) update(*Machine, model.SessionPatch) (UpdateResult, error) {
	return UpdateResult{}, apperr.InvalidTransition("update", string(model.SessionInProgress))
}

func (inProgressState) cancel(context.Context, *Machine, *string, Reservations) (CancelResult, error) {
	return CancelResult{}, apperr.InvalidTransition("cancel", string(model.SessionInProgress))
}

func (inProgressState) start(*Machine) error {
	return apperr.InvalidTransition("start", string(model.SessionInProgress))
}

func (inProgressState) complete(m *Machine) error {
	m.s.Status = model.SessionCompleted
	return nil
}

type canceledState struct{}

func (canceledState) Status() model.SessionStatus { return model.SessionCanceled }

func (canceledState) update(*Machine, model.SessionPatch) (UpdateResult, error) {
	return UpdateResult{}, apperr.InvalidTransition("update", string(model.SessionCanceled))
}

// cancel on a canceled session is an idempotent success.
func (canceledState) cancel(context.Context, *Machine, *string, Reservations) (CancelResult, error) {
	return CancelResult{AlreadyCanceled: true}, nil
}

func (canceledState) start(*Machine) error {
	return apperr.InvalidTransition("start", string(model.SessionCanceled))
}

func (canceledState) complete(*Machine) error {
	return apperr.InvalidTransition("complete", string(model.SessionCanceled))
}
