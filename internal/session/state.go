// Package session holds the class-session aggregate's lifecycle state
// machine.  Every legal transition is decided here; callers only persist the
// result.
//
//	SCHEDULED ──start──▶ IN_PROGRESS ──complete──▶ COMPLETED
//	    │
//	    └──cancel──▶ CANCELED
//
// COMPLETED and CANCELED are terminal.
package session

import (
	"context"
	"time"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/model"
)

// RescheduleTolerance is the smallest start-time shift treated as a
// reschedule.
const RescheduleTolerance = time.Second

// DefaultCancelReason is recorded when a session is canceled without one.
const DefaultCancelReason = "Class canceled"

// Reservations is the narrow port the machine uses to cascade a cancel into
// the reservation ledger.  Implementations run inside the caller's unit of
// work so the cascade commits or rolls back with the status change.
type Reservations interface {
	CancelAllBySession(ctx context.Context, sessionID string, reason *string) (int64, error)
}

// UpdateResult describes what an accepted update changed.
type UpdateResult struct {
	Rescheduled   bool
	PreviousStart time.Time
}

// CancelResult describes an accepted cancel.  AlreadyCanceled is set when
// the call was a no-op on a CANCELED session.
type CancelResult struct {
	AlreadyCanceled bool
	Canceled        int64
}

// State is the strategy for one lifecycle status.
type State interface {
	Status() model.SessionStatus
	update(m *Machine, p model.SessionPatch) (UpdateResult, error)
	cancel(ctx context.Context, m *Machine, reason *string, res Reservations) (CancelResult, error)
	start(m *Machine) error
	complete(m *Machine) error
}

// stateFor selects the strategy for a status.  Unknown statuses behave as
// terminal.
func stateFor(status model.SessionStatus) State {
	switch status {
	case model.SessionScheduled:
		return scheduledState{}
	case model.SessionInProgress:
		return inProgressState{}
	case model.SessionCanceled:
		return canceledState{}
	default:
		// COMPLETED and any status this build does not know
		return rejectAll{status: status}
	}
}

// Machine wraps a session aggregate and applies transitions to it.  A
// rejected transition leaves the aggregate untouched.
type Machine struct {
	s   *model.Session
	now time.Time
}

// New returns a machine for s evaluated at now.
func New(s *model.Session, now time.Time) *Machine {
	return &Machine{s: s, now: now}
}

// Session returns the wrapped aggregate.
func (m *Machine) Session() *model.Session { return m.s }

// Now is the instant transitions are evaluated at.
func (m *Machine) Now() time.Time { return m.now }

// State returns the strategy for the current status.
func (m *Machine) State() State { return stateFor(m.s.Status) }

// Update applies a patch.  Legal only while SCHEDULED.
func (m *Machine) Update(p model.SessionPatch) (UpdateResult, error) {
	return m.State().update(m, p)
}

// Cancel moves a SCHEDULED session to CANCELED and cascades the cancel to
// its reservations through res.  Canceling a CANCELED session succeeds
// without side effects.
func (m *Machine) Cancel(ctx context.Context, reason *string, res Reservations) (CancelResult, error) {
	return m.State().cancel(ctx, m, reason, res)
}

// Start moves SCHEDULED to IN_PROGRESS.
func (m *Machine) Start() error { return m.State().start(m) }

// Complete moves IN_PROGRESS to COMPLETED.
func (m *Machine) Complete() error { return m.State().complete(m) }

// rejectAll refuses every transition.
type rejectAll struct{ status model.SessionStatus }

func (r rejectAll) Status() model.SessionStatus { return r.status }

func (r rejectAll) update(*Machine, model.SessionPatch) (UpdateResult, error) {
	return UpdateResult{}, apperr.InvalidTransition("update", string(r.status))
}

func (r rejectAll) cancel(context.Context, *Machine, *string, Reservations) (CancelResult, error) {
	return CancelResult{}, apperr.InvalidTransition("cancel", string(r.status))
}

func (r rejectAll) start(*Machine) error {
	return apperr.InvalidTransition("start", string(r.status))
}

func (r rejectAll) complete(*Machine) error {
	return apperr.InvalidTransition("complete", string(r.status))
}
