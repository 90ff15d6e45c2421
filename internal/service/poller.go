package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/metrics"
)

// PollerLockKey is the Redis key that throttles scans across replicas.
const PollerLockKey = "booking:poller:lock"

// PendingProcessor runs one notification scan.  *Notifier implements it.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) (PendingResult, error)
}

// Poller runs the notification scans on the read path instead of a
// background daemon.  A Redis SET NX PX key limits scans to one per
// interval across the cluster; without Redis the limit is per process.
// At most one scan runs at a time in a process.
type Poller struct {
	engine   PendingProcessor
	rdb      *redis.Client
	interval time.Duration
	clock    clock.Clock
	log      *slog.Logger

	running atomic.Bool

	mu   sync.Mutex
	last time.Time
}

// NewPoller returns a poller.  rdb may be nil.  An interval of zero runs a
// scan on every trigger.
func NewPoller(engine PendingProcessor, rdb *redis.Client, interval time.Duration, clk clock.Clock, log *slog.Logger) *Poller {
	return &Poller{engine: engine, rdb: rdb, interval: interval, clock: clk, log: log}
}

// Trigger runs a scan unless one ran recently or is running now.  Failures
// are logged and never returned; the caller's read goes on regardless.
func (p *Poller) Trigger(ctx context.Context) {
	const op = "service.Poller.Trigger"

	if !p.running.CompareAndSwap(false, true) {
		metrics.PollerRuns.WithLabelValues("throttled").Inc()
		return
	}
	defer p.running.Store(false)

	if !p.acquire(ctx) {
		metrics.PollerRuns.WithLabelValues("throttled").Inc()
		return
	}

	res, err := p.engine.ProcessPending(ctx)
	if err != nil {
		metrics.PollerRuns.WithLabelValues("failed").Inc()
		p.log.Error("notification scan failed", slog.String("op", op), logger.Err(err))
		return
	}
	metrics.PollerRuns.WithLabelValues("ran").Inc()
	if res.Reminders > 0 || res.Cancellations > 0 {
		p.log.Info("notification scan",
			slog.String("op", op),
			slog.Int("reminders", res.Reminders),
			slog.Int("cancellations", res.Cancellations))
	}
}

// acquire claims the current interval.
func (p *Poller) acquire(ctx context.Context) bool {
	if p.interval <= 0 {
		return true
	}
	now := p.clock.Now()
	if p.rdb != nil {
		ok, err := p.rdb.SetNX(ctx, PollerLockKey, strconv.FormatInt(now.UnixMilli(), 10), p.interval).Result()
		if err == nil {
			return ok
		}
		p.log.Warn("poller lock unavailable, using local throttle", logger.Err(err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.last.IsZero() && now.Sub(p.last) < p.interval {
		return false
	}
	p.last = now
	return true
}
