// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliyamo/class-session-booking/internal/apperr"
)

var (
	// Reservations counts reservation attempts by outcome code ("ok",
	// "CAPACITY_EXCEEDED", ...).
	Reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "reservations_total",
		Help:      "Reservation create and cancel attempts by operation and result.",
	}, []string{"op", "result"})

	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "session_transitions_total",
		Help:      "Session lifecycle operations by name and result.",
	}, []string{"op", "result"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "notifications_created_total",
		Help:      "Notifications written by the dedup engine, by type.",
	}, []string{"type"})

	PollerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "poller_runs_total",
		Help:      "Read-path notification scans by result (ran, throttled, failed).",
	}, []string{"result"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "booking",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.CodeOf(err))
}
