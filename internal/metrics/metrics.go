// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"

	NotifySent    = "sent"
	NotifyDenied  = "denied"
	NotifyFailed  = "failed"
	NotifyInApp   = "in_app"
	NotifyDeduped = "deduped"
)

// Collectors are registered with the default registry served at /metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remindme_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remindme_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	FlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remindme_flushes_total",
			Help: "Periodic state flushes by result",
		},
		[]string{"result"},
	)

	CorruptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remindme_storage_corrupt_total",
			Help: "Stored values discarded because they could not be decoded",
		},
		[]string{"kind"},
	)

	ReconciledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remindme_external_changes_total",
			Help: "External store changes applied to the active session",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remindme_notifications_total",
			Help: "Reminder matches by match type and outcome",
		},
		[]string{"match", "outcome"},
	)
)

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Flushed records the outcome of a flush.
func Flushed(err error) {
	if err != nil {
		FlushesTotal.WithLabelValues(ResultError).Inc()
		return
	}
	FlushesTotal.WithLabelValues(ResultOK).Inc()
}

// Corrupt counts a discarded stored value of the given collection kind.
func Corrupt(kind string) {
	CorruptTotal.WithLabelValues(kind).Inc()
}

// Reconciled counts an applied external change.
func Reconciled() {
	ReconciledTotal.Inc()
}

// Notification counts a reminder match and what happened to it.
func Notification(match, outcome string) {
	NotificationsTotal.WithLabelValues(match, outcome).Inc()
}
