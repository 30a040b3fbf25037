package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsInsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kaucjaflow_events_inserted_total",
			Help: "Total number of events stored for the first time",
		},
	)

	EventsDuplicateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kaucjaflow_events_duplicate_total",
			Help: "Total number of pushed events that were already stored",
		},
	)

	EventsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kaucjaflow_events_rejected_total",
			Help: "Total number of pushed events dropped by validation",
		},
	)

	MagicLinksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaucjaflow_magic_links_total",
			Help: "Login link requests by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

var once sync.Once

// Register adds all collectors to the default registry. Later calls are no-ops.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			EventsInsertedTotal,
			EventsDuplicateTotal,
			EventsRejectedTotal,
			MagicLinksTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}
