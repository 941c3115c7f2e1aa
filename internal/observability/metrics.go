// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Refresh metrics
	RefreshRunsTotal  *prometheus.CounterVec
	RefreshDuration   prometheus.Histogram
	NotesProcessed    prometheus.Counter
	RefreshFailures   prometheus.Counter
	NotesByStatus     *prometheus.GaugeVec
	LastSuccessfulRun prometheus.Gauge

	// Barrier event metrics
	KnockOutsTotal   prometheus.Counter
	KnockInsTotal    prometheus.Counter
	ConversionsTotal prometheus.Counter

	// Price feed metrics
	PriceFetchLatency prometheus.Histogram
	PriceFetchErrors  *prometheus.CounterVec
	PriceCacheHits    prometheus.Counter
	PriceCacheMisses  prometheus.Counter
	ClosesRecorded    prometheus.Counter
	TickersTracked    prometheus.Gauge

	// Intake metrics
	NotesCreated   prometheus.Counter
	IntakeRejected *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "notes_tracker"
	}

	return &Metrics{
		RefreshRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of refresh runs by outcome",
		}, []string{"status"}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Duration of a full refresh run",
			Buckets:   prometheus.DefBuckets,
		}),
		NotesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "notes_processed_total",
			Help:      "Total number of notes evaluated by the barrier engine",
		}),
		RefreshFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "note_failures_total",
			Help:      "Total number of per-note failures during refresh",
		}),
		NotesByStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "notes_by_status",
			Help:      "Number of notes per lifecycle status",
		}, []string{"status"}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful refresh run",
		}),

		KnockOutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "knock_outs_total",
			Help:      "Total number of knock-out events recorded",
		}),
		KnockInsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "knock_ins_total",
			Help:      "Total number of knock-in events recorded",
		}),
		ConversionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "conversions_total",
			Help:      "Total number of conversion events recorded",
		}),

		PriceFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of outbound quote lookups",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PriceFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed quote lookups by reason",
		}, []string{"reason"}),
		PriceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "cache_hits_total",
			Help:      "Total number of quote cache hits",
		}),
		PriceCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "cache_misses_total",
			Help:      "Total number of quote cache misses",
		}),
		ClosesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "closes_recorded_total",
			Help:      "Total number of daily closes written to history",
		}),
		TickersTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricefeed",
			Name:      "tickers_tracked",
			Help:      "Number of distinct tickers referenced by underlyings",
		}),

		NotesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "notes_created_total",
			Help:      "Total number of notes created through intake",
		}),
		IntakeRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "rejected_total",
			Help:      "Total number of intake rejections by reason",
		}, []string{"reason"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
