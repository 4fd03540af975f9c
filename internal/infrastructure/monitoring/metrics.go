package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics holds the prometheus instruments for the suggestion
// pipeline. They are recorded at the service port boundary by the
// instrumented decorator, which keeps the application layer free of
// metrics plumbing. Construct exactly once: promauto registers against
// the default registry and panics on duplicates.
type EngineMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	resultCount      *prometheus.HistogramVec
	candidatesScored prometheus.Histogram
	exclusionsTotal  *prometheus.CounterVec
	relaxedTotal     prometheus.Counter
	emptyCatalog     prometheus.Counter
}

// NewEngineMetrics registers the engine collectors.
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "platewise",
				Subsystem: "engine",
				Name:      "requests_total",
				Help:      "Suggestion engine operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "platewise",
				Subsystem: "engine",
				Name:      "request_duration_seconds",
				Help:      "End to end duration of engine operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		resultCount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "platewise",
				Subsystem: "engine",
				Name:      "results_returned",
				Help:      "Number of suggestions returned per response",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
			[]string{"operation"},
		),
		candidatesScored: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "platewise",
				Subsystem: "engine",
				Name:      "candidates_scored",
				Help:      "Catalog candidates scored per request",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		exclusionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "platewise",
				Subsystem: "engine",
				Name:      "exclusions_total",
				Help:      "Candidates dropped from responses by reason",
			},
			[]string{"reason"},
		),
		relaxedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "platewise",
				Subsystem: "engine",
				Name:      "relaxed_exclusions_total",
				Help:      "Recency exclusions relaxed to fill sparse responses",
			},
		),
		emptyCatalog: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "platewise",
				Subsystem: "engine",
				Name:      "empty_catalog_total",
				Help:      "Requests that matched zero catalog meals before scoring",
			},
		),
	}
}
