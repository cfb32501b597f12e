package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval and fusion Prometheus metrics.
var (
	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Sub-query duration per retrieval source, retries included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"source", "status"}, // status: ok, timeout, upstream_error, embedding_error, canceled
	)

	RetrievalRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_retries_total",
			Help:      "Retried sub-query attempts per retrieval source",
		},
		[]string{"source"},
	)

	DegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_degraded_total",
			Help:      "Hybrid searches answered without the given source",
		},
		[]string{"source"},
	)

	FusionCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fusion_candidates",
			Help:      "Unique documents entering fusion per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200},
		},
	)

	MetadataMissingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "metadata_missing_total",
			Help:      "Fused documents dropped because their metadata was missing",
		},
	)
)

var searchMetricsOnce sync.Once

// RegisterSearchMetrics registers retrieval and fusion metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	searchMetricsOnce.Do(func() {
		prometheus.MustRegister(RetrievalDuration)
		prometheus.MustRegister(RetrievalRetriesTotal)
		prometheus.MustRegister(DegradedTotal)
		prometheus.MustRegister(FusionCandidates)
		prometheus.MustRegister(MetadataMissingTotal)
	})
}
