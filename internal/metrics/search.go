package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search Prometheus metrics.
var (
	ResultErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metasearch",
			Name:      "result_errors_total",
			Help:      "Batches with invalid results, by engine and message",
		},
		[]string{"engine", "message"},
	)

	ResultsPerBatch = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metasearch",
			Name:      "engine_results",
			Help:      "Accepted results per engine batch",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"engine"},
	)

	ResultScore = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metasearch",
			Name:      "result_score_total",
			Help:      "Sum of final scores of the merged results each engine contributed to",
		},
		[]string{"engine"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metasearch",
			Name:      "engine_request_duration_seconds",
			Help:      "Backend request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
		[]string{"engine", "status"},
	)

	EngineErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metasearch",
			Name:      "engine_errors_total",
			Help:      "Unresponsive backend calls",
		},
		[]string{"engine", "error_type"},
	)

	SnapshotCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metasearch",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(ResultErrorsTotal)
	prometheus.MustRegister(ResultsPerBatch)
	prometheus.MustRegister(ResultScore)
	prometheus.MustRegister(EngineRequestDuration)
	prometheus.MustRegister(EngineErrorsTotal)
	prometheus.MustRegister(SnapshotCacheTotal)
	searchMetricsRegistered = true
}

// Search records aggregation and backend measurements into the package metrics.
type Search struct{}

// RecordResultError counts a batch that carried invalid results.
func (Search) RecordResultError(engine, message string) {
	ResultErrorsTotal.WithLabelValues(engine, message).Inc()
}

// RecordResultCount observes how many results a batch contributed.
func (Search) RecordResultCount(engine string, count int) {
	ResultsPerBatch.WithLabelValues(engine).Observe(float64(count))
}

// RecordScore adds the final score of a result the engine contributed to.
func (Search) RecordScore(engine string, score float64) {
	ResultScore.WithLabelValues(engine).Add(score)
}

// RecordEngineRequest observes one backend call. errorType is empty on success.
func (Search) RecordEngineRequest(engine string, d time.Duration, errorType string) {
	status := "success"
	if errorType != "" {
		status = "error"
		EngineErrorsTotal.WithLabelValues(engine, errorType).Inc()
	}
	EngineRequestDuration.WithLabelValues(engine, status).Observe(d.Seconds())
}

// RecordCache counts a snapshot cache lookup.
func (Search) RecordCache(hit bool) {
	if hit {
		SnapshotCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	SnapshotCacheTotal.WithLabelValues("miss").Inc()
}
