package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threads_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ThreadsCreated counts created threads by kind ("post" or "reply").
	ThreadsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_created_total",
		Help: "Total number of threads created",
	}, []string{"kind"})

	// ViewRevalidations counts view paths marked stale.
	ViewRevalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threads_view_revalidations_total",
		Help: "Total number of view paths revalidated",
	})

	// ViewCacheResults counts view cache lookups by the layer that answered
	// ("local" or "hit") or "miss".
	ViewCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threads_view_cache_results_total",
		Help: "View cache lookups by result",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
