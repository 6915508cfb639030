// Package metrics defines the Prometheus metrics for query orchestration,
// caching, and the analytics transport.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query and transport Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kqlbridge",
			Name:      "queries_total",
			Help:      "Total number of queries by outcome and provenance source kind",
		},
		[]string{"outcome", "source"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kqlbridge",
			Name:      "result_cache_total",
			Help:      "Query result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	TransportRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kqlbridge",
			Name:      "transport_request_duration_seconds",
			Help:      "Analytics backend request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)

	TransportErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kqlbridge",
			Name:      "transport_errors_total",
			Help:      "Analytics backend errors by category",
		},
		[]string{"category"}, // auth / syntax / rate_limit / transport
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers the Prometheus metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(TransportRequestDuration)
	prometheus.MustRegister(TransportErrorsTotal)
	queryMetricsRegistered = true
}
