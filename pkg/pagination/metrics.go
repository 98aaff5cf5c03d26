package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for fetch operations.
var (
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riksdag_retries_total",
		Help: "Total number of page retry attempts",
	})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riksdag_retry_backoff_seconds",
		Help:    "Backoff duration before page retries",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riksdag_retry_exhausted_total",
		Help: "Total number of pages whose retry attempts were exhausted",
	})

	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riksdag_pages_fetched_total",
		Help: "Total number of result pages fetched",
	})

	entitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riksdag_entities_total",
		Help: "Total number of entities produced by kind",
	}, []string{"kind"})
)
