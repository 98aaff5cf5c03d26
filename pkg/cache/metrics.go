package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riksdag_cache_hits_total",
		Help: "Pages served from the cache",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riksdag_cache_misses_total",
		Help: "Page lookups that found nothing fresh",
	})

	cacheBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riksdag_cache_size_bytes",
		Help: "Page body bytes written to the cache",
	})

	cacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riksdag_cache_errors_total",
		Help: "Failed cache operations",
	}, []string{"operation"})
)
