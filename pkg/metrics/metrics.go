// Package metrics exposes the Prometheus metrics of the Riksdagen client.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination) and registered on the default registry via promauto;
// this package serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry used by the client.
var Registry = prometheus.DefaultRegisterer

// shutdownTimeout bounds the graceful shutdown of the metrics server.
const shutdownTimeout = 5 * time.Second

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewMux returns a mux with /metrics and a /health probe.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	return mux
}

// Serve runs a metrics server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Metrics server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	logger.Info().Msg("Metrics server stopped")
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - riksdag_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - riksdag_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - riksdag_errors_total{class} (Counter): Errors by class (client, server, network, malformed)
//
// Pagination Metrics (pkg/pagination):
//   - riksdag_retries_total (Counter): Retries of transient page failures
//   - riksdag_retry_backoff_seconds (Histogram): Backoff slept before a retry
//   - riksdag_retry_exhausted_total (Counter): Pages that exhausted all attempts
//   - riksdag_pages_fetched_total (Counter): Pages fetched successfully
//   - riksdag_entities_total{kind} (Counter): Entities delivered by kind
//
// Throttle Metrics (pkg/ratelimit):
//   - riksdag_throttle_wait_seconds (Histogram): Time spent waiting for the throttle
//   - riksdag_throttle_backoffs_total (Counter): Server requested pauses (429/503)
//
// Cache Metrics (pkg/cache):
//   - riksdag_cache_hits_total (Counter): Page cache hits
//   - riksdag_cache_misses_total (Counter): Page cache misses
//   - riksdag_cache_size_bytes (Counter): Bytes written to the cache
//   - riksdag_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(riksdag_cache_hits_total[5m])) /
//	(sum(rate(riksdag_cache_hits_total[5m])) + sum(rate(riksdag_cache_misses_total[5m])))
//
//	# Retry Rate
//	rate(riksdag_retries_total[5m]) / rate(riksdag_pages_fetched_total[5m])
//
//	# P95 Request Latency
//	histogram_quantile(0.95, rate(riksdag_request_duration_seconds_bucket[5m]))
