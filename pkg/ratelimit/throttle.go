package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riksdag_throttle_wait_seconds",
		Help:    "Time spent waiting for the request throttle",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
	})

	throttleBackoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riksdag_throttle_backoffs_total",
		Help: "Total number of server requested pauses",
	})
)

// Throttle gates outgoing requests. It is safe for concurrent use.
type Throttle struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	backoffUntil time.Time
	cfg          Config
	logger       zerolog.Logger
}

// NewThrottle creates a throttle from the given configuration.
func NewThrottle(cfg Config, logger zerolog.Logger) *Throttle {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	} else {
		cfg.RequestsPerSecond = 0
	}
	return &Throttle{
		limiter: rate.NewLimiter(limit, cfg.Burst),
		cfg:     cfg,
		logger:  logger,
	}
}

// Wait blocks until a request may be sent, first sitting out any active
// server requested pause and then taking a token from the bucket.
func (t *Throttle) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() {
		throttleWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	if wait := t.State().TimeUntilResume(); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return t.limiter.Wait(ctx)
}

// Backoff pauses all requests for d. A zero or negative d selects
// DefaultBackoff; values above MaxBackoff are capped. An existing longer
// pause is kept.
func (t *Throttle) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultBackoff
	}
	if d > MaxBackoff {
		d = MaxBackoff
	}

	until := time.Now().Add(d)

	t.mu.Lock()
	extended := until.After(t.backoffUntil)
	if extended {
		t.backoffUntil = until
	}
	t.mu.Unlock()

	if extended {
		throttleBackoffsTotal.Inc()
		t.logger.Warn().
			Dur("pause", d).
			Time("resume_at", until).
			Msg("Riksdagen asked to slow down - pausing requests")
	}
}

// State returns the current throttle state.
func (t *Throttle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		RequestsPerSecond: t.cfg.RequestsPerSecond,
		Burst:             t.cfg.Burst,
		BackoffUntil:      t.backoffUntil,
	}
}
