package pagination

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/riksdag-client/pkg/client"
	"github.com/Sternrassler/riksdag-client/pkg/parser"
)

// DefaultMaxResults is the upstream result window: the API serves at most
// this many hits for one query.
const DefaultMaxResults = 10000

// PageFetcher is the transport the Fetcher pulls pages from.
// *client.EndpointPages implements it.
type PageFetcher interface {
	// FetchPage fetches one page (1-based) of the search described by params.
	FetchPage(ctx context.Context, params url.Values, page int) (*client.PageEnvelope, error)
}

// Spec describes one fetch: the upstream search parameters plus two
// out-of-band controls.
type Spec struct {
	// Params are sent upstream as query parameters
	Params url.Values

	// Limit caps the number of entities produced. 0 means unset.
	Limit int

	// Kind forces a single parser for every hit. "" resolves per hit.
	Kind string
}

// Clone returns a deep copy of the spec.
func (s Spec) Clone() Spec {
	out := Spec{Limit: s.Limit, Kind: s.Kind}
	if s.Params != nil {
		out.Params = make(url.Values, len(s.Params))
		for k, vs := range s.Params {
			out.Params[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// PageProgress reports one fetched page.
type PageProgress struct {
	FetchID    string
	Page       int
	TotalPages int
	TotalHits  int
	Hits       int
	Delivered  int
}

// Config holds fetcher configuration.
type Config struct {
	// Retry controls page retries on transient failures
	Retry RetryConfig

	// MaxResults caps fetches that have no limit
	MaxResults int

	// OnPage is called after every fetched page, if set
	OnPage func(PageProgress)
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		Retry:      DefaultRetryConfig(),
		MaxResults: DefaultMaxResults,
	}
}

// Fetcher runs fetches against one page source.
type Fetcher struct {
	pages    PageFetcher
	registry *parser.Registry
	config   Config
	sleep    sleepFunc
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher. Zero config values fall back to defaults.
func NewFetcher(pages PageFetcher, registry *parser.Registry, config Config) *Fetcher {
	defaults := DefaultConfig()
	if config.Retry.MaxAttempts <= 0 {
		config.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if config.Retry.Backoff <= 0 {
		config.Retry.Backoff = defaults.Retry.Backoff
	}
	if config.MaxResults <= 0 {
		config.MaxResults = defaults.MaxResults
	}
	if registry == nil {
		registry = parser.NewDefaultRegistry()
	}

	return &Fetcher{
		pages:    pages,
		registry: registry,
		config:   config,
		sleep:    sleepContext,
		logger:   log.With().Str("component", "pagination").Logger(),
	}
}

// Config returns the effective configuration.
func (f *Fetcher) Config() Config {
	return f.config
}

// Iterate starts a lazy fetch. No request is made until the first Next.
// ctx bounds every request and backoff of the fetch.
func (f *Fetcher) Iterate(ctx context.Context, spec Spec) *Iterator {
	return newIterator(ctx, f, spec.Clone())
}

func (f *Fetcher) fetchPage(ctx context.Context, params url.Values, page int, logger zerolog.Logger) (*client.PageEnvelope, error) {
	start := time.Now()
	env, err := retryTransient(ctx, f.config.Retry, f.sleep, logger, func() (*client.PageEnvelope, error) {
		return f.pages.FetchPage(ctx, params, page)
	})
	if err != nil {
		return nil, err
	}

	pagesFetchedTotal.Inc()
	logger.Debug().
		Int("total_pages", env.TotalPages).
		Int("hits", len(env.Hits)).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")
	return env, nil
}
