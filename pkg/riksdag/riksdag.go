// Package riksdag is the entry point of the library: it wires the HTTP
// transport, the parser registry and the fetcher together and hands out
// query builders for the document, member and vote searches.
//
//	api, err := riksdag.New(riksdag.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer api.Close()
//
//	it := api.Documents().Motions("klimat").Session("2021/22").Limit(20).Get(ctx)
//	for it.Next() {
//		m := it.Entity().(*models.Motion)
//		fmt.Println(m.Date.Format(time.DateOnly), m.Title)
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
package riksdag

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/riksdag-client/pkg/client"
	"github.com/Sternrassler/riksdag-client/pkg/models"
	"github.com/Sternrassler/riksdag-client/pkg/pagination"
	"github.com/Sternrassler/riksdag-client/pkg/parser"
	"github.com/Sternrassler/riksdag-client/pkg/query"
)

// DefaultTextConcurrency bounds FetchTexts when no concurrency is given.
const DefaultTextConcurrency = 4

// API is a configured client for the Riksdagen open data API.
type API struct {
	client   *client.Client
	registry *parser.Registry

	documents *pagination.Fetcher
	persons   *pagination.Fetcher
	votes     *pagination.Fetcher

	schemas map[string]*query.Schema
	logger  zerolog.Logger
}

// Option customizes New.
type Option func(*options)

type options struct {
	registry   *parser.Registry
	onPage     func(pagination.PageProgress)
	httpClient *http.Client
}

// WithRegistry uses r instead of the default registry. r must be fully
// populated before the first fetch.
func WithRegistry(r *parser.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithProgress reports every fetched page to fn.
func WithProgress(fn func(pagination.PageProgress)) Option {
	return func(o *options) { o.onPage = fn }
}

// WithHTTPClient replaces the transport's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds an API from cfg.
func New(cfg Config, opts ...Option) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = parser.NewDefaultRegistry()
	}

	logger := log.With().Str("component", "riksdag").Logger()

	clientCfg := client.Config{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		CacheTTL:          cfg.CacheTTL,
	}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		clientCfg.Redis = redis.NewClient(redisOpts)
	}

	c, err := client.New(clientCfg)
	if err != nil {
		if clientCfg.Redis != nil {
			_ = clientCfg.Redis.Close()
		}
		return nil, fmt.Errorf("create client: %w", err)
	}
	if o.httpClient != nil {
		c.SetHTTPClient(o.httpClient)
	}

	if clientCfg.Redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := clientCfg.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable - page cache will miss until it recovers")
		}
		cancel()
	}

	fetchCfg := pagination.Config{
		Retry: pagination.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.RetryBackoff,
		},
		MaxResults: cfg.MaxResults,
		OnPage:     o.onPage,
	}

	return &API{
		client:    c,
		registry:  o.registry,
		documents: pagination.NewFetcher(c.Pages(client.Documents), o.registry, fetchCfg),
		persons:   pagination.NewFetcher(c.Pages(client.Persons), o.registry, fetchCfg),
		votes:     pagination.NewFetcher(c.Pages(client.Votes), o.registry, fetchCfg),
		schemas: map[string]*query.Schema{
			query.SchemaDocuments: query.MustBuiltinSchema(query.SchemaDocuments),
			query.SchemaPersons:   query.MustBuiltinSchema(query.SchemaPersons),
			query.SchemaVotes:     query.MustBuiltinSchema(query.SchemaVotes),
		},
		logger: logger,
	}, nil
}

// Documents returns a new builder for the document search.
func (a *API) Documents() *query.Builder {
	return query.NewBuilder(a.schemas[query.SchemaDocuments], a.documents)
}

// Persons returns a new builder for the member list. Every hit is parsed as
// a person.
func (a *API) Persons() *query.Builder {
	return query.NewBuilder(a.schemas[query.SchemaPersons], a.persons).ParseAs(models.KindPerson)
}

// Votes returns a new builder for the vote list. Every hit is parsed as a
// vote.
func (a *API) Votes() *query.Builder {
	return query.NewBuilder(a.schemas[query.SchemaVotes], a.votes).ParseAs(models.KindVote)
}

// Registry returns the parser registry. Register custom parsers before the
// first fetch.
func (a *API) Registry() *parser.Registry {
	return a.registry
}

// Client returns the underlying transport.
func (a *API) Client() *client.Client {
	return a.client
}

// FetchText downloads the plain text body of a motion.
func (a *API) FetchText(ctx context.Context, m *models.Motion) (string, error) {
	return a.fetchBody(ctx, m, client.FormatText)
}

// FetchHTML downloads the HTML body of a motion.
func (a *API) FetchHTML(ctx context.Context, m *models.Motion) (string, error) {
	return a.fetchBody(ctx, m, client.FormatHTML)
}

func (a *API) fetchBody(ctx context.Context, m *models.Motion, format string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("motion is nil")
	}
	if m.DocumentURL == "" {
		return "", fmt.Errorf("motion %s has no document url", m.ID())
	}
	body, err := a.client.FetchDocument(ctx, m.DocumentURL, format)
	if err != nil {
		return "", fmt.Errorf("fetch %s of motion %s: %w", format, m.ID(), err)
	}
	return body, nil
}

// DocumentText is the downloaded text of one motion.
type DocumentText struct {
	MotionID string
	Text     string
}

// FetchTexts downloads the text of every motion with at most concurrency
// requests in flight. Results keep the input order. The first failure
// cancels the remaining downloads and is returned.
func (a *API) FetchTexts(ctx context.Context, motions []*models.Motion, concurrency int) ([]DocumentText, error) {
	if len(motions) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultTextConcurrency
	}

	results := make([]DocumentText, len(motions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, m := range motions {
		g.Go(func() error {
			text, err := a.FetchText(ctx, m)
			if err != nil {
				return err
			}
			// Each goroutine owns its index
			results[i] = DocumentText{MotionID: m.ID(), Text: text}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Debug().
		Int("documents", len(results)).
		Int("concurrency", concurrency).
		Msg("Fetched document texts")
	return results, nil
}

// Close releases the Redis connection, if any.
func (a *API) Close() error {
	return a.client.Close()
}
