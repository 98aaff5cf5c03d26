// Package client provides the HTTP transport for the Riksdagen open data API:
// one search page per call, with throttling, optional page caching and
// classification of failures into transient and fatal errors.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sternrassler/riksdag-client/pkg/cache"
	"github.com/Sternrassler/riksdag-client/pkg/ratelimit"
)

// DefaultBaseURL is the public Riksdagen open data host.
const DefaultBaseURL = "https://data.riksdagen.se"

const tracerName = "github.com/Sternrassler/riksdag-client/pkg/client"

// Document body formats accepted by FetchDocument.
const (
	FormatText = "text"
	FormatHTML = "html"
)

// Client is the Riksdagen HTTP transport.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	throttle   *ratelimit.Throttle
	cache      *cache.Manager
	tracer     trace.Tracer
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, without the endpoint path
	BaseURL string

	// UserAgent is sent with every request
	UserAgent string

	// Timeout bounds a single HTTP request
	Timeout time.Duration

	// Throttle
	RequestsPerSecond float64 // <= 0 disables pacing
	Burst             int

	// Redis enables the page cache when set
	Redis *redis.Client

	// CacheTTL applies to pages whose response carries no Expires header
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		UserAgent:         "riksdag-client/1.0",
		Timeout:           30 * time.Second,
		RequestsPerSecond: ratelimit.DefaultRequestsPerSecond,
		Burst:             ratelimit.DefaultBurst,
		CacheTTL:          cache.DefaultTTL,
	}
}

// New creates a new Riksdagen client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	logger := log.With().Str("component", "riksdag-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		throttle: ratelimit.NewThrottle(ratelimit.Config{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}, logger),
		tracer: otel.Tracer(tracerName),
		config: cfg,
		logger: logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}
	return c, nil
}

// FetchPage requests one page of an endpoint's search results. The format
// and page parameters are set by the transport and override any caller
// values.
//
// Connectivity failures are returned as *TransientTransportError. HTTP error
// statuses and undecodable bodies are returned as *TransportError.
func (c *Client) FetchPage(ctx context.Context, ep Endpoint, params url.Values, page int) (*PageEnvelope, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}

	query := make(url.Values, len(params)+2)
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}
	query.Set(ParamFormat, "json")
	query.Set(ParamPage, strconv.Itoa(page))

	ctx, span := c.tracer.Start(ctx, "riksdag.FetchPage", trace.WithAttributes(
		attribute.String("riksdag.endpoint", ep.Path),
		attribute.Int("riksdag.page", page),
	))
	defer span.End()

	key := cache.NewKey(ep.Path, query)
	if env, ok := c.cachedPage(ctx, ep, key); ok {
		span.SetAttributes(attribute.Bool("riksdag.cache_hit", true))
		return env, nil
	}

	status, header, body, err := c.get(ctx, ep.Path, c.endpointURL(ep, query), page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	env, err := decodeEnvelope(ep, status, body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
		c.logger.Warn().
			Err(err).
			Str("endpoint", ep.Path).
			Int("page", page).
			Msg("Malformed page envelope")
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed response")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("riksdag.total_pages", env.TotalPages),
		attribute.Int("riksdag.hits", len(env.Hits)),
	)

	if c.cache != nil {
		cached := cache.FromResponse(status, header, body, c.config.CacheTTL)
		if err := c.cache.Set(ctx, key, cached); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", ep.Path).Msg("Failed to cache page")
		}
	}

	return env, nil
}

// FetchDocument downloads the body of a document in the given format
// ("text" or "html"). documentURL is the protocol relative URL carried by
// search hits, e.g. "//data.riksdagen.se/dokument/H9023456".
func (c *Client) FetchDocument(ctx context.Context, documentURL, format string) (string, error) {
	if format != FormatText && format != FormatHTML {
		return "", fmt.Errorf("unsupported document format %q", format)
	}
	if strings.TrimSpace(documentURL) == "" {
		return "", fmt.Errorf("document url is empty")
	}

	target := documentURL
	if strings.HasPrefix(target, "//") {
		target = "https:" + target
	}
	target += "." + format

	ctx, span := c.tracer.Start(ctx, "riksdag.FetchDocument", trace.WithAttributes(
		attribute.String("riksdag.document_url", documentURL),
		attribute.String("riksdag.format", format),
	))
	defer span.End()

	_, _, body, err := c.get(ctx, "dokument", target, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return string(body), nil
}

// get performs one throttled GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, endpoint, target string, page int) (int, http.Header, []byte, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return 0, nil, nil, fmt.Errorf("throttle wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("page", page).
		Str("url", target).
		Msg("Executing Riksdagen request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, c.networkError(ctx, endpoint, page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Connection dropped mid-body
		return 0, nil, nil, c.networkError(ctx, endpoint, page, err)
	}

	if resp.StatusCode >= 400 {
		if ratelimit.ShouldBackoff(resp.StatusCode) {
			wait, _ := ratelimit.ParseRetryAfter(resp.Header)
			c.throttle.Backoff(wait)
		}

		terr := statusError(endpoint, resp)
		errorsTotal.WithLabelValues(string(terr.ErrorClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("page", page).
			Int("status", resp.StatusCode).
			Str("error_class", string(terr.ErrorClass)).
			Msg("Riksdagen request error")
		return resp.StatusCode, nil, nil, terr
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return resp.StatusCode, resp.Header, body, nil
}

// networkError classifies a failed round trip. Caller cancellation is
// returned as the context error; everything else is transient.
func (c *Client) networkError(ctx context.Context, endpoint string, page int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		requestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
		return fmt.Errorf("riksdag %s page %d: %w", endpoint, page, ctxErr)
	}

	errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
	c.logger.Warn().
		Err(err).
		Str("endpoint", endpoint).
		Int("page", page).
		Str("error_class", string(ErrorClassNetwork)).
		Msg("HTTP request failed")

	return &TransientTransportError{Endpoint: endpoint, Page: page, Err: err}
}

// cachedPage returns a cached envelope, if any. Cache failures are logged
// and treated as misses.
func (c *Client) cachedPage(ctx context.Context, ep Endpoint, key cache.Key) (*PageEnvelope, bool) {
	if c.cache == nil {
		return nil, false
	}

	cached, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", ep.Path).Msg("Cache get error")
		}
		return nil, false
	}

	env, err := decodeEnvelope(ep, cached.Status, cached.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", ep.Path).Msg("Discarding undecodable cache entry")
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}

	c.logger.Debug().
		Str("endpoint", ep.Path).
		Str("key", key.String()).
		Dur("age", cached.Age()).
		Dur("ttl", cached.TTL()).
		Msg("Serving page from cache")
	return env, true
}

func (c *Client) endpointURL(ep Endpoint, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + ep.Path + "/"
	u.RawQuery = query.Encode()
	return u.String()
}

// Pages binds the client to one endpoint.
func (c *Client) Pages(ep Endpoint) *EndpointPages {
	return &EndpointPages{client: c, endpoint: ep}
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	if c.config.Redis != nil {
		return c.config.Redis.Close()
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Throttle returns the request throttle.
func (c *Client) Throttle() *ratelimit.Throttle {
	return c.throttle
}

// EndpointPages fetches pages of a single endpoint.
type EndpointPages struct {
	client   *Client
	endpoint Endpoint
}

// FetchPage requests one page of the bound endpoint.
func (p *EndpointPages) FetchPage(ctx context.Context, params url.Values, page int) (*PageEnvelope, error) {
	return p.client.FetchPage(ctx, p.endpoint, params, page)
}

// Endpoint returns the bound endpoint.
func (p *EndpointPages) Endpoint() Endpoint {
	return p.endpoint
}
