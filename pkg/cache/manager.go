package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned by Get when no fresh page is stored.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned by Get for a stored page it cannot decode.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Hash fields of a stored page.
const (
	fieldBody     = "body"
	fieldStatus   = "status"
	fieldStoredAt = "stored_at"
	fieldExpires  = "expires"
)

// Manager stores pages in Redis. Each page is a hash that Redis expires at
// the page's own expiry.
type Manager struct {
	redis redis.UniversalClient
}

// NewManager returns a manager over rdb. It panics when rdb is nil.
func NewManager(rdb redis.UniversalClient) *Manager {
	if rdb == nil {
		panic("cache: redis client cannot be nil")
	}
	return &Manager{redis: rdb}
}

// Get returns the fresh page stored under key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key Key) (*Page, error) {
	fields, err := m.redis.HGetAll(ctx, key.String()).Result()
	if err != nil {
		cacheErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		cacheMissesTotal.Inc()
		return nil, ErrCacheMiss
	}

	page, err := decodePage(fields)
	if err != nil {
		cacheErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis expiry has millisecond resolution and may lag behind
	if page.IsExpired() {
		cacheMissesTotal.Inc()
		return nil, ErrCacheMiss
	}

	cacheHitsTotal.Inc()
	return page, nil
}

// Set stores page under key until page.Expires. Stale pages are skipped.
func (m *Manager) Set(ctx context.Context, key Key, page *Page) error {
	if page == nil {
		return errors.New("cache: page cannot be nil")
	}
	if page.IsExpired() {
		return nil
	}

	k := key.String()
	_, err := m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k,
			fieldBody, page.Body,
			fieldStatus, page.Status,
			fieldStoredAt, page.StoredAt.UnixMilli(),
			fieldExpires, page.Expires.UnixMilli(),
		)
		pipe.PExpireAt(ctx, k, page.Expires)
		return nil
	})
	if err != nil {
		cacheErrorsTotal.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set page: %w", err)
	}

	cacheBytesTotal.Add(float64(len(page.Body)))
	return nil
}

// Delete removes the page stored under key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		cacheErrorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func decodePage(fields map[string]string) (*Page, error) {
	body, ok := fields[fieldBody]
	if !ok {
		return nil, fmt.Errorf("missing %s", fieldBody)
	}
	status, err := strconv.Atoi(fields[fieldStatus])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fieldStatus, err)
	}
	storedAt, err := strconv.ParseInt(fields[fieldStoredAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fieldStoredAt, err)
	}
	expires, err := strconv.ParseInt(fields[fieldExpires], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fieldExpires, err)
	}
	return &Page{
		Body:     []byte(body),
		Status:   status,
		StoredAt: time.UnixMilli(storedAt),
		Expires:  time.UnixMilli(expires),
	}, nil
}
