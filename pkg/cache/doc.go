// Package cache keeps recently fetched search pages in Redis.
//
// A search page is deterministic for a fixed query, so one fetched a moment
// ago can be reused instead of asking the API again. Every page expires:
// freshness comes from the response Cache-Control max-age or Expires header,
// falling back to a configured TTL. Each page is stored as a Redis hash
// (body, status, stored_at, expires) that Redis deletes at expiry.
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	pages := cache.NewManager(rdb)
//
//	key := cache.NewKey("dokumentlista", url.Values{"sok": {"klimat"}, "p": {"2"}})
//	page, err := pages.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then
//		page = cache.FromResponse(resp.StatusCode, resp.Header, body, cache.DefaultTTL)
//		_ = pages.Set(ctx, key, page)
//	}
//
// Metrics: riksdag_cache_hits_total, riksdag_cache_misses_total,
// riksdag_cache_size_bytes and riksdag_cache_errors_total{operation}.
package cache
