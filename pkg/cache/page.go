package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL applies when a response carries no usable freshness headers.
const DefaultTTL = 5 * time.Minute

// Page is one cached search page: the raw body as received and when it stops
// being fresh.
type Page struct {
	Body     []byte
	Status   int
	StoredAt time.Time
	Expires  time.Time
}

// ExpiredAt reports whether the page is stale at now.
func (p *Page) ExpiredAt(now time.Time) bool {
	return !now.Before(p.Expires)
}

// IsExpired reports whether the page is stale now.
func (p *Page) IsExpired() bool {
	return p.ExpiredAt(time.Now())
}

// TTL is the remaining freshness, never negative.
func (p *Page) TTL() time.Duration {
	return max(time.Until(p.Expires), 0)
}

// Age is the time since the page was stored.
func (p *Page) Age() time.Duration {
	return time.Since(p.StoredAt)
}

// FromResponse builds a page from a response status, its headers and the
// already read body. Freshness comes from Cache-Control max-age, then
// Expires, then fallback (DefaultTTL when <= 0).
func FromResponse(status int, header http.Header, body []byte, fallback time.Duration) *Page {
	if fallback <= 0 {
		fallback = DefaultTTL
	}
	now := time.Now()
	return &Page{
		Body:     body,
		Status:   status,
		StoredAt: now,
		Expires:  expiresAt(header, now, fallback),
	}
}

// expiresAt derives the expiry of a response received at now. A response
// marked no-store or already stale expires immediately.
func expiresAt(header http.Header, now time.Time, fallback time.Duration) time.Time {
	if cc := header.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			name, value, _ := strings.Cut(strings.TrimSpace(directive), "=")
			switch strings.ToLower(name) {
			case "no-store", "no-cache":
				return now
			case "max-age":
				if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
					return now.Add(time.Duration(secs) * time.Second)
				}
			}
		}
	}

	if raw := header.Get("Expires"); raw != "" {
		t, err := http.ParseTime(raw)
		if err != nil {
			return now.Add(fallback)
		}
		if t.Before(now) {
			return now
		}
		return t
	}

	return now.Add(fallback)
}
