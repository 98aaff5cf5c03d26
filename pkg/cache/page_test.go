package cache

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPage_ExpiredAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &Page{Expires: now}

	assert.False(t, p.ExpiredAt(now.Add(-time.Millisecond)))
	assert.True(t, p.ExpiredAt(now))
	assert.True(t, p.ExpiredAt(now.Add(time.Hour)))
}

func TestPage_TTL(t *testing.T) {
	fresh := &Page{Expires: time.Now().Add(time.Minute)}
	assert.InDelta(t, time.Minute.Seconds(), fresh.TTL().Seconds(), 1)

	stale := &Page{Expires: time.Now().Add(-time.Minute)}
	assert.Zero(t, stale.TTL())
	assert.True(t, stale.IsExpired())
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fallback := 5 * time.Minute

	tests := []struct {
		name   string
		header http.Header
		want   time.Time
	}{
		{
			name:   "no headers",
			header: http.Header{},
			want:   now.Add(fallback),
		},
		{
			name:   "max-age",
			header: http.Header{"Cache-Control": {"public, max-age=60"}},
			want:   now.Add(time.Minute),
		},
		{
			name: "max-age wins over expires",
			header: http.Header{
				"Cache-Control": {"max-age=30"},
				"Expires":       {now.Add(time.Hour).Format(http.TimeFormat)},
			},
			want: now.Add(30 * time.Second),
		},
		{
			name:   "no-store",
			header: http.Header{"Cache-Control": {"no-store"}},
			want:   now,
		},
		{
			name:   "bad max-age falls through to expires",
			header: http.Header{"Cache-Control": {"max-age=soon"}, "Expires": {now.Add(time.Hour).Format(http.TimeFormat)}},
			want:   now.Add(time.Hour),
		},
		{
			name:   "expires in the future",
			header: http.Header{"Expires": {now.Add(2 * time.Hour).Format(http.TimeFormat)}},
			want:   now.Add(2 * time.Hour),
		},
		{
			name:   "expires in the past",
			header: http.Header{"Expires": {now.Add(-time.Hour).Format(http.TimeFormat)}},
			want:   now,
		},
		{
			name:   "unparseable expires",
			header: http.Header{"Expires": {"0"}},
			want:   now.Add(fallback),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expiresAt(tt.header, now, fallback)
			assert.True(t, tt.want.Equal(got), "expiresAt() = %v, want %v", got, tt.want)
		})
	}
}

func TestFromResponse(t *testing.T) {
	body := []byte(`{"personlista": {}}`)

	p := FromResponse(http.StatusOK, http.Header{}, body, 0)

	assert.Equal(t, body, p.Body)
	assert.Equal(t, http.StatusOK, p.Status)
	assert.WithinDuration(t, time.Now(), p.StoredAt, time.Second)
	assert.WithinDuration(t, p.StoredAt.Add(DefaultTTL), p.Expires, time.Millisecond)
}
