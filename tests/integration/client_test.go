//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/riksdag-client/internal/testutil"
	"github.com/Sternrassler/riksdag-client/pkg/client"
	"github.com/Sternrassler/riksdag-client/pkg/riksdag"
)

// setupRedis starts a Redis container and returns its URL.
func setupRedis(t *testing.T) (string, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cleanup := func() {
		container.Terminate(ctx)
	}

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port()), cleanup
}

// newAPI builds an API against the fake server with the page cache at
// redisURL.
func newAPI(t *testing.T, fake *testutil.FakeRiksdag, redisURL string) *riksdag.API {
	t.Helper()

	cfg := riksdag.DefaultConfig()
	cfg.BaseURL = fake.URL()
	cfg.RedisURL = redisURL
	cfg.RequestsPerSecond = 0
	cfg.RetryBackoff = 10 * time.Millisecond

	api, err := riksdag.New(cfg, riksdag.WithHTTPClient(&http.Client{
		Timeout:   10 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { api.Close() })
	return api
}

// TestFullFetchFlow tests the complete flow: Throttle → Cache → API → Cache Update.
func TestFullFetchFlow(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetDocuments(testutil.MotionHits("H9", 45), 20)

	api := newAPI(t, fake, redisURL)
	ctx := context.Background()

	first, err := api.Documents().Motions("klimat").Collect(ctx)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if len(first) != 45 {
		t.Fatalf("First fetch = %d entities, want 45", len(first))
	}
	if got := fake.RequestCount(); got != 3 {
		t.Errorf("Upstream requests = %d, want 3", got)
	}

	// Second run - every page from the cache
	second, err := api.Documents().Motions("klimat").Collect(ctx)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}
	if got := fake.RequestCount(); got != 3 {
		t.Errorf("Upstream requests after cached run = %d, want 3", got)
	}
	for i := range first {
		if first[i].ID() != second[i].ID() {
			t.Fatalf("entity %d: %s != %s", i, first[i].ID(), second[i].ID())
		}
	}

	// Different parameters are a different key
	if _, err := api.Documents().Motions("skatt").Limit(1).Collect(ctx); err != nil {
		t.Fatalf("Third fetch failed: %v", err)
	}
	if got := fake.RequestCount(); got != 4 {
		t.Errorf("Upstream requests after new query = %d, want 4", got)
	}
}

// TestCacheExpiration tests that pages are refetched once Expires passes.
func TestCacheExpiration(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	fake := testutil.NewFakeRiksdag()
	defer fake.Close()

	body, err := json.Marshal(map[string]any{
		"dokumentlista": map[string]any{
			"@sidor":   "1",
			"@sida":    "1",
			"@traffar": "1",
			"dokument": testutil.MotionHits("H9", 1),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	fake.SetHandler("dokumentlista", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Expires", time.Now().Add(2*time.Second).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})

	api := newAPI(t, fake, redisURL)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := api.Documents().Collect(ctx); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}
	if got := fake.RequestCount(); got != 1 {
		t.Errorf("Upstream requests before expiry = %d, want 1", got)
	}

	time.Sleep(3 * time.Second)

	if _, err := api.Documents().Collect(ctx); err != nil {
		t.Fatalf("Fetch after expiry failed: %v", err)
	}
	if got := fake.RequestCount(); got != 2 {
		t.Errorf("Upstream requests after expiry = %d, want 2", got)
	}
}

// TestRetryThenCache tests that a page recovered by retries is cached like
// any other.
func TestRetryThenCache(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetDocuments(testutil.MotionHits("H9", 10), 20)
	fake.DropConnections(1, 3)

	api := newAPI(t, fake, redisURL)
	ctx := context.Background()

	entities, err := api.Documents().Collect(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(entities) != 10 {
		t.Errorf("Entities = %d, want 10", len(entities))
	}
	if got := fake.RequestCount(); got != 4 {
		t.Errorf("Upstream requests = %d, want 4 (3 drops + 1)", got)
	}

	if _, err := api.Documents().Collect(ctx); err != nil {
		t.Fatalf("Cached fetch failed: %v", err)
	}
	if got := fake.RequestCount(); got != 4 {
		t.Errorf("Upstream requests after cached run = %d, want 4", got)
	}
}

// TestErrorsNotCached tests that failed pages never reach the cache.
func TestErrorsNotCached(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetResponse("personlista", testutil.NewServerErrorResponse())

	api := newAPI(t, fake, redisURL)
	ctx := context.Background()

	_, err := api.Persons().Collect(ctx)
	var transportErr *client.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *client.TransportError from a 500 response, got %v", err)
	}
	if got := fake.RequestCount(); got != 1 {
		t.Errorf("Upstream requests = %d, want 1 (5xx is not retried)", got)
	}

	fake.SetHandler("personlista", nil)
	fake.SetPersons(testutil.PersonHits(3), 20)
	fake.Reset()

	people, err := api.Persons().Collect(ctx)
	if err != nil {
		t.Fatalf("Fetch after recovery failed: %v", err)
	}
	if len(people) != 3 {
		t.Errorf("People = %d, want 3", len(people))
	}
	if got := fake.RequestCount(); got != 1 {
		t.Errorf("Upstream requests after recovery = %d, want 1", got)
	}
}

// TestRedisUnavailable tests that a dead cache never fails a fetch.
func TestRedisUnavailable(t *testing.T) {
	fake := testutil.NewFakeRiksdag()
	defer fake.Close()
	fake.SetVotes(testutil.VoteHits("6F2B", 5), 20)

	api := newAPI(t, fake, "redis://127.0.0.1:1/0")

	votes, err := api.Votes().Collect(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(votes) != 5 {
		t.Errorf("Votes = %d, want 5", len(votes))
	}
}
