// Package testutil provides a fake Riksdagen open data server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Fixture is the complete result set served by one search endpoint.
type Fixture struct {
	// ContentName and HitsName shape the JSON envelope
	ContentName string
	HitsName    string

	// Hits are split into pages of PageSize (default 20)
	Hits     []map[string]any
	PageSize int

	// OmitPageCount drops "@sidor" from every page
	OmitPageCount bool
}

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Request records one request received by the fake.
type Request struct {
	Path  string
	Query url.Values
	Page  int
}

// FakeRiksdag is a configurable fake of the search endpoints.
type FakeRiksdag struct {
	server   *httptest.Server
	mu       sync.RWMutex
	fixtures map[string]Fixture
	handlers map[string]http.HandlerFunc
	drops    map[int]int
	requests []Request
}

// NewFakeRiksdag starts a fake server. Call Close when done.
func NewFakeRiksdag() *FakeRiksdag {
	f := &FakeRiksdag{
		fixtures: make(map[string]Fixture),
		handlers: make(map[string]http.HandlerFunc),
		drops:    make(map[int]int),
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p, err := strconv.Atoi(r.URL.Query().Get("p")); err == nil {
			page = p
		}
		path := strings.Trim(r.URL.Path, "/")

		f.mu.Lock()
		f.requests = append(f.requests, Request{Path: path, Query: r.URL.Query(), Page: page})
		drop := f.drops[page] > 0
		if drop {
			f.drops[page]--
		}
		handler, hasHandler := f.handlers[path]
		fixture, hasFixture := f.fixtures[path]
		f.mu.Unlock()

		if drop {
			dropConnection(w)
			return
		}
		if hasHandler {
			handler(w, r)
			return
		}
		if hasFixture {
			f.servePage(w, fixture, page)
			return
		}
		http.NotFound(w, r)
	}))

	return f
}

// URL returns the server URL, usable as the client base URL.
func (f *FakeRiksdag) URL() string {
	return f.server.URL
}

// Close shuts down the server.
func (f *FakeRiksdag) Close() {
	f.server.Close()
}

// Reset forgets recorded requests and pending connection drops.
func (f *FakeRiksdag) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
	f.drops = make(map[int]int)
}

// SetFixture serves fixture at path, e.g. "dokumentlista".
func (f *FakeRiksdag) SetFixture(path string, fixture Fixture) {
	if fixture.PageSize <= 0 {
		fixture.PageSize = 20
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixtures[strings.Trim(path, "/")] = fixture
}

// SetDocuments serves hits from the document search.
func (f *FakeRiksdag) SetDocuments(hits []map[string]any, pageSize int) {
	f.SetFixture("dokumentlista", Fixture{ContentName: "dokumentlista", HitsName: "dokument", Hits: hits, PageSize: pageSize})
}

// SetPersons serves hits from the member list.
func (f *FakeRiksdag) SetPersons(hits []map[string]any, pageSize int) {
	f.SetFixture("personlista", Fixture{ContentName: "personlista", HitsName: "person", Hits: hits, PageSize: pageSize})
}

// SetVotes serves hits from the vote list.
func (f *FakeRiksdag) SetVotes(hits []map[string]any, pageSize int) {
	f.SetFixture("voteringlista", Fixture{ContentName: "voteringlista", HitsName: "votering", Hits: hits, PageSize: pageSize})
}

// SetHandler sets a custom handler for a path. It takes precedence over a
// fixture. A nil handler removes it.
func (f *FakeRiksdag) SetHandler(path string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if handler == nil {
		delete(f.handlers, strings.Trim(path, "/"))
		return
	}
	f.handlers[strings.Trim(path, "/")] = handler
}

// SetResponse configures a canned response for a path.
func (f *FakeRiksdag) SetResponse(path string, resp MockResponse) {
	f.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// DropConnections makes the next n requests for page close the connection
// without a response.
func (f *FakeRiksdag) DropConnections(page, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops[page] += n
}

// Requests returns every request received so far.
func (f *FakeRiksdag) Requests() []Request {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Request(nil), f.requests...)
}

// RequestCount returns the number of requests received.
func (f *FakeRiksdag) RequestCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.requests)
}

// PagesRequested returns the page numbers requested at path, in order.
func (f *FakeRiksdag) PagesRequested(path string) []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var pages []int
	for _, r := range f.requests {
		if r.Path == strings.Trim(path, "/") {
			pages = append(pages, r.Page)
		}
	}
	return pages
}

func (f *FakeRiksdag) servePage(w http.ResponseWriter, fx Fixture, page int) {
	total := (len(fx.Hits) + fx.PageSize - 1) / fx.PageSize

	var hits []map[string]any
	if page >= 1 && page <= total {
		start := (page - 1) * fx.PageSize
		end := min(start+fx.PageSize, len(fx.Hits))
		hits = fx.Hits[start:end]
	}
	if hits == nil {
		hits = []map[string]any{}
	}

	content := map[string]any{
		"@sida":     strconv.Itoa(page),
		"@traffar":  strconv.Itoa(len(fx.Hits)),
		fx.HitsName: hits,
	}
	if !fx.OmitPageCount {
		content["@sidor"] = strconv.Itoa(total)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{fx.ContentName: content})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("testutil: response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(fmt.Sprintf("testutil: hijack: %v", err))
	}
	conn.Close()
}

// MotionHits builds n motion hits with ids "<prefix>1".."<prefix>n", each
// signed by one author.
func MotionHits(prefix string, n int) []map[string]any {
	hits := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		hits = append(hits, map[string]any{
			"id":                id,
			"dok_id":            id,
			"doktyp":            "mot",
			"datum":             "2022-03-15",
			"titel":             "Motion " + id,
			"undertitel":        "av Anna Andersson (S)",
			"dokument_url_text": "//data.riksdagen.se/dokument/" + id + ".text",
			"dokintressent": map[string]any{
				"intressent": []any{
					map[string]any{"intressent_id": "0123", "namn": "Anna Andersson", "partibet": "S", "roll": "undertecknare"},
				},
			},
		})
	}
	return hits
}

// PersonHits builds n member list records.
func PersonHits(n int) []map[string]any {
	hits := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		hits = append(hits, map[string]any{
			"intressent_id": fmt.Sprintf("%04d", i),
			"tilltalsnamn":  "Ledamot",
			"efternamn":     strconv.Itoa(i),
			"parti":         "S",
			"valkrets":      "Stockholms kommun",
		})
	}
	return hits
}

// VoteHits builds n vote records on one point.
func VoteHits(voteID string, n int) []map[string]any {
	hits := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		hits = append(hits, map[string]any{
			"votering_id":   voteID,
			"intressent_id": fmt.Sprintf("%04d", i),
			"namn":          fmt.Sprintf("Ledamot %d", i),
			"parti":         "M",
			"valkrets":      "Skåne läns västra",
			"rost":          "Ja",
			"rm":            "2021/22",
			"beteckning":    "MJU12",
			"punkt":         "1",
		})
	}
	return hits
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "Internal server error",
		Headers:    map[string]string{"Content-Type": "text/plain"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": strconv.Itoa(int(retryAfter.Seconds()))},
	}
}
