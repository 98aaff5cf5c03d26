package client

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/Sternrassler/riksdag-client/pkg/models"
)

// Pagination metadata keys of the content container.
const (
	metaTotalPages = "@sidor"
	metaPage       = "@sida"
	metaTotalHits  = "@traffar"
)

// Fallback hit-count keys used by the member and vote lists.
var metaHitCountFallbacks = []string{"@hitcount", "@antal"}

// PageEnvelope is one page of search results.
type PageEnvelope struct {
	// TotalPages is "@sidor", 0 when the response does not say.
	TotalPages int

	// Page is "@sida", 0 when the response does not say.
	Page int

	// TotalHits is "@traffar" (or the list's own count field), 0 when absent.
	TotalHits int

	// Hits are the raw result rows in upstream order.
	Hits []models.RawHit
}

// decodeEnvelope parses a response body into a page envelope.
func decodeEnvelope(ep Endpoint, status int, body []byte) (*PageEnvelope, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		e := malformed(ep.Path, status, "invalid JSON body")
		e.Err = errors.Join(ErrMalformedResponse, err)
		return nil, e
	}

	raw, ok := doc[ep.ContentName]
	if !ok {
		return nil, malformed(ep.Path, status, "missing content container %q", ep.ContentName)
	}

	var content map[string]any
	if err := json.Unmarshal(raw, &content); err != nil {
		e := malformed(ep.Path, status, "content container %q is not an object", ep.ContentName)
		e.Err = errors.Join(ErrMalformedResponse, err)
		return nil, e
	}
	if content == nil {
		// An explicit null container carries no hits.
		return &PageEnvelope{}, nil
	}

	env := &PageEnvelope{}
	var err error
	if env.TotalPages, err = intMeta(content, metaTotalPages); err != nil {
		return nil, malformed(ep.Path, status, "%s: %v", metaTotalPages, err)
	}
	if env.Page, err = intMeta(content, metaPage); err != nil {
		return nil, malformed(ep.Path, status, "%s: %v", metaPage, err)
	}
	if env.TotalHits, err = intMeta(content, metaTotalHits); err != nil {
		return nil, malformed(ep.Path, status, "%s: %v", metaTotalHits, err)
	}
	for _, key := range metaHitCountFallbacks {
		if env.TotalHits != 0 {
			break
		}
		if env.TotalHits, err = intMeta(content, key); err != nil {
			return nil, malformed(ep.Path, status, "%s: %v", key, err)
		}
	}

	switch hits := content[ep.HitsName].(type) {
	case nil:
	case []any:
		env.Hits = make([]models.RawHit, 0, len(hits))
		for i, h := range hits {
			m, ok := h.(map[string]any)
			if !ok {
				return nil, malformed(ep.Path, status, "hit %d of %q is not an object", i, ep.HitsName)
			}
			env.Hits = append(env.Hits, models.RawHit(m))
		}
	case map[string]any:
		// A single hit is sent as a bare object.
		env.Hits = []models.RawHit{models.RawHit(hits)}
	default:
		return nil, malformed(ep.Path, status, "hits %q is neither a list nor an object", ep.HitsName)
	}

	return env, nil
}

// intMeta reads a metadata counter that the API sends either as a numeric
// string or as a number. Absent or empty yields 0.
func intMeta(content map[string]any, key string) (int, error) {
	switch v := content[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	default:
		return 0, strconv.ErrSyntax
	}
}
