// Package models defines the domain entities produced by parsing Riksdagen
// search hits.
//
// Entities compare by identity: two entities are equal when their ID strings
// are equal, regardless of any other attribute. Use Equal and Key instead of
// == or reflect.DeepEqual when comparing or indexing entities.
package models

// Kinds of the built-in entities.
const (
	KindBase   = "base"
	KindPerson = "person"
	KindMotion = "mot"
	KindVote   = "votering"
)

// Entity is anything with a stable identity string.
type Entity interface {
	// ID returns the identity of the entity.
	ID() string

	// Kind returns the document kind the entity was parsed as.
	Kind() string
}

// Equal reports whether a and b have the same identity.
func Equal(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}

// Key returns the hash key of an entity, which is its ID.
func Key(e Entity) string {
	if e == nil {
		return ""
	}
	return e.ID()
}

// Dedupe returns entities with duplicates (by identity) removed, keeping the
// first occurrence and the original order.
func Dedupe[E Entity](entities []E) []E {
	seen := make(map[string]struct{}, len(entities))
	out := make([]E, 0, len(entities))
	for _, e := range entities {
		k := Key(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// RawHit is one result row exactly as decoded from the upstream JSON.
type RawHit map[string]any
