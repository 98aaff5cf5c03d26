// Package parser turns raw Riksdagen hits into domain entities.
//
// A Registry maps a document kind (the hit's "doktyp", or "person" and
// "votering" for the member and vote lists) to a parser factory. Build one
// with NewDefaultRegistry, optionally Register your own kinds, and only then
// start fetching.
package parser

import (
	"sort"

	"github.com/Sternrassler/riksdag-client/pkg/models"
)

// Parser converts one raw hit into an entity.
type Parser interface {
	Parse(hit models.RawHit) (models.Entity, error)
}

// Factory creates a parser instance.
type Factory func() Parser

// Registry maps document kinds to parser factories.
//
// Registry is not safe for concurrent use while registering. Populate it
// completely before the first fetch starts; after that it is only read and
// may be shared by concurrent fetches.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry creates a registry holding the built-in parsers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// Only possible on a registry that already holds the built-in kinds.
		panic(err)
	}
	return r
}

// RegisterBuiltins registers the base, person, motion and vote parsers.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		kind    string
		factory Factory
	}{
		{models.KindBase, func() Parser { return DocumentParser{} }},
		{models.KindPerson, func() Parser { return PersonParser{} }},
		{models.KindMotion, func() Parser { return MotionParser{} }},
		{models.KindVote, func() Parser { return VoteParser{} }},
	}
	for _, b := range builtins {
		if err := r.Register(b.kind, b.factory); err != nil {
			return err
		}
	}
	return nil
}

// Register adds a parser factory for kind.
func (r *Registry) Register(kind string, f Factory) error {
	if _, exists := r.factories[kind]; exists {
		return &DuplicateParserError{Kind: kind}
	}
	r.factories[kind] = f
	return nil
}

// Create returns a new parser for kind.
func (r *Registry) Create(kind string) (Parser, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, &UnknownParserKindError{Kind: kind}
	}
	return f(), nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// KindOf returns the document kind declared by a hit: its "doktyp" field,
// or "base" when that is absent or empty.
func KindOf(hit models.RawHit) string {
	if k := stringField(hit, "doktyp"); k != "" {
		return k
	}
	return models.KindBase
}
