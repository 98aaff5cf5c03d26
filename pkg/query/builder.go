// Package query builds fetch specifications for the Riksdagen search
// endpoints.
//
// A Builder accumulates upstream parameters through a fluent API and hands
// the result to a Runner (normally a *pagination.Fetcher) when Get is
// called. Friendly filter names are resolved through a Schema, so the
// builder itself knows nothing about individual endpoints.
package query

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/riksdag-client/pkg/models"
	"github.com/Sternrassler/riksdag-client/pkg/pagination"
)

// Upstream parameter keys used by the convenience methods.
const (
	ParamQuery     = "sok"
	ParamDocType   = "doktyp"
	ParamFrom      = "from"
	ParamTo        = "tom"
	ParamSession   = "rm"
	ParamSort      = "sort"
	ParamSortOrder = "sortorder"
)

// Runner starts a fetch for a spec.
type Runner interface {
	Iterate(ctx context.Context, spec pagination.Spec) *pagination.Iterator
}

// UnknownFilterError is recorded when Filter gets a name the schema does not
// know.
type UnknownFilterError struct {
	Endpoint string
	Name     string
}

// Error implements the error interface.
func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q for %s", e.Name, e.Endpoint)
}

// Builder accumulates a fetch specification. Methods mutate and return the
// receiver; use Clone to branch.
type Builder struct {
	schema *Schema
	runner Runner
	spec   pagination.Spec
	errs   []error
}

// NewBuilder creates a builder for the endpoint described by schema.
func NewBuilder(schema *Schema, runner Runner) *Builder {
	b := &Builder{
		schema: schema,
		runner: runner,
		spec:   pagination.Spec{Params: url.Values{}},
	}
	if schema != nil {
		b.spec.Kind = schema.Kind
	}
	return b
}

// Filter sets a parameter by its friendly name.
func (b *Builder) Filter(name string, value any) *Builder {
	if b.schema == nil {
		b.errs = append(b.errs, &UnknownFilterError{Name: name})
		return b
	}
	key, ok := b.schema.Resolve(name)
	if !ok {
		b.errs = append(b.errs, &UnknownFilterError{Endpoint: b.schema.Endpoint, Name: name})
		return b
	}
	return b.Param(key, value)
}

// Param sets a raw upstream parameter. An empty or nil value removes it.
func (b *Builder) Param(key string, value any) *Builder {
	s := formatValue(value)
	if s == "" {
		b.spec.Params.Del(key)
		return b
	}
	b.spec.Params.Set(key, s)
	return b
}

// Query sets the free text search.
func (b *Builder) Query(text string) *Builder {
	return b.Param(ParamQuery, text)
}

// Kind filters on the upstream document type, e.g. "mot" or "bet".
func (b *Builder) Kind(docType string) *Builder {
	return b.Param(ParamDocType, docType)
}

// Motions restricts the search to motions matching text.
func (b *Builder) Motions(text string) *Builder {
	return b.Kind(models.KindMotion).Query(text)
}

// Between sets both date bounds (ISO dates, not validated).
func (b *Builder) Between(start, end string) *Builder {
	return b.From(start).To(end)
}

// From sets the lower date bound.
func (b *Builder) From(date string) *Builder {
	return b.Param(ParamFrom, date)
}

// To sets the upper date bound.
func (b *Builder) To(date string) *Builder {
	return b.Param(ParamTo, date)
}

// Session filters on parliamentary session, e.g. "2021/22".
func (b *Builder) Session(rm string) *Builder {
	return b.Param(ParamSession, rm)
}

// Sort sets the sort field and order ("asc" or "desc").
func (b *Builder) Sort(by, order string) *Builder {
	return b.Param(ParamSort, by).Param(ParamSortOrder, order)
}

// Limit caps the number of entities. 0 clears it.
func (b *Builder) Limit(n int) *Builder {
	b.spec.Limit = n
	return b
}

// ParseAs forces one parser kind for every hit.
func (b *Builder) ParseAs(kind string) *Builder {
	b.spec.Kind = kind
	return b
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	return &Builder{
		schema: b.schema,
		runner: b.runner,
		spec:   b.spec.Clone(),
		errs:   append([]error(nil), b.errs...),
	}
}

// Spec returns a copy of the accumulated specification.
func (b *Builder) Spec() pagination.Spec {
	return b.spec.Clone()
}

// Err returns the errors recorded while building, if any.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Get starts the fetch. Later changes to the builder do not affect it.
func (b *Builder) Get(ctx context.Context) *pagination.Iterator {
	if err := b.Err(); err != nil {
		return pagination.Failed(err)
	}
	if b.runner == nil {
		return pagination.Failed(errors.New("query: builder has no runner"))
	}
	return b.runner.Iterate(ctx, b.spec.Clone())
}

// Collect runs the fetch and returns every entity.
func (b *Builder) Collect(ctx context.Context) ([]models.Entity, error) {
	return b.Get(ctx).Collect()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return fmt.Sprint(x)
	}
}
