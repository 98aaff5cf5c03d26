package query

import (
	"embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Built-in schema names.
const (
	SchemaDocuments = "documents"
	SchemaPersons   = "persons"
	SchemaVotes     = "votes"
)

// Schema maps friendly filter names to the upstream parameters of one
// endpoint.
type Schema struct {
	// Endpoint is the upstream path, e.g. "dokumentlista"
	Endpoint string `yaml:"endpoint"`

	// Kind, when set, forces a parser for every hit of this endpoint
	Kind string `yaml:"kind"`

	// Filters maps friendly names to upstream parameter keys
	Filters map[string]string `yaml:"filters"`
}

// LoadSchema decodes a YAML schema.
func LoadSchema(r io.Reader) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if s.Endpoint == "" {
		return nil, fmt.Errorf("schema: endpoint is required")
	}
	for name, key := range s.Filters {
		if key == "" {
			return nil, fmt.Errorf("schema %s: filter %q has no upstream parameter", s.Endpoint, name)
		}
	}
	return &s, nil
}

// BuiltinSchema loads one of the embedded schemas by name.
func BuiltinSchema(name string) (*Schema, error) {
	f, err := schemaFS.Open("schemas/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	defer f.Close()
	return LoadSchema(f)
}

// MustBuiltinSchema is BuiltinSchema for the names shipped with this
// package; it panics on error.
func MustBuiltinSchema(name string) *Schema {
	s, err := BuiltinSchema(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Resolve returns the upstream parameter for a filter name. Upstream keys
// themselves are accepted as well.
func (s *Schema) Resolve(name string) (string, bool) {
	if key, ok := s.Filters[name]; ok {
		return key, true
	}
	for _, key := range s.Filters {
		if key == name {
			return key, true
		}
	}
	return "", false
}

// Names returns the friendly filter names, sorted.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Filters))
	for name := range s.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
