package models

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Document is the generic fallback entity: every raw attribute of the hit,
// accessible by name.
type Document struct {
	DocID string
	Attrs map[string]any
}

// ID implements Entity.
func (d *Document) ID() string { return d.DocID }

// Kind implements Entity.
func (d *Document) Kind() string { return KindBase }

// Get returns the raw attribute stored under key.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.Attrs[key]
	return v, ok
}

// String returns the attribute under key formatted as a string, or "" when
// absent or null.
func (d *Document) String(key string) string {
	v, ok := d.Attrs[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Person is a member of parliament or other stakeholder ("intressent").
type Person struct {
	PersonID string
	Name     string
	Party    string
}

// ID implements Entity.
func (p *Person) ID() string { return p.PersonID }

// Kind implements Entity.
func (p *Person) Kind() string { return KindPerson }

func (p *Person) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Party)
}

// Motion is a member's motion ("motion", document type mot).
type Motion struct {
	MotionID    string
	DocID       string
	Date        time.Time
	Title       string
	Subtitle    string
	Summary     string
	DocumentURL string
	Authors     []Person
}

// ID implements Entity.
func (m *Motion) ID() string { return m.MotionID }

// Kind implements Entity.
func (m *Motion) Kind() string { return KindMotion }

func (m *Motion) String() string {
	return "Motion: " + m.Title
}

// AuthorNames returns the author display names in order.
func (m *Motion) AuthorNames() []string {
	names := make([]string, 0, len(m.Authors))
	for _, a := range m.Authors {
		names = append(names, a.Name)
	}
	return names
}

// Vote is one member's vote in a roll call ("votering").
type Vote struct {
	VoteID       string
	PersonID     string
	Name         string
	Party        string
	Constituency string
	Choice       string
	Session      string
	Designation  string
	Point        string
}

// ID implements Entity. A roll call is identified by VoteID; each member's
// row within it additionally by PersonID.
func (v *Vote) ID() string { return v.VoteID + "/" + v.PersonID }

// Kind implements Entity.
func (v *Vote) Kind() string { return KindVote }

// ToMap returns a flat, export-friendly view of an entity.
func ToMap(e Entity) map[string]any {
	switch v := e.(type) {
	case *Motion:
		authors := make([]map[string]any, 0, len(v.Authors))
		for _, a := range v.Authors {
			authors = append(authors, map[string]any{"name": a.Name, "party": a.Party})
		}
		return map[string]any{
			"kind":         v.Kind(),
			"id":           v.MotionID,
			"doc_id":       v.DocID,
			"date":         v.Date.Format(time.DateOnly),
			"title":        v.Title,
			"subtitle":     v.Subtitle,
			"summary":      v.Summary,
			"document_url": v.DocumentURL,
			"authors":      authors,
		}
	case *Person:
		return map[string]any{
			"kind":  v.Kind(),
			"id":    v.PersonID,
			"name":  v.Name,
			"party": v.Party,
		}
	case *Vote:
		return map[string]any{
			"kind":         v.Kind(),
			"id":           v.ID(),
			"vote_id":      v.VoteID,
			"person_id":    v.PersonID,
			"name":         v.Name,
			"party":        v.Party,
			"constituency": v.Constituency,
			"choice":       v.Choice,
			"session":      v.Session,
			"designation":  v.Designation,
			"point":        v.Point,
		}
	case *Document:
		m := maps.Clone(v.Attrs)
		if m == nil {
			m = make(map[string]any)
		}
		m["kind"] = v.Kind()
		m["id"] = v.DocID
		return m
	case nil:
		return nil
	default:
		return map[string]any{
			"kind": strings.TrimSpace(e.Kind()),
			"id":   e.ID(),
		}
	}
}
