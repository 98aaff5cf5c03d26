package parser

import (
	"errors"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/riksdag-client/pkg/models"
)

// DateLayout is the only accepted format of the "datum" field.
const DateLayout = "2006-01-02"

// documentURLSuffix is stripped from "dokument_url_text" to get the base
// document URL.
const documentURLSuffix = ".text"

var errMissing = errors.New("missing")

// DocumentParser copies every attribute of a hit into a models.Document
// without validation.
type DocumentParser struct{}

// Parse implements Parser.
func (DocumentParser) Parse(hit models.RawHit) (models.Entity, error) {
	id := stringField(hit, "id")
	if id == "" {
		id = stringField(hit, "dok_id")
	}
	return &models.Document{
		DocID: id,
		Attrs: maps.Clone(map[string]any(hit)),
	}, nil
}

// PersonParser reads a member record. Missing fields are left empty.
type PersonParser struct{}

// Parse implements Parser.
func (p PersonParser) Parse(hit models.RawHit) (models.Entity, error) {
	person := p.parse(hit)
	return &person, nil
}

func (PersonParser) parse(hit models.RawHit) models.Person {
	name := stringField(hit, "namn")
	if name == "" {
		// personlista spells the name out in two fields
		name = strings.TrimSpace(stringField(hit, "tilltalsnamn") + " " + stringField(hit, "efternamn"))
	}
	party := stringField(hit, "partibet")
	if party == "" {
		party = stringField(hit, "parti")
	}
	return models.Person{
		PersonID: stringField(hit, "intressent_id"),
		Name:     name,
		Party:    party,
	}
}

// MotionParser reads a motion hit (doktyp "mot").
//
// A hit without "dokument_url_text" still parses; its DocumentURL is empty
// and fetching the motion's text or HTML fails with a "no document url"
// error.
type MotionParser struct{}

// Parse implements Parser.
func (MotionParser) Parse(hit models.RawHit) (models.Entity, error) {
	id := stringField(hit, "id")
	if id == "" {
		return nil, &MalformedRecordError{Kind: models.KindMotion, Field: "id", Err: errMissing}
	}

	date, err := parseDate(hit, "datum")
	if err != nil {
		return nil, &MalformedRecordError{Kind: models.KindMotion, Field: "datum", Err: err}
	}

	return &models.Motion{
		MotionID:    id,
		DocID:       stringField(hit, "dok_id"),
		Date:        date,
		Title:       stringField(hit, "titel"),
		Subtitle:    stringField(hit, "undertitel"),
		Summary:     stringField(hit, "summary"),
		DocumentURL: strings.TrimSuffix(stringField(hit, "dokument_url_text"), documentURLSuffix),
		Authors:     parseAuthors(hit["dokintressent"]),
	}, nil
}

// parseAuthors reads the "dokintressent" container. Its "intressent" member
// is a list of person records, or a single record when there is only one.
// Anything else yields no authors.
func parseAuthors(container any) []models.Person {
	authors := []models.Person{}

	c, ok := container.(map[string]any)
	if !ok {
		return authors
	}

	var p PersonParser
	for _, rec := range records(c["intressent"]) {
		authors = append(authors, p.parse(rec))
	}
	return authors
}

// VoteParser reads one row of a roll call (voteringlista).
type VoteParser struct{}

// Parse implements Parser.
func (VoteParser) Parse(hit models.RawHit) (models.Entity, error) {
	voteID := stringField(hit, "votering_id")
	if voteID == "" {
		return nil, &MalformedRecordError{Kind: models.KindVote, Field: "votering_id", Err: errMissing}
	}
	return &models.Vote{
		VoteID:       voteID,
		PersonID:     stringField(hit, "intressent_id"),
		Name:         stringField(hit, "namn"),
		Party:        stringField(hit, "parti"),
		Constituency: stringField(hit, "valkrets"),
		Choice:       stringField(hit, "rost"),
		Session:      stringField(hit, "rm"),
		Designation:  stringField(hit, "beteckning"),
		Point:        stringField(hit, "punkt"),
	}, nil
}

func parseDate(hit models.RawHit, key string) (time.Time, error) {
	raw, ok := hit[key].(string)
	if !ok || raw == "" {
		return time.Time{}, errMissing
	}
	return time.Parse(DateLayout, raw)
}

// stringField returns hit[key] as a trimmed string. Numbers are formatted,
// null and other types yield "".
func stringField(hit models.RawHit, key string) string {
	switch v := hit[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// records normalizes a JSON value that is either a list of objects or a
// single object into a list of hits.
func records(v any) []models.RawHit {
	switch t := v.(type) {
	case []any:
		out := make([]models.RawHit, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, models.RawHit(m))
			}
		}
		return out
	case map[string]any:
		return []models.RawHit{models.RawHit(t)}
	default:
		return nil
	}
}
