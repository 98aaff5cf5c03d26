// Package export flattens parsed entities into tabular and line-oriented
// output. It only consumes already fetched entities and never issues
// requests.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/riksdag-client/pkg/models"
)

// By selects the row layout of a motion table.
type By string

const (
	// ByDocument yields one row per motion with the authors joined.
	ByDocument By = "document"

	// ByAuthor yields one row per (motion, author) pair.
	ByAuthor By = "author"
)

// AuthorSeparator joins author names in the document layout.
const AuthorSeparator = "; "

// Row is one line of a table.
type Row []string

// UnknownLayoutError is returned for a layout other than ByDocument or ByAuthor.
type UnknownLayoutError struct {
	By string
}

func (e *UnknownLayoutError) Error() string {
	return fmt.Sprintf("unknown export layout %q (want %q or %q)", e.By, ByDocument, ByAuthor)
}

// ParseBy parses a layout name.
func ParseBy(s string) (By, error) {
	switch By(strings.ToLower(strings.TrimSpace(s))) {
	case ByDocument, "":
		return ByDocument, nil
	case ByAuthor:
		return ByAuthor, nil
	default:
		return "", &UnknownLayoutError{By: s}
	}
}

// Header returns the column names of a layout.
func Header(by By) (Row, error) {
	switch by {
	case ByDocument:
		return Row{"id", "doc_id", "date", "title", "subtitle", "authors", "parties", "document_url"}, nil
	case ByAuthor:
		return Row{"id", "doc_id", "date", "title", "subtitle", "author", "party", "document_url"}, nil
	default:
		return nil, &UnknownLayoutError{By: string(by)}
	}
}

// MotionRows flattens motions into a table. The first row is the header.
//
// In the author layout a motion without authors still yields one row, with
// empty author columns.
func MotionRows(motions []*models.Motion, by By) ([]Row, error) {
	header, err := Header(by)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(motions)+1)
	rows = append(rows, header)

	for _, m := range motions {
		if m == nil {
			continue
		}
		if by == ByDocument {
			parties := make([]string, 0, len(m.Authors))
			for _, a := range m.Authors {
				parties = append(parties, a.Party)
			}
			rows = append(rows, motionRow(m,
				strings.Join(m.AuthorNames(), AuthorSeparator),
				strings.Join(parties, AuthorSeparator)))
			continue
		}

		if len(m.Authors) == 0 {
			rows = append(rows, motionRow(m, "", ""))
			continue
		}
		for _, a := range m.Authors {
			rows = append(rows, motionRow(m, a.Name, a.Party))
		}
	}
	return rows, nil
}

func motionRow(m *models.Motion, author, party string) Row {
	date := ""
	if !m.Date.IsZero() {
		date = m.Date.Format(time.DateOnly)
	}
	return Row{m.MotionID, m.DocID, date, m.Title, m.Subtitle, author, party, m.DocumentURL}
}

// Motions selects the motions out of a mixed entity slice.
func Motions(entities []models.Entity) []*models.Motion {
	out := make([]*models.Motion, 0, len(entities))
	for _, e := range entities {
		if m, ok := e.(*models.Motion); ok {
			out = append(out, m)
		}
	}
	return out
}
