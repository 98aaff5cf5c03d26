package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sternrassler/riksdag-client/pkg/models"
)

// WriteCSV writes motions as CSV in the given layout, header first.
func WriteCSV(w io.Writer, motions []*models.Motion, by By) error {
	rows, err := MotionRows(motions, by)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteJSONLines writes one JSON object per entity, in order.
func WriteJSONLines(w io.Writer, entities []models.Entity) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, e := range entities {
		if err := WriteJSONLine(enc, e); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSONLine encodes a single entity. It lets streaming callers write
// entities as they arrive instead of collecting them first.
func WriteJSONLine(enc *json.Encoder, e models.Entity) error {
	if err := enc.Encode(models.ToMap(e)); err != nil {
		return fmt.Errorf("encode %s %q: %w", e.Kind(), e.ID(), err)
	}
	return nil
}
