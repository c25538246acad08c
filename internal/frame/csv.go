package frame

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV parses delimited text into a table of string values. Type
// coercion is the cleaner's job; the reader only preserves cells, turning
// empty ones into Missing.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return MustNew(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	t, err := New(header...)
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		vals := make([]Value, len(header))
		for i := range header {
			if i >= len(rec) || rec[i] == "" {
				vals[i] = Missing()
				continue
			}
			vals[i] = String(rec[i])
		}
		t.rows = append(t.rows, vals)
	}
	return t, nil
}

// WriteCSV renders the table as CSV: one header row, then data rows with
// missing cells as empty strings. A zero-column table produces no output,
// which is the valid empty artifact.
func (t *Table) WriteCSV(w io.Writer) error {
	if t.NumCols() == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.cols); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(t.cols))
	for _, row := range t.rows {
		for i, v := range row {
			rec[i] = v.Render()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
