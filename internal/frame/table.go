// Package frame provides the ordered-column, tagged-value table model the
// pipeline stages exchange. A Table is cheap to copy column-selections from
// and preserves insertion order so that builds are deterministic.
package frame

import (
	"fmt"
	"regexp"
	"strings"
)

var underscoreRun = regexp.MustCompile(`\s+`)

// Canonicalize normalizes a raw column name: trimmed, lowercased,
// whitespace runs collapsed to single underscores.
func Canonicalize(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return underscoreRun.ReplaceAllString(name, "_")
}

// Table is a column-ordered set of rows over tagged values.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Value
}

// New creates a table with the given column names.
// Duplicate names are rejected: no two columns may share a name.
func New(cols ...string) (*Table, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	return &Table{cols: append([]string(nil), cols...), index: index}, nil
}

// MustNew is New for statically known column sets.
func MustNew(cols ...string) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the column names in order. The slice is shared; callers
// must not modify it.
func (t *Table) Columns() []string { return t.cols }

func (t *Table) NumCols() int { return len(t.cols) }
func (t *Table) NumRows() int { return len(t.rows) }

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRow adds one row. The value count must match the column count.
func (t *Table) AppendRow(vals ...Value) error {
	if len(vals) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(vals), len(t.cols))
	}
	t.rows = append(t.rows, append([]Value(nil), vals...))
	return nil
}

// Value returns the cell at (row, column name). Missing for unknown
// columns and out-of-range rows.
func (t *Table) Value(row int, col string) Value {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return Missing()
	}
	return t.rows[row][i]
}

// SetValue overwrites the cell at (row, column name).
func (t *Table) SetValue(row int, col string, v Value) {
	if i, ok := t.index[col]; ok {
		t.rows[row][i] = v
	}
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	return append([]Value(nil), t.rows[i]...)
}

// Select returns a new table holding copies of the named columns, in the
// given order. Unknown columns are an error.
func (t *Table) Select(cols ...string) (*Table, error) {
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(cols))
	for j, c := range cols {
		i, ok := t.index[c]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		idx[j] = i
	}
	for _, row := range t.rows {
		vals := make([]Value, len(cols))
		for j, i := range idx {
			vals[j] = row[i]
		}
		out.rows = append(out.rows, vals)
	}
	return out, nil
}

// RenameColumn changes a column's name in place. Renaming onto an existing
// name is rejected.
func (t *Table) RenameColumn(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("unknown column %q", from)
	}
	if from == to {
		return nil
	}
	if _, exists := t.index[to]; exists {
		return fmt.Errorf("column %q already exists", to)
	}
	delete(t.index, from)
	t.index[to] = i
	t.cols[i] = to
	return nil
}

// DeleteRow removes row i, preserving the order of the remaining rows.
func (t *Table) DeleteRow(i int) {
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
}

// Filter returns a new table containing only the rows for which keep
// returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := MustNew(t.cols...)
	for i := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]Value(nil), t.rows[i]...))
		}
	}
	return out
}

// NonMissingCount returns the number of non-missing cells in the named column.
func (t *Table) NonMissingCount(col string) int {
	i, ok := t.index[col]
	if !ok {
		return 0
	}
	n := 0
	for _, row := range t.rows {
		if !row[i].IsMissing() {
			n++
		}
	}
	return n
}
