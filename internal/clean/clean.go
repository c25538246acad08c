// Package clean normalizes one raw tabular source into a canonical row set:
// column naming, sentinel-to-missing conversion, declared-type coercion,
// currency parsing, and sparse-row elimination. Cleaning never aborts a
// table for a bad value; failures become missing markers with counts.
package clean

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

// defaultDateLayouts are tried in order when a rule declares no layouts.
var defaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"1/2/2006",
	"20060102",
	"January 2, 2006",
}

// ColumnEquals keeps only rows whose canonical column equals a literal,
// e.g. statename == "FL". It is a feature filter applied before the
// sparse-row quality gate.
type ColumnEquals struct {
	Column string
	Value  string
}

// Rule carries the per-source cleaning parameters from the manifest.
// Column references are canonical names.
type Rule struct {
	Dataset         string
	Sentinels       []float64
	DTypes          map[string]frame.Kind
	CurrencyColumns []string
	DateColumns     []string
	DateLayouts     []string
	RowFilters      []ColumnEquals

	// DropThreshold is the data-quality gate: rows whose fraction of
	// non-missing data columns falls below it are dropped. Thresholds
	// differ per source and stay configurable.
	DropThreshold float64
}

// Report is the before/after audit record emitted for every cleaned source.
type Report struct {
	Dataset           string `json:"dataset"`
	RowsBefore        int    `json:"rows_before"`
	RowsAfter         int    `json:"rows_after"`
	RowsDropped       int    `json:"rows_dropped"`
	SparseDropped     int    `json:"sparse_dropped"`
	DateDropped       int    `json:"date_dropped"`
	FilteredOut       int    `json:"filtered_out"`
	SentinelsReplaced int    `json:"sentinels_replaced"`
	CoercionFailures  int    `json:"coercion_failures"`
}

// Cleaner applies Rules to raw tables.
type Cleaner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean normalizes a raw table under the given rule. The only fatal
// condition is a structurally unusable table (duplicate canonical column
// names); per-value problems degrade to missing markers.
func (c *Cleaner) Clean(raw *frame.Table, rule Rule) (*frame.Table, Report, error) {
	report := Report{Dataset: rule.Dataset, RowsBefore: raw.NumRows()}

	out, err := canonicalizeColumns(raw)
	if err != nil {
		return nil, report, fmt.Errorf("clean %s: %w", rule.Dataset, err)
	}

	c.coerceColumns(out, rule, &report)
	out = c.dropUnparseableDates(out, rule, &report)
	out = applyRowFilters(out, rule, &report)
	out = dropSparseRows(out, rule.DropThreshold, &report)

	report.RowsAfter = out.NumRows()
	report.RowsDropped = report.RowsBefore - report.RowsAfter

	c.logger.Info("cleaned source",
		"dataset", rule.Dataset,
		"rows_before", report.RowsBefore,
		"rows_after", report.RowsAfter,
		"sparse_dropped", report.SparseDropped,
		"date_dropped", report.DateDropped,
		"sentinels_replaced", report.SentinelsReplaced,
		"coercion_failures", report.CoercionFailures,
	)
	return out, report, nil
}

func canonicalizeColumns(raw *frame.Table) (*frame.Table, error) {
	cols := raw.Columns()
	canonical := make([]string, len(cols))
	for i, col := range cols {
		canonical[i] = frame.Canonicalize(col)
	}

	out, err := frame.New(canonical...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < raw.NumRows(); i++ {
		if err := out.AppendRow(raw.Row(i)...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// coerceColumns converts cells to their declared kinds. A value that
// fails its declared type becomes missing rather than aborting the table.
func (c *Cleaner) coerceColumns(t *frame.Table, rule Rule, report *Report) {
	currency := toSet(rule.CurrencyColumns)
	dates := toSet(rule.DateColumns)
	layouts := rule.DateLayouts
	if len(layouts) == 0 {
		layouts = defaultDateLayouts
	}

	for _, col := range t.Columns() {
		kind, declared := rule.DTypes[col]
		isCurrency := currency[col]
		isDate := dates[col]
		if isDate {
			kind, declared = frame.KindDate, true
		}
		if isCurrency {
			kind, declared = frame.KindFloat, true
		}
		if !declared {
			continue
		}

		for row := 0; row < t.NumRows(); row++ {
			v := t.Value(row, col)
			if v.IsMissing() {
				continue
			}
			coerced, ok := coerceValue(v, kind, isCurrency, layouts)
			if !ok {
				// Date failures are handled by dropUnparseableDates;
				// leave the raw value in place for it to find.
				if kind == frame.KindDate {
					continue
				}
				report.CoercionFailures++
				t.SetValue(row, col, frame.Missing())
				continue
			}
			if f, isNum := coerced.AsFloat(); isNum && isSentinel(f, rule.Sentinels) {
				report.SentinelsReplaced++
				t.SetValue(row, col, frame.Missing())
				continue
			}
			t.SetValue(row, col, coerced)
		}
	}
}

func coerceValue(v frame.Value, kind frame.Kind, isCurrency bool, layouts []string) (frame.Value, bool) {
	if v.Kind() == kind && !isCurrency {
		return v, true
	}
	raw := v.Render()

	if isCurrency {
		f, ok := ParseCurrency(raw)
		if !ok {
			return frame.Missing(), false
		}
		return frame.Float(f), true
	}

	switch kind {
	case frame.KindInt:
		return parseInt(raw)
	case frame.KindFloat:
		return parseFloat(raw)
	case frame.KindBool:
		return parseBool(raw)
	case frame.KindDate:
		for _, layout := range layouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return frame.Date(ts), true
			}
		}
		return frame.Missing(), false
	default:
		return frame.String(raw), true
	}
}

// dropUnparseableDates removes rows holding a non-missing, unparseable
// value in a declared date column, counting the drops.
func (c *Cleaner) dropUnparseableDates(t *frame.Table, rule Rule, report *Report) *frame.Table {
	if len(rule.DateColumns) == 0 {
		return t
	}
	out := t.Filter(func(row int) bool {
		for _, col := range rule.DateColumns {
			v := t.Value(row, col)
			if !v.IsMissing() && v.Kind() != frame.KindDate {
				report.DateDropped++
				return false
			}
		}
		return true
	})
	return out
}

func applyRowFilters(t *frame.Table, rule Rule, report *Report) *frame.Table {
	if len(rule.RowFilters) == 0 {
		return t
	}
	out := t.Filter(func(row int) bool {
		for _, f := range rule.RowFilters {
			if t.Value(row, f.Column).Str() != f.Value {
				report.FilteredOut++
				return false
			}
		}
		return true
	})
	return out
}

// dropSparseRows applies the data-quality gate: a row survives only when
// its fraction of non-missing cells reaches the threshold. Fully missing
// rows are always dropped.
func dropSparseRows(t *frame.Table, threshold float64, report *Report) *frame.Table {
	if t.NumCols() == 0 {
		return t
	}
	return t.Filter(func(row int) bool {
		nonMissing := 0
		for _, col := range t.Columns() {
			if !t.Value(row, col).IsMissing() {
				nonMissing++
			}
		}
		if nonMissing == 0 {
			report.SparseDropped++
			return false
		}
		if float64(nonMissing)/float64(t.NumCols()) < threshold {
			report.SparseDropped++
			return false
		}
		return true
	})
}

func isSentinel(f float64, sentinels []float64) bool {
	for _, s := range sentinels {
		if f == s {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
