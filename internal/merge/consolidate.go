package merge

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

// Panel grain columns.
const (
	ColEntity = "metro"
	ColDate   = "date"
)

// dateColRe matches wide-format value columns named by month, e.g.
// "2020-01-31".
var dateColRe = regexp.MustCompile(`^\d{4}-\d{2}(-\d{2})?$`)

// Series is one metric's observations on the (entity, date) grain.
type Series struct {
	Metric       string
	Observations []Observation

	// DuplicatesDropped counts (entity, date) pairs seen more than once
	// in the source; the first occurrence wins.
	DuplicatesDropped int
}

// Observation is one (entity, date, value) measurement.
type Observation struct {
	Entity string
	Date   string
	Value  float64
}

// Reshape converts a cleaned wide-format table (one row per entity, one
// column per month) into a Series. Non-numeric and missing cells are
// skipped. Duplicate (entity, date) pairs keep the first occurrence.
func Reshape(t *frame.Table, metric, entityCol string) Series {
	s := Series{Metric: metric}

	var dateCols []string
	for _, col := range t.Columns() {
		if dateColRe.MatchString(col) {
			dateCols = append(dateCols, col)
		}
	}

	seen := make(map[[2]string]bool)
	for row := 0; row < t.NumRows(); row++ {
		entity := t.Value(row, entityCol)
		if entity.IsMissing() {
			continue
		}
		for _, dc := range dateCols {
			v, ok := numericCell(t.Value(row, dc))
			if !ok {
				continue
			}
			key := [2]string{entity.Str(), dc}
			if seen[key] {
				s.DuplicatesDropped++
				continue
			}
			seen[key] = true
			s.Observations = append(s.Observations, Observation{
				Entity: entity.Str(),
				Date:   dc,
				Value:  v,
			})
		}
	}
	return s
}

// Consolidator unions metric series on the shared (entity, date) grain.
type Consolidator struct {
	Logger *slog.Logger
}

// Consolidate outer-joins every series into one wide panel: a row for
// each (entity, date) pair appearing in any input, missing where a metric
// has no coverage. The panel has exactly one row per pair.
func (c Consolidator) Consolidate(series []Series) (*frame.Table, error) {
	metrics := make([]string, 0, len(series))
	duplicates := 0

	type cell = map[string]float64
	grid := make(map[[2]string]cell)
	for _, s := range series {
		metrics = append(metrics, s.Metric)
		duplicates += s.DuplicatesDropped
		for _, obs := range s.Observations {
			key := [2]string{obs.Entity, obs.Date}
			if grid[key] == nil {
				grid[key] = make(cell, len(series))
			}
			// First occurrence wins within a series; across series every
			// metric writes its own column.
			if _, exists := grid[key][s.Metric]; !exists {
				grid[key][s.Metric] = obs.Value
			}
		}
	}
	sort.Strings(metrics)

	keys := make([][2]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	cols := append([]string{ColEntity, ColDate}, metrics...)
	panel, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		vals := make([]frame.Value, 0, len(cols))
		vals = append(vals, frame.String(key[0]), frame.String(key[1]))
		for _, m := range metrics {
			if v, ok := grid[key][m]; ok {
				vals = append(vals, frame.Float(v))
			} else {
				vals = append(vals, frame.Missing())
			}
		}
		if err := panel.AppendRow(vals...); err != nil {
			return nil, err
		}
	}

	if c.Logger != nil {
		c.Logger.Info("panel consolidated",
			"metrics", len(metrics),
			"rows", panel.NumRows(),
			"duplicates_dropped", duplicates,
		)
	}
	return panel, nil
}

// numericCell reads a measurement from a panel cell. Date columns are
// open-ended, so the cleaner cannot declare them for coercion; string
// cells holding a plain numeral are parsed here instead.
func numericCell(v frame.Value) (float64, bool) {
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	if v.Kind() == frame.KindString {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
