// Package merge links cleaned datasets: keyed enrichment of economic
// events with storm-track aggregates, and consolidation of per-metric
// time series into one entity-by-month panel.
package merge

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/hurricane-panel/internal/domain"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

// Storm-derived columns appended by enrichment.
const (
	colClosestDistance = "closest_distance_nm"
	colMaxWind         = "max_wind_kt"
	colMinPressure     = "min_pressure_mb"
	colStormID         = "storm_id"
)

// MatchReport counts enrichment outcomes. A low match rate is a
// data-quality signal for the operator, not a pipeline failure.
type MatchReport struct {
	TotalEvents   int `json:"total_events"`
	Matched       int `json:"matched"`
	Unmatched     int `json:"unmatched"`
	AmbiguousKeys int `json:"ambiguous_keys"`
}

// Enricher joins economic events against storm aggregates on the exact
// (normalized name, year) merge key. No fuzzy matching is applied.
type Enricher struct {
	NameColumn string
	YearColumn string
	Logger     *slog.Logger
}

// Enrich returns a new table with every original event column plus the
// storm-derived columns. Unmatched events keep all their fields with the
// storm columns set to missing. Storms colliding on one key are resolved
// first-match-wins and counted.
func (e Enricher) Enrich(events *frame.Table, storms []domain.Storm) (*frame.Table, MatchReport, error) {
	report := MatchReport{TotalEvents: events.NumRows()}

	for _, col := range []string{e.NameColumn, e.YearColumn} {
		if !events.HasColumn(col) {
			return nil, report, fmt.Errorf("enrich: events table missing column %q", col)
		}
	}

	byKey := make(map[domain.MergeKey]domain.Storm, len(storms))
	for _, s := range storms {
		key := domain.KeyForStorm(s)
		if _, dup := byKey[key]; dup {
			report.AmbiguousKeys++
			if e.Logger != nil {
				e.Logger.Warn("ambiguous storm key, keeping first match",
					"name", key.Name, "year", key.Year, "storm_id", s.ID)
			}
			continue
		}
		byKey[key] = s
	}

	cols := append(append([]string(nil), events.Columns()...),
		colClosestDistance, colMaxWind, colMinPressure, colStormID)
	out, err := frame.New(cols...)
	if err != nil {
		return nil, report, fmt.Errorf("enrich: %w", err)
	}

	for row := 0; row < events.NumRows(); row++ {
		vals := events.Row(row)

		storm, matched := e.lookup(events, row, byKey)
		if matched {
			report.Matched++
			vals = append(vals,
				frame.Float(storm.ClosestNM),
				optionalFloat(storm.MaxWind),
				optionalFloat(storm.MinPressure),
				frame.String(storm.ID),
			)
		} else {
			report.Unmatched++
			vals = append(vals, frame.Missing(), frame.Missing(), frame.Missing(), frame.Missing())
		}
		if err := out.AppendRow(vals...); err != nil {
			return nil, report, fmt.Errorf("enrich: %w", err)
		}
	}

	if e.Logger != nil {
		e.Logger.Info("enrichment complete",
			"total_events", report.TotalEvents,
			"matched", report.Matched,
			"unmatched", report.Unmatched,
			"ambiguous_keys", report.AmbiguousKeys,
		)
	}
	return out, report, nil
}

func (e Enricher) lookup(events *frame.Table, row int, byKey map[domain.MergeKey]domain.Storm) (domain.Storm, bool) {
	name := events.Value(row, e.NameColumn)
	year := events.Value(row, e.YearColumn)
	if name.IsMissing() || year.IsMissing() {
		return domain.Storm{}, false
	}
	y, ok := year.AsFloat()
	if !ok {
		return domain.Storm{}, false
	}
	storm, found := byKey[domain.KeyForEvent(name.Str(), int(y))]
	return storm, found
}

func optionalFloat(v *float64) frame.Value {
	if v == nil {
		return frame.Missing()
	}
	return frame.Float(*v)
}
