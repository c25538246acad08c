package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hurricane-panel/internal/domain"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

func fp(v float64) *float64 { return &v }

func TestEnrich(t *testing.T) {
	storms := []domain.Storm{
		{ID: "AL092022", Name: "IAN", Year: 2022, ClosestNM: 12.4, MaxWind: fp(140), MinPressure: fp(937)},
		{ID: "AL052019", Name: "DORIAN", Year: 2019, ClosestNM: 95.0, MaxWind: fp(160), MinPressure: nil},
	}

	events := frame.MustNew("event_name", "data_year", "cost_usd", "deaths")
	require.NoError(t, events.AppendRow(
		frame.String("Hurricane Ian"), frame.Int(2022), frame.Float(112.9e9), frame.Int(156)))
	require.NoError(t, events.AppendRow(
		frame.String("Tropical Storm Unnamed-X"), frame.Int(2022), frame.Float(1e6), frame.Int(0)))

	e := Enricher{NameColumn: "event_name", YearColumn: "data_year"}
	enriched, report, err := e.Enrich(events, storms)
	require.NoError(t, err)

	assert.Equal(t, MatchReport{TotalEvents: 2, Matched: 1, Unmatched: 1}, report)

	// "Hurricane Ian" 2022 joins storm "IAN" 2022: exactly one enriched row.
	assert.Equal(t, 12.4, enriched.Value(0, "closest_distance_nm").Float())
	assert.Equal(t, 140.0, enriched.Value(0, "max_wind_kt").Float())
	assert.Equal(t, "AL092022", enriched.Value(0, "storm_id").Str())
	assert.Equal(t, 112.9e9, enriched.Value(0, "cost_usd").Float(), "original fields retained")

	// The unmatched event keeps its fields with storm columns missing.
	assert.Equal(t, "Tropical Storm Unnamed-X", enriched.Value(1, "event_name").Str())
	assert.True(t, enriched.Value(1, "closest_distance_nm").IsMissing())
	assert.True(t, enriched.Value(1, "storm_id").IsMissing())
}

func TestEnrich_AmbiguousKeyFirstWins(t *testing.T) {
	storms := []domain.Storm{
		{ID: "AL092022", Name: "IAN", Year: 2022, ClosestNM: 12.4},
		{ID: "AL992022", Name: "Ian", Year: 2022, ClosestNM: 99.9},
	}
	events := frame.MustNew("event_name", "data_year")
	require.NoError(t, events.AppendRow(frame.String("Hurricane Ian"), frame.Int(2022)))

	enriched, report, err := Enricher{NameColumn: "event_name", YearColumn: "data_year"}.Enrich(events, storms)
	require.NoError(t, err)

	assert.Equal(t, 1, report.AmbiguousKeys)
	assert.Equal(t, "AL092022", enriched.Value(0, "storm_id").Str())
}

func TestEnrich_MissingColumn(t *testing.T) {
	events := frame.MustNew("name_only")
	_, _, err := Enricher{NameColumn: "event_name", YearColumn: "data_year"}.Enrich(events, nil)
	require.Error(t, err)
}

func TestReshape(t *testing.T) {
	wide := frame.MustNew("regionname", "statename", "2020-01-31", "2020-02-29")
	require.NoError(t, wide.AppendRow(
		frame.String("Tampa, FL"), frame.String("FL"), frame.Float(250000), frame.Float(251250)))
	require.NoError(t, wide.AppendRow(
		frame.String("Miami, FL"), frame.String("FL"), frame.Float(310000), frame.Missing()))
	// Duplicate entity row: first occurrence wins.
	require.NoError(t, wide.AppendRow(
		frame.String("Tampa, FL"), frame.String("FL"), frame.Float(999999), frame.Missing()))

	s := Reshape(wide, "zhvi", "regionname")

	assert.Equal(t, "zhvi", s.Metric)
	require.Len(t, s.Observations, 3)
	assert.Equal(t, 1, s.DuplicatesDropped)
	assert.Equal(t, Observation{Entity: "Tampa, FL", Date: "2020-01-31", Value: 250000}, s.Observations[0])
}

func TestReshape_UncoercedStringCells(t *testing.T) {
	// Freshly read CSV cells are strings; date columns are open-ended so
	// the cleaner never coerces them. Reshape must still read the numbers.
	wide := frame.MustNew("regionname", "2022-09", "2022-10")
	require.NoError(t, wide.AppendRow(
		frame.String("Tampa, FL"), frame.String("350000"), frame.String(" 351500 ")))
	require.NoError(t, wide.AppendRow(
		frame.String("Miami, FL"), frame.String("not a number"), frame.Missing()))

	s := Reshape(wide, "zhvi", "regionname")

	require.Len(t, s.Observations, 2)
	assert.Equal(t, Observation{Entity: "Tampa, FL", Date: "2022-09", Value: 350000}, s.Observations[0])
	assert.Equal(t, Observation{Entity: "Tampa, FL", Date: "2022-10", Value: 351500}, s.Observations[1])
}

func TestConsolidate(t *testing.T) {
	series := []Series{
		{
			Metric: "zhvi",
			Observations: []Observation{
				{Entity: "Tampa, FL", Date: "2020-01-31", Value: 250000},
				{Entity: "Tampa, FL", Date: "2020-02-29", Value: 251250},
				{Entity: "Miami, FL", Date: "2020-01-31", Value: 310000},
			},
		},
		{
			Metric: "market_temp",
			Observations: []Observation{
				// Disjoint time coverage from zhvi.
				{Entity: "Tampa, FL", Date: "2020-03-31", Value: 62},
				{Entity: "Miami, FL", Date: "2020-01-31", Value: 71},
			},
		},
	}

	panel, err := Consolidator{}.Consolidate(series)
	require.NoError(t, err)

	assert.Equal(t, []string{"metro", "date", "market_temp", "zhvi"}, panel.Columns())
	// Union of distinct (entity, date) pairs: 4 rows, never duplicated.
	require.Equal(t, 4, panel.NumRows())

	seen := make(map[[2]string]bool)
	for row := 0; row < panel.NumRows(); row++ {
		key := [2]string{panel.Value(row, "metro").Str(), panel.Value(row, "date").Str()}
		assert.False(t, seen[key], "duplicate grain pair %v", key)
		seen[key] = true
	}

	// Miami 2020-01-31 has both metrics; Tampa 2020-03-31 has only one.
	assert.Equal(t, 310000.0, panel.Value(0, "zhvi").Float())
	assert.Equal(t, 71.0, panel.Value(0, "market_temp").Float())
	assert.True(t, panel.Value(3, "zhvi").IsMissing())
	assert.Equal(t, 62.0, panel.Value(3, "market_temp").Float())
}

func TestConsolidate_Deterministic(t *testing.T) {
	series := []Series{
		{Metric: "b", Observations: []Observation{{Entity: "X", Date: "2021-01-31", Value: 1}}},
		{Metric: "a", Observations: []Observation{{Entity: "X", Date: "2021-02-28", Value: 2}}},
	}
	p1, err := Consolidator{}.Consolidate(series)
	require.NoError(t, err)
	p2, err := Consolidator{}.Consolidate([]Series{series[1], series[0]})
	require.NoError(t, err)

	assert.Equal(t, p1.Columns(), p2.Columns(), "column order independent of input order")
	assert.Equal(t, p1.NumRows(), p2.NumRows())
}
