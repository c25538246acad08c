package clean

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

func testCleaner() *Cleaner {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func readTable(t *testing.T, csv string) *frame.Table {
	t.Helper()
	tab, err := frame.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tab
}

func TestClean_SentinelReplacement(t *testing.T) {
	raw := readTable(t, "Storm Name,Max Wind\nIAN,140\nETA,-999\nMINDY,-99\n")

	rule := Rule{
		Dataset:   "hurdat2",
		Sentinels: []float64{-99, -999},
		DTypes:    map[string]frame.Kind{"max_wind": frame.KindFloat},
	}

	cleaned, report, err := testCleaner().Clean(raw, rule)
	require.NoError(t, err)

	// -999 becomes a missing marker; 140 passes through unchanged.
	assert.Equal(t, 140.0, cleaned.Value(0, "max_wind").Float())
	assert.True(t, cleaned.Value(1, "max_wind").IsMissing())
	assert.True(t, cleaned.Value(2, "max_wind").IsMissing())
	assert.Equal(t, 2, report.SentinelsReplaced)
	assert.Equal(t, 3, report.RowsAfter)
}

func TestClean_ColumnCanonicalization(t *testing.T) {
	raw := readTable(t, "Storm Name,Closest Distance NM\nIAN,49.8\n")

	cleaned, _, err := testCleaner().Clean(raw, Rule{Dataset: "summary"})
	require.NoError(t, err)
	assert.Equal(t, []string{"storm_name", "closest_distance_nm"}, cleaned.Columns())
}

func TestClean_DuplicateCanonicalNamesFatal(t *testing.T) {
	raw := readTable(t, "Max Wind,max wind\n1,2\n")

	_, _, err := testCleaner().Clean(raw, Rule{Dataset: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestClean_CoercionFailureBecomesMissing(t *testing.T) {
	raw := readTable(t, "event_name,deaths\nHurricane Ian,62\nHurricane Idalia,not-a-number\n")

	rule := Rule{
		Dataset: "economic",
		DTypes:  map[string]frame.Kind{"deaths": frame.KindInt},
	}
	cleaned, report, err := testCleaner().Clean(raw, rule)
	require.NoError(t, err)

	require.Equal(t, 2, cleaned.NumRows())
	assert.Equal(t, int64(62), cleaned.Value(0, "deaths").Int())
	assert.True(t, cleaned.Value(1, "deaths").IsMissing())
	assert.Equal(t, 1, report.CoercionFailures)
}

func TestClean_RowLeftFullyMissingIsDropped(t *testing.T) {
	raw := readTable(t, "deaths\n62\nnot-a-number\n")

	rule := Rule{
		Dataset: "economic",
		DTypes:  map[string]frame.Kind{"deaths": frame.KindInt},
	}
	cleaned, report, err := testCleaner().Clean(raw, rule)
	require.NoError(t, err)

	// The failed coercion leaves its row with no data at all.
	require.Equal(t, 1, cleaned.NumRows())
	assert.Equal(t, 1, report.CoercionFailures)
	assert.Equal(t, 1, report.SparseDropped)
	assert.Equal(t, 1, report.RowsDropped)
}

func TestClean_CurrencyParsing(t *testing.T) {
	raw := readTable(t, "event_name,cost\nHurricane Ian,$112.9 Billion\nHurricane Idalia,3.6 million\nTropical Storm Fred,\"1,300,000\"\n")

	rule := Rule{
		Dataset:         "economic",
		CurrencyColumns: []string{"cost"},
		DropThreshold:   0.5,
	}
	cleaned, _, err := testCleaner().Clean(raw, rule)
	require.NoError(t, err)

	assert.Equal(t, 112.9e9, cleaned.Value(0, "cost").Float())
	assert.Equal(t, 3.6e6, cleaned.Value(1, "cost").Float())
	assert.Equal(t, 1.3e6, cleaned.Value(2, "cost").Float())
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
		ok   bool
	}{
		{"billion suffix", "$1.5 Billion", 1.5e9, true},
		{"million suffix", "450 million", 4.5e8, true},
		{"thousand suffix", "112 Thousand", 1.12e5, true},
		{"plain with symbols", "$1,234.50", 1234.5, true},
		{"bare number", "62", 62, true},
		{"garbage", "unknown", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCurrency(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestClean_DateParsingDropsBadRows(t *testing.T) {
	raw := readTable(t, "event_name,begin_date\nHurricane Ian,2022-09-23\nHurricane Mystery,sometime in fall\nHurricane Idalia,8/27/2023\n")

	rule := Rule{
		Dataset:     "economic",
		DateColumns: []string{"begin_date"},
	}
	cleaned, report, err := testCleaner().Clean(raw, rule)
	require.NoError(t, err)

	require.Equal(t, 2, cleaned.NumRows())
	assert.Equal(t, 1, report.DateDropped)
	assert.Equal(t, time.Date(2022, 9, 23, 0, 0, 0, 0, time.UTC), cleaned.Value(0, "begin_date").Date())
	assert.Equal(t, time.Date(2023, 8, 27, 0, 0, 0, 0, time.UTC), cleaned.Value(1, "begin_date").Date())
}

func TestClean_SparseRowGate(t *testing.T) {
	raw := readTable(t, "a,b,c,d,e\n1,2,3,4,5\n1,2,,,\n,,,,\n1,2,3,,\n")

	rule := Rule{
		Dataset:       "zillow",
		DTypes:        map[string]frame.Kind{"a": frame.KindFloat, "b": frame.KindFloat, "c": frame.KindFloat, "d": frame.KindFloat, "e": frame.KindFloat},
		DropThreshold: 0.6,
	}
	cleaned, report, err := testCleaner().Clean(raw, rule)
	require.NoError(t, err)

	// 5/5 and 3/5 survive a 0.6 threshold; 2/5 and the empty row do not.
	assert.Equal(t, 2, cleaned.NumRows())
	assert.Equal(t, 2, report.SparseDropped)
	assert.Equal(t, 4, report.RowsBefore)
	assert.Equal(t, 2, report.RowsDropped)
}

func TestClean_RowFilters(t *testing.T) {
	raw := readTable(t, "RegionName,StateName,RegionType\nTampa FL,FL,msa\nAtlanta GA,GA,msa\nFlorida,FL,state\n")

	rule := Rule{
		Dataset: "zillow",
		RowFilters: []ColumnEquals{
			{Column: "statename", Value: "FL"},
			{Column: "regiontype", Value: "msa"},
		},
	}
	cleaned, report, err := testCleaner().Clean(raw, rule)
	require.NoError(t, err)

	require.Equal(t, 1, cleaned.NumRows())
	assert.Equal(t, "Tampa FL", cleaned.Value(0, "regionname").Str())
	assert.Equal(t, 2, report.FilteredOut)
}
