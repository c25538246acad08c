package frame

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "RegionName", "regionname"},
		{"spaces to underscores", "Closest Distance NM", "closest_distance_nm"},
		{"trim and collapse", "  Max  Wind  ", "max_wind"},
		{"already canonical", "storm_id", "storm_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestNew_RejectsDuplicateColumns(t *testing.T) {
	_, err := New("name", "year", "name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestTable_SelectAndRename(t *testing.T) {
	tab := MustNew("storm_name", "year", "max_wind")
	require.NoError(t, tab.AppendRow(String("IAN"), Int(2022), Float(140)))
	require.NoError(t, tab.AppendRow(String("IDALIA"), Int(2023), Missing()))

	sel, err := tab.Select("year", "storm_name")
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "storm_name"}, sel.Columns())
	assert.Equal(t, int64(2022), sel.Value(0, "year").Int())
	assert.Equal(t, "IDALIA", sel.Value(1, "storm_name").Str())

	require.NoError(t, sel.RenameColumn("storm_name", "name"))
	assert.True(t, sel.HasColumn("name"))
	assert.False(t, sel.HasColumn("storm_name"))

	err = sel.RenameColumn("name", "year")
	require.Error(t, err)
}

func TestTable_FilterIsIndependent(t *testing.T) {
	tab := MustNew("storm_name", "year")
	require.NoError(t, tab.AppendRow(String("IAN"), Int(2022)))
	require.NoError(t, tab.AppendRow(String("HENRI"), Int(2021)))

	kept := tab.Filter(func(row int) bool {
		return tab.Value(row, "year").Int() == 2022
	})
	require.Equal(t, 1, kept.NumRows())

	// Renaming the filtered table leaves the source untouched.
	require.NoError(t, kept.RenameColumn("storm_name", "name"))
	assert.True(t, tab.HasColumn("storm_name"))
	assert.False(t, tab.HasColumn("name"))
}

func TestTable_AppendRowArityMismatch(t *testing.T) {
	tab := MustNew("a", "b")
	err := tab.AppendRow(String("x"))
	require.Error(t, err)
}

func TestTable_ValueOutOfRange(t *testing.T) {
	tab := MustNew("a")
	require.NoError(t, tab.AppendRow(String("x")))

	assert.True(t, tab.Value(1, "a").IsMissing())
	assert.True(t, tab.Value(-1, "a").IsMissing())
	assert.True(t, tab.Value(0, "nope").IsMissing())
}

func TestReadCSV_EmptyCellsAreMissing(t *testing.T) {
	in := "name,wind\nIAN,140\nUNNAMED,\n"
	tab, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 2, tab.NumRows())
	assert.Equal(t, "140", tab.Value(0, "wind").Str())
	assert.True(t, tab.Value(1, "wind").IsMissing())
	assert.Equal(t, 1, tab.NonMissingCount("wind"))
}

func TestWriteCSV(t *testing.T) {
	t.Run("renders dates and missing", func(t *testing.T) {
		tab := MustNew("metro", "date", "zhvi")
		require.NoError(t, tab.AppendRow(
			String("Tampa, FL"),
			Date(time.Date(2022, 9, 30, 0, 0, 0, 0, time.UTC)),
			Float(375421.5),
		))
		require.NoError(t, tab.AppendRow(String("Miami, FL"), Missing(), Missing()))

		var buf bytes.Buffer
		require.NoError(t, tab.WriteCSV(&buf))
		assert.Equal(t, "metro,date,zhvi\n\"Tampa, FL\",2022-09-30,375421.5\n\"Miami, FL\",,\n", buf.String())
	})

	t.Run("zero columns writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, MustNew().WriteCSV(&buf))
		assert.Zero(t, buf.Len())
	})
}

func TestValue_AsFloat(t *testing.T) {
	f, ok := Int(140).AsFloat()
	require.True(t, ok)
	assert.Equal(t, 140.0, f)

	_, ok = String("140").AsFloat()
	assert.False(t, ok)

	_, ok = Missing().AsFloat()
	assert.False(t, ok)
}
