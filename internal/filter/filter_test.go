package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hurricane-panel/internal/domain"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
	"github.com/couchcryptid/hurricane-panel/internal/geo"
)

const (
	refLat = 27.5
	refLon = -82.0
)

// pointAtDistance places a track point due north of the reference point at
// the given great-circle distance. Along a meridian the haversine formula
// reduces to R*dphi, so the distance is exact up to float rounding.
func pointAtDistance(stormID, name string, year int, d float64) domain.TrackPoint {
	dLat := d / geo.EarthRadiusNM * 180 / 3.141592653589793
	return domain.TrackPoint{
		StormID:   stormID,
		StormName: name,
		Time:      time.Date(year, 9, 28, 12, 0, 0, 0, time.UTC),
		Lat:       refLat + dLat,
		Lon:       refLon,
	}
}

func TestProximity_StormQualifiesPointsFollow(t *testing.T) {
	// Three points for one storm-year at 49.8, 61.0, and 241.0 NM with a
	// 60 NM radius: the 49.8 point qualifies the storm, and all three
	// points stay in the filtered output.
	points := []domain.TrackPoint{
		pointAtDistance("AL092022", "IAN", 2022, 49.8),
		pointAtDistance("AL092022", "IAN", 2022, 61.0),
		pointAtDistance("AL092022", "IAN", 2022, 241.0),
	}

	p := Proximity{RefLat: refLat, RefLon: refLon, RadiusNM: 60, YearMin: 2004, YearMax: 2025}
	result := p.Filter(points)

	require.Len(t, result.Points, 3)
	require.Len(t, result.Storms, 1)

	storm := result.Storms[0]
	assert.Equal(t, "IAN", storm.Name)
	assert.Equal(t, 2022, storm.Year)
	assert.InDelta(t, 49.8, storm.ClosestNM, 0.05)
	assert.InDelta(t, 61.0, result.Points[1].DistanceNM, 0.05)
	assert.InDelta(t, 241.0, result.Points[2].DistanceNM, 0.05)
}

func TestProximity_BoundaryInclusive(t *testing.T) {
	pt := pointAtDistance("AL052020", "EDGE", 2020, 60)
	exact := geo.HaversineNM(refLat, refLon, pt.Lat, pt.Lon)

	t.Run("at exactly the radius the storm is retained", func(t *testing.T) {
		p := Proximity{RefLat: refLat, RefLon: refLon, RadiusNM: exact, YearMin: 2004, YearMax: 2025}
		result := p.Filter([]domain.TrackPoint{pt})
		assert.Len(t, result.Storms, 1)
	})

	t.Run("a hair beyond the radius it is excluded", func(t *testing.T) {
		p := Proximity{RefLat: refLat, RefLon: refLon, RadiusNM: exact - 0.0001, YearMin: 2004, YearMax: 2025}
		result := p.Filter([]domain.TrackPoint{pt})
		assert.Empty(t, result.Storms)
	})
}

func TestProximity_YearRange(t *testing.T) {
	points := []domain.TrackPoint{
		// Qualifying point outside the year range: storm excluded entirely.
		pointAtDistance("AL031999", "OLD", 1999, 10),
		// In-range storm with an out-of-range historical point.
		pointAtDistance("AL092022", "IAN", 2022, 30),
		pointAtDistance("AL092022", "IAN", 2003, 30),
	}

	p := Proximity{RefLat: refLat, RefLon: refLon, RadiusNM: 60, YearMin: 2004, YearMax: 2025}
	result := p.Filter(points)

	require.Len(t, result.Storms, 1)
	assert.Equal(t, "IAN", result.Storms[0].Name)
	assert.Len(t, result.Points, 1, "out-of-range points stay excluded even for retained storms")
}

func TestProximity_RadiusMonotonicity(t *testing.T) {
	points := []domain.TrackPoint{
		pointAtDistance("A", "ALPHA", 2010, 20),
		pointAtDistance("B", "BRAVO", 2011, 55),
		pointAtDistance("C", "CHARLIE", 2012, 90),
		pointAtDistance("D", "DELTA", 2013, 150),
	}

	prev := 0
	for _, radius := range []float64{10, 25, 60, 100, 200} {
		p := Proximity{RefLat: refLat, RefLon: refLon, RadiusNM: radius, YearMin: 2004, YearMax: 2025}
		n := len(p.Filter(points).Storms)
		assert.GreaterOrEqual(t, n, prev, "radius %v shrank the retained set", radius)
		prev = n
	}
	assert.Equal(t, 4, prev)
}

const testRegionGeoJSON = `{
  "type": "Polygon",
  "coordinates": [[[-84.0, 25.0], [-80.0, 25.0], [-80.0, 29.0], [-84.0, 29.0], [-84.0, 25.0]]]
}`

func TestLandfall(t *testing.T) {
	region, err := geo.LoadGeoJSON(strings.NewReader(testRegionGeoJSON))
	require.NoError(t, err)

	landfallAt := func(id, name string, year int, lat, lon float64) domain.TrackPoint {
		return domain.TrackPoint{
			StormID: id, StormName: name, RecordType: "L",
			Time: time.Date(year, 9, 1, 0, 0, 0, 0, time.UTC),
			Lat:  lat, Lon: lon,
		}
	}

	points := []domain.TrackPoint{
		landfallAt("AL092022", "IAN", 2022, 26.7, -82.2),
		landfallAt("AL142018", "MICHAEL", 2018, 30.0, -85.5), // outside region
		{ // inside region but not a landfall record
			StormID: "AL172022", StormName: "NICOLE", RecordType: "",
			Time: time.Date(2022, 11, 10, 0, 0, 0, 0, time.UTC),
			Lat:  27.0, Lon: -82.0,
		},
	}

	l := Landfall{Region: region}
	keys := l.Keys(points)

	require.Len(t, keys, 1)
	assert.True(t, keys[domain.MergeKey{Name: "IAN", Year: 2022}])

	events := frame.MustNew("event_name", "data_year")
	require.NoError(t, events.AppendRow(frame.String("Hurricane Ian"), frame.Int(2022)))
	require.NoError(t, events.AppendRow(frame.String("Hurricane Michael"), frame.Int(2018)))
	require.NoError(t, events.AppendRow(frame.String("Hurricane Ian"), frame.Missing()))

	kept, removed := l.FilterEvents(events, keys, "event_name", "data_year")
	require.Equal(t, 1, kept.NumRows())
	assert.Equal(t, 2, removed)
	assert.Equal(t, "Hurricane Ian", kept.Value(0, "event_name").Str())
}
