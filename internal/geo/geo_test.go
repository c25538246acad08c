package geo

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineNM(t *testing.T) {
	t.Run("zero distance to itself", func(t *testing.T) {
		assert.Zero(t, HaversineNM(27.5, -82.0, 27.5, -82.0))
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		// Along a meridian the haversine formula reduces to R*dphi.
		want := EarthRadiusNM * math.Pi / 180
		got := HaversineNM(27.0, -82.0, 28.0, -82.0)
		assert.InDelta(t, want, got, 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := HaversineNM(27.5, -82.0, 26.7, -82.2)
		d2 := HaversineNM(26.7, -82.2, 27.5, -82.0)
		assert.InDelta(t, d1, d2, 1e-12)
	})

	t.Run("tampa to miami ballpark", func(t *testing.T) {
		// Roughly 175 NM between the two metros.
		d := HaversineNM(27.95, -82.46, 25.76, -80.19)
		assert.InDelta(t, 175, d, 10)
	})
}

func TestBoundsRegion(t *testing.T) {
	fl := BoundsRegion{MinLat: 24.4, MaxLat: 31.0, MinLon: -87.6, MaxLon: -80.0}

	assert.True(t, fl.Contains(27.5, -82.0))
	assert.True(t, fl.Contains(24.4, -87.6), "boundary is inclusive")
	assert.False(t, fl.Contains(32.0, -82.0))
	assert.False(t, fl.Contains(27.5, -79.0))
}

const squareWithHole = `{
  "type": "Feature",
  "properties": {"name": "Square"},
  "geometry": {
    "type": "Polygon",
    "coordinates": [
      [[-84.0, 25.0], [-80.0, 25.0], [-80.0, 29.0], [-84.0, 29.0], [-84.0, 25.0]],
      [[-82.5, 26.5], [-81.5, 26.5], [-81.5, 27.5], [-82.5, 27.5], [-82.5, 26.5]]
    ]
  }
}`

func TestPolygonRegion(t *testing.T) {
	region, err := LoadGeoJSON(strings.NewReader(squareWithHole))
	require.NoError(t, err)

	assert.True(t, region.Contains(25.5, -83.5), "inside outer ring")
	assert.False(t, region.Contains(27.0, -82.0), "inside the hole")
	assert.False(t, region.Contains(30.0, -82.0), "outside entirely")

	bounds := region.Bounds()
	assert.Equal(t, BoundsRegion{MinLat: 25.0, MaxLat: 29.0, MinLon: -84.0, MaxLon: -80.0}, bounds)
	assert.True(t, bounds.Contains(27.0, -82.0), "bbox approximation includes the hole")
}

func TestLoadGeoJSON_MultiPolygonAndCollection(t *testing.T) {
	const multi = `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [0, 0]}},
	    {"type": "Feature", "properties": {"name": "Florida"}, "geometry": {
	      "type": "MultiPolygon",
	      "coordinates": [
	        [[[-83.0, 25.0], [-81.0, 25.0], [-81.0, 27.0], [-83.0, 27.0], [-83.0, 25.0]]],
	        [[[-80.5, 24.5], [-80.0, 24.5], [-80.0, 25.0], [-80.5, 25.0], [-80.5, 24.5]]]
	      ]}}
	  ]
	}`
	region, err := LoadGeoJSON(strings.NewReader(multi))
	require.NoError(t, err)

	assert.True(t, region.Contains(26.0, -82.0), "first polygon")
	assert.True(t, region.Contains(24.7, -80.2), "second polygon")
	assert.False(t, region.Contains(26.0, -80.2))
}

func TestLoadGeoJSON_Errors(t *testing.T) {
	_, err := LoadGeoJSON(strings.NewReader(`{"type": "Point", "coordinates": [0, 0]}`))
	require.Error(t, err)

	_, err = LoadGeoJSON(strings.NewReader(`not json`))
	require.Error(t, err)
}
