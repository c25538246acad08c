package geo

import (
	"encoding/json"
	"fmt"
	"io"
)

// RegionTester answers point-in-region queries. Two implementations exist:
// the exact polygon test and a bounding-box approximation. Which one runs
// is a configuration choice, not runtime detection.
type RegionTester interface {
	Contains(lat, lon float64) bool
}

// BoundsRegion is the bounding-box approximation of a region.
type BoundsRegion struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (b BoundsRegion) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ring is a closed loop of [lon, lat] vertices as GeoJSON orders them.
type ring [][2]float64

// PolygonRegion is the exact point-in-polygon test over a GeoJSON Polygon
// or MultiPolygon geometry, honoring interior rings as holes.
type PolygonRegion struct {
	// polygons[i][0] is the outer ring, the rest are holes.
	polygons []([]ring)
}

func (p *PolygonRegion) Contains(lat, lon float64) bool {
	for _, rings := range p.polygons {
		if len(rings) == 0 || !pointInRing(lon, lat, rings[0]) {
			continue
		}
		inHole := false
		for _, hole := range rings[1:] {
			if pointInRing(lon, lat, hole) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Bounds returns the bounding box enclosing every ring, usable as the
// approximate RegionTester for the same region.
func (p *PolygonRegion) Bounds() BoundsRegion {
	b := BoundsRegion{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180}
	for _, rings := range p.polygons {
		for _, r := range rings {
			for _, v := range r {
				lon, lat := v[0], v[1]
				if lat < b.MinLat {
					b.MinLat = lat
				}
				if lat > b.MaxLat {
					b.MaxLat = lat
				}
				if lon < b.MinLon {
					b.MinLon = lon
				}
				if lon > b.MaxLon {
					b.MaxLon = lon
				}
			}
		}
	}
	return b
}

// pointInRing is the even-odd ray-casting test with x=lon, y=lat.
func pointInRing(x, y float64, r ring) bool {
	inside := false
	n := len(r)
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		x1, y1 := r[i][0], r[i][1]
		x2, y2 := r[(i+1)%n][0], r[(i+1)%n][1]
		if (y1 > y) != (y2 > y) &&
			x < (x2-x1)*(y-y1)/(y2-y1+1e-12)+x1 {
			inside = !inside
		}
	}
	return inside
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string           `json:"type"`
	Properties map[string]any   `json:"properties"`
	Geometry   geoJSONGeometry  `json:"geometry"`
	Features   []geoJSONFeature `json:"features"`
}

// LoadGeoJSON reads a Polygon or MultiPolygon region from GeoJSON. The
// input may be a bare geometry, a Feature, or a FeatureCollection (the
// first polygonal feature wins).
func LoadGeoJSON(r io.Reader) (*PolygonRegion, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}

	var doc geoJSONFeature
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	geom, err := selectGeometry(doc, data)
	if err != nil {
		return nil, err
	}
	return regionFromGeometry(geom)
}

func selectGeometry(doc geoJSONFeature, raw []byte) (geoJSONGeometry, error) {
	switch doc.Type {
	case "Feature":
		return doc.Geometry, nil
	case "FeatureCollection":
		for _, f := range doc.Features {
			if f.Geometry.Type == "Polygon" || f.Geometry.Type == "MultiPolygon" {
				return f.Geometry, nil
			}
		}
		return geoJSONGeometry{}, fmt.Errorf("no polygonal feature in feature collection")
	case "Polygon", "MultiPolygon":
		var geom geoJSONGeometry
		if err := json.Unmarshal(raw, &geom); err != nil {
			return geoJSONGeometry{}, fmt.Errorf("parse geometry: %w", err)
		}
		return geom, nil
	default:
		return geoJSONGeometry{}, fmt.Errorf("unsupported geojson type %q", doc.Type)
	}
}

func regionFromGeometry(geom geoJSONGeometry) (*PolygonRegion, error) {
	switch geom.Type {
	case "Polygon":
		var rings []ring
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("parse polygon coordinates: %w", err)
		}
		return &PolygonRegion{polygons: []([]ring){rings}}, nil
	case "MultiPolygon":
		var polys []([]ring)
		if err := json.Unmarshal(geom.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("parse multipolygon coordinates: %w", err)
		}
		return &PolygonRegion{polygons: polys}, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", geom.Type)
	}
}
