package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/hurricane-panel/internal/clean"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
	"github.com/couchcryptid/hurricane-panel/internal/geo"
)

// Source kinds understood by the pipeline.
const (
	SourceTracks = "tracks" // HURDAT2 best-track text
	SourceEvents = "events" // per-storm event rows with name and year columns
	SourcePanel  = "panel"  // wide entity-by-date panel, reshaped to long
)

// Manifest describes the run: the reference point, the study region,
// and every input source with its cleaning parameters.
type Manifest struct {
	Reference struct {
		Lat float64 `yaml:"lat"`
		Lon float64 `yaml:"lon"`
	} `yaml:"reference"`
	RadiusNM float64 `yaml:"radius_nm"`
	Years    struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"years"`
	Region  Region   `yaml:"region"`
	Sources []Source `yaml:"sources"`
}

// Region selects the landfall test area, either a GeoJSON polygon or a
// bounding box.
type Region struct {
	Mode        string `yaml:"mode"` // polygon or bbox
	GeoJSONPath string `yaml:"geojson_path"`
	Bounds      struct {
		MinLat float64 `yaml:"min_lat"`
		MaxLat float64 `yaml:"max_lat"`
		MinLon float64 `yaml:"min_lon"`
		MaxLon float64 `yaml:"max_lon"`
	} `yaml:"bounds"`
}

// Source is one manifest input.
type Source struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`

	// Events sources: merge-key columns.
	NameColumn string `yaml:"name_column"`
	YearColumn string `yaml:"year_column"`

	// Panel sources: name for the reshaped long metric and the column
	// holding the entity identifier, e.g. RegionName in Zillow files.
	Metric       string `yaml:"metric"`
	EntityColumn string `yaml:"entity_column"`

	Clean CleanSpec `yaml:"clean"`
}

// CleanSpec mirrors clean.Rule in YAML form.
type CleanSpec struct {
	Sentinels       []float64         `yaml:"sentinels"`
	DTypes          map[string]string `yaml:"dtypes"`
	CurrencyColumns []string          `yaml:"currency_columns"`
	DateColumns     []string          `yaml:"date_columns"`
	DateLayouts     []string          `yaml:"date_layouts"`
	RowFilters      []FilterSpec      `yaml:"row_filters"`
	DropThreshold   float64           `yaml:"drop_threshold"`
}

// FilterSpec keeps only rows where Column equals Value.
type FilterSpec struct {
	Column string `yaml:"column"`
	Value  string `yaml:"value"`
}

// LoadManifest reads and validates the manifest YAML.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.RadiusNM <= 0 {
		return errors.New("manifest: radius_nm must be positive")
	}
	if m.Years.Min > m.Years.Max {
		return errors.New("manifest: years.min exceeds years.max")
	}
	switch m.Region.Mode {
	case "polygon":
		if m.Region.GeoJSONPath == "" {
			return errors.New("manifest: region.geojson_path is required in polygon mode")
		}
	case "bbox":
		b := m.Region.Bounds
		if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
			return errors.New("manifest: region.bounds is degenerate")
		}
	default:
		return fmt.Errorf("manifest: unknown region.mode %q", m.Region.Mode)
	}
	if len(m.Sources) == 0 {
		return errors.New("manifest: at least one source is required")
	}
	tracks := 0
	seen := make(map[string]bool)
	for i, s := range m.Sources {
		if s.Name == "" || s.Path == "" {
			return fmt.Errorf("manifest: source %d needs name and path", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("manifest: duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
		switch s.Kind {
		case SourceTracks:
			tracks++
		case SourceEvents:
			if s.NameColumn == "" || s.YearColumn == "" {
				return fmt.Errorf("manifest: events source %q needs name_column and year_column", s.Name)
			}
		case SourcePanel:
			if s.Metric == "" || s.EntityColumn == "" {
				return fmt.Errorf("manifest: panel source %q needs metric and entity_column", s.Name)
			}
		default:
			return fmt.Errorf("manifest: source %q has unknown kind %q", s.Name, s.Kind)
		}
		if t := s.Clean.DropThreshold; t < 0 || t > 1 {
			return fmt.Errorf("manifest: source %q drop_threshold %v outside [0,1]", s.Name, t)
		}
	}
	if tracks != 1 {
		return fmt.Errorf("manifest: exactly one tracks source required, found %d", tracks)
	}
	return nil
}

// Rule converts a source's cleaning spec to the cleaner's form.
func (s Source) Rule() clean.Rule {
	r := clean.Rule{
		Dataset:         s.Name,
		Sentinels:       s.Clean.Sentinels,
		CurrencyColumns: s.Clean.CurrencyColumns,
		DateColumns:     s.Clean.DateColumns,
		DateLayouts:     s.Clean.DateLayouts,
		DropThreshold:   s.Clean.DropThreshold,
	}
	if len(s.Clean.DTypes) > 0 {
		r.DTypes = make(map[string]frame.Kind, len(s.Clean.DTypes))
		for col, name := range s.Clean.DTypes {
			r.DTypes[col] = frame.ParseKind(name)
		}
	}
	for _, f := range s.Clean.RowFilters {
		r.RowFilters = append(r.RowFilters, clean.ColumnEquals{Column: f.Column, Value: f.Value})
	}
	return r
}

// LoadRegion builds the landfall region test from the manifest.
func (m *Manifest) LoadRegion() (geo.RegionTester, error) {
	switch m.Region.Mode {
	case "polygon":
		f, err := os.Open(m.Region.GeoJSONPath)
		if err != nil {
			return nil, fmt.Errorf("open region geojson: %w", err)
		}
		defer f.Close()
		return geo.LoadGeoJSON(f)
	case "bbox":
		b := m.Region.Bounds
		return geo.BoundsRegion{
			MinLat: b.MinLat, MaxLat: b.MaxLat,
			MinLon: b.MinLon, MaxLon: b.MaxLon,
		}, nil
	default:
		return nil, fmt.Errorf("unknown region mode %q", m.Region.Mode)
	}
}

// TracksSource returns the single HURDAT2 source.
func (m *Manifest) TracksSource() Source {
	for _, s := range m.Sources {
		if s.Kind == SourceTracks {
			return s
		}
	}
	return Source{}
}
