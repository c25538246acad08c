// Package filter reduces track datasets by geographic predicates: distance
// to a reference point, or landfall membership in a region boundary.
package filter

import (
	"log/slog"
	"math"

	"github.com/couchcryptid/hurricane-panel/internal/domain"
	"github.com/couchcryptid/hurricane-panel/internal/geo"
)

// Proximity retains the storms that pass within RadiusNM of the reference
// point during the year range. Proximity qualifies the storm, not the
// point: once a storm qualifies, every one of its track points inside the
// year range is kept.
type Proximity struct {
	RefLat   float64
	RefLon   float64
	RadiusNM float64
	YearMin  int
	YearMax  int

	Logger *slog.Logger
}

// Result holds the retained points and their storm-level aggregates.
type Result struct {
	Points []domain.TrackPoint
	Storms []domain.Storm
}

// Filter applies the proximity predicate. The radius comparison is
// inclusive: a point at exactly RadiusNM qualifies its storm.
func (p Proximity) Filter(points []domain.TrackPoint) Result {
	qualifying := make(map[string]bool)
	for _, pt := range points {
		if !p.inYearRange(pt) {
			continue
		}
		if geo.HaversineNM(p.RefLat, p.RefLon, pt.Lat, pt.Lon) <= p.RadiusNM {
			qualifying[pt.StormID] = true
		}
	}

	var kept []domain.TrackPoint
	for _, pt := range points {
		if !qualifying[pt.StormID] || !p.inYearRange(pt) {
			continue
		}
		pt.DistanceNM = roundTenth(geo.HaversineNM(p.RefLat, p.RefLon, pt.Lat, pt.Lon))
		kept = append(kept, pt)
	}

	result := Result{Points: kept, Storms: domain.SummarizeStorms(kept)}
	if p.Logger != nil {
		p.Logger.Info("proximity filter applied",
			"radius_nm", p.RadiusNM,
			"year_min", p.YearMin,
			"year_max", p.YearMax,
			"points_in", len(points),
			"points_kept", len(kept),
			"storms_retained", len(result.Storms),
		)
	}
	return result
}

func (p Proximity) inYearRange(pt domain.TrackPoint) bool {
	y := pt.Year()
	return y >= p.YearMin && y <= p.YearMax
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
