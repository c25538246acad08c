package domain

import (
	"math"
	"sort"
)

// Storm is the per-storm aggregate derived from its track points:
// closest approach to the reference point, strongest wind, lowest pressure.
// Storms are recomputed wholesale each pipeline run, never mutated in place.
type Storm struct {
	ID          string
	Name        string
	Year        int
	ClosestNM   float64
	MaxWind     *float64
	MinPressure *float64
}

// SummarizeStorms aggregates filtered track points into one Storm per
// storm identifier, ordered by year then identifier.
func SummarizeStorms(points []TrackPoint) []Storm {
	byID := make(map[string][]TrackPoint)
	for _, p := range points {
		byID[p.StormID] = append(byID[p.StormID], p)
	}

	storms := make([]Storm, 0, len(byID))
	for id, pts := range byID {
		s := Storm{
			ID:        id,
			Name:      pts[0].StormName,
			Year:      pts[0].Year(),
			ClosestNM: math.Inf(1),
		}
		for _, p := range pts {
			if p.DistanceNM < s.ClosestNM {
				s.ClosestNM = p.DistanceNM
			}
			if p.MaxWind != nil && (s.MaxWind == nil || *p.MaxWind > *s.MaxWind) {
				w := *p.MaxWind
				s.MaxWind = &w
			}
			if p.MinPressure != nil && (s.MinPressure == nil || *p.MinPressure < *s.MinPressure) {
				mp := *p.MinPressure
				s.MinPressure = &mp
			}
		}
		storms = append(storms, s)
	}

	sort.Slice(storms, func(i, j int) bool {
		if storms[i].Year != storms[j].Year {
			return storms[i].Year < storms[j].Year
		}
		return storms[i].ID < storms[j].ID
	})
	return storms
}
