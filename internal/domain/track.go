package domain

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// headerRe matches a HURDAT2 header line's storm identifier, e.g. AL092022.
var headerRe = regexp.MustCompile(`^(AL|EP|CP)\d{6}$`)

// TrackPoint is one best-track observation belonging to exactly one storm.
type TrackPoint struct {
	StormID     string
	StormName   string
	Time        time.Time
	RecordType  string // "L" marks a landfall observation
	Status      string // system status, e.g. HU, TS, TD
	Lat         float64
	Lon         float64
	MaxWind     *float64 // knots, nil when the source recorded a sentinel
	MinPressure *float64 // millibars, nil when the source recorded a sentinel

	// DistanceNM is filled by the proximity filter: great-circle distance
	// to the configured reference point, rounded to 0.1 NM.
	DistanceNM float64
}

// Year returns the observation year.
func (p TrackPoint) Year() int { return p.Time.Year() }

// ParseHURDAT2 reads the HURDAT2 text format into track points.
// Malformed data lines are skipped and counted; a stream with no parseable
// points at all is an error so a truncated download is not mistaken for an
// empty basin.
func ParseHURDAT2(r io.Reader) ([]TrackPoint, int, error) {
	var (
		points    []TrackPoint
		skipped   int
		stormID   string
		stormName string
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := splitFields(line)

		if headerRe.MatchString(parts[0]) {
			stormID = parts[0]
			if len(parts) > 1 {
				stormName = parts[1]
			} else {
				stormName = ""
			}
			continue
		}

		if stormID == "" || len(parts) < 8 {
			skipped++
			continue
		}

		pt, err := parseDataLine(stormID, stormName, parts)
		if err != nil {
			skipped++
			continue
		}
		points = append(points, pt)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read hurdat2: %w", err)
	}
	if len(points) == 0 {
		return nil, skipped, fmt.Errorf("no parseable hurdat2 records (%d lines skipped)", skipped)
	}
	return points, skipped, nil
}

func splitFields(line string) []string {
	raw := strings.Split(line, ",")
	parts := make([]string, len(raw))
	for i, p := range raw {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func parseDataLine(stormID, stormName string, parts []string) (TrackPoint, error) {
	ts, err := time.Parse("200601021504", parts[0]+parts[1])
	if err != nil {
		return TrackPoint{}, fmt.Errorf("parse track timestamp: %w", err)
	}

	lat, err := ParseCoordinate(parts[4])
	if err != nil {
		return TrackPoint{}, err
	}
	lon, err := ParseCoordinate(parts[5])
	if err != nil {
		return TrackPoint{}, err
	}

	return TrackPoint{
		StormID:     stormID,
		StormName:   stormName,
		Time:        ts.UTC(),
		RecordType:  parts[2],
		Status:      parts[3],
		Lat:         lat,
		Lon:         lon,
		MaxWind:     parseObservation(parts[6]),
		MinPressure: parseObservation(parts[7]),
	}, nil
}

// ParseCoordinate converts a HURDAT2 coordinate like "26.7N" or "82.2W"
// to a signed decimal degree value.
func ParseCoordinate(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 {
		return 0, fmt.Errorf("coordinate too short: %q", raw)
	}

	hemi := raw[len(raw)-1]
	v, err := strconv.ParseFloat(raw[:len(raw)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse coordinate %q: %w", raw, err)
	}

	switch hemi {
	case 'N', 'n', 'E', 'e':
		return v, nil
	case 'S', 's', 'W', 'w':
		return -v, nil
	default:
		return 0, fmt.Errorf("unknown hemisphere in coordinate %q", raw)
	}
}

// parseObservation converts a wind or pressure field, mapping the HURDAT2
// sentinels -99 and -999 to nil.
func parseObservation(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	if v == -99 || v == -999 {
		return nil
	}
	return &v
}
