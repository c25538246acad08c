package clean

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

var (
	magnitudeRe = regexp.MustCompile(`(?i)([\d.]+)\s*(thousand|million|billion)`)
	dollarStrip = regexp.MustCompile(`[$,\s]`)
)

var magnitudeMultipliers = map[string]float64{
	"thousand": 1e3,
	"million":  1e6,
	"billion":  1e9,
}

// ParseCurrency converts strings like "$1.5 Billion" or "112,000" to
// numeric dollars. Plain numerics pass through unchanged.
func ParseCurrency(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if m := magnitudeRe.FindStringSubmatch(s); m != nil {
		base, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return base * magnitudeMultipliers[strings.ToLower(m[2])], true
	}

	v, err := strconv.ParseFloat(dollarStrip.ReplaceAllString(s, ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(raw string) (frame.Value, bool) {
	v, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 10, 64)
	if err != nil {
		return frame.Missing(), false
	}
	return frame.Int(v), true
}

func parseFloat(raw string) (frame.Value, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
	if err != nil {
		return frame.Missing(), false
	}
	return frame.Float(v), true
}

func parseBool(raw string) (frame.Value, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "yes", "y", "1":
		return frame.Bool(true), true
	case "false", "f", "no", "n", "0":
		return frame.Bool(false), true
	default:
		return frame.Missing(), false
	}
}
