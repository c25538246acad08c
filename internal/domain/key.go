package domain

import (
	"strings"
	"unicode"
)

// stormTypePrefixes are stripped from economic event names before keying.
// Order matters: longer prefixes first.
var stormTypePrefixes = []string{
	"Tropical Storm ",
	"Hurricane ",
}

// MergeKey links independently sourced records that lack a shared
// identifier. Equality of MergeKeys is the only join predicate.
type MergeKey struct {
	Name string
	Year int
}

// KeyForStorm builds the merge key for a track-derived storm.
func KeyForStorm(s Storm) MergeKey {
	return MergeKey{Name: NormalizeStormName(s.Name), Year: s.Year}
}

// KeyForEvent builds the merge key for an economic event name and year,
// stripping storm-type prefixes like "Hurricane".
func KeyForEvent(eventName string, year int) MergeKey {
	name := strings.TrimSpace(eventName)
	for _, prefix := range stormTypePrefixes {
		if strings.HasPrefix(name, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	return MergeKey{Name: NormalizeStormName(name), Year: year}
}

// NormalizeStormName uppercases a name and drops every non-alphanumeric
// rune, so "Ian" and " IAN " key identically.
func NormalizeStormName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
