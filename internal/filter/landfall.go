package filter

import (
	"log/slog"

	"github.com/couchcryptid/hurricane-panel/internal/domain"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
	"github.com/couchcryptid/hurricane-panel/internal/geo"
)

// Landfall restricts economic events to storms with a landfall observation
// inside the region boundary. Only points flagged with the landfall record
// type are tested against the region.
type Landfall struct {
	Region geo.RegionTester
	Logger *slog.Logger
}

// landfallRecordType is the HURDAT2 record identifier for a landfall.
const landfallRecordType = "L"

// Keys returns the (name, year) merge keys of storms whose landfall points
// fall inside the region.
func (l Landfall) Keys(points []domain.TrackPoint) map[domain.MergeKey]bool {
	keys := make(map[domain.MergeKey]bool)
	for _, pt := range points {
		if pt.RecordType != landfallRecordType {
			continue
		}
		if !l.Region.Contains(pt.Lat, pt.Lon) {
			continue
		}
		keys[domain.MergeKey{Name: domain.NormalizeStormName(pt.StormName), Year: pt.Year()}] = true
	}
	return keys
}

// FilterEvents keeps the event rows whose (name, year) key matches a
// landfall storm. It returns the filtered table and the count removed.
func (l Landfall) FilterEvents(events *frame.Table, keys map[domain.MergeKey]bool, nameCol, yearCol string) (*frame.Table, int) {
	removed := 0
	out := events.Filter(func(row int) bool {
		key, ok := eventKey(events, row, nameCol, yearCol)
		if !ok || !keys[key] {
			removed++
			return false
		}
		return true
	})
	if l.Logger != nil {
		l.Logger.Info("landfall filter applied",
			"events_in", events.NumRows(),
			"events_kept", out.NumRows(),
			"landfall_storms", len(keys),
		)
	}
	return out, removed
}

// eventKey derives the merge key for one event row.
func eventKey(t *frame.Table, row int, nameCol, yearCol string) (domain.MergeKey, bool) {
	name := t.Value(row, nameCol)
	year := t.Value(row, yearCol)
	if name.IsMissing() || year.IsMissing() {
		return domain.MergeKey{}, false
	}
	y, ok := year.AsFloat()
	if !ok {
		return domain.MergeKey{}, false
	}
	return domain.KeyForEvent(name.Str(), int(y)), true
}
