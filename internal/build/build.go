// Package build assembles the master dataset from the column
// configuration snapshot and the intermediate tables. Given identical
// inputs the output is byte-identical; with nothing included the result
// is the explicit empty state, not an error.
package build

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/hurricane-panel/internal/colconfig"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
)

// sourceTagColumn labels which dataset contributed each concatenated row.
const sourceTagColumn = "_source_dataset"

// Report summarizes one assembly run for the audit sink.
type Report struct {
	BuildID        string    `json:"build_id"`
	Rows           int       `json:"rows"`
	Columns        int       `json:"columns"`
	DatasetsUsed   []string  `json:"datasets_used"`
	SkippedColumns int       `json:"skipped_columns"`
	Empty          bool      `json:"empty"`
	Duration       float64   `json:"duration_seconds"`
	BuiltAt        time.Time `json:"built_at"`
}

// Builder selects, renames, and aligns included columns into the master
// dataset. Tables whose selected columns carry the full grain key are
// outer-aligned on it; the rest are concatenated with a source tag.
type Builder struct {
	Grain  []string // shared grain columns, e.g. metro, date
	Logger *slog.Logger
}

// selection is one dataset's included columns resolved against its table.
type selection struct {
	dataset string
	table   *frame.Table // selected and renamed columns only
	keyed   bool         // selected set covers the full grain
}

// Build produces the master dataset from a configuration snapshot.
// Entries referencing columns absent from the tables are skipped and
// counted, never fatal.
func (b *Builder) Build(snapshot []colconfig.Entry, tables map[string]*frame.Table) (*frame.Table, Report, error) {
	start := time.Now()
	report := Report{BuildID: uuid.NewString(), BuiltAt: start.UTC()}

	selections, skipped, err := b.selectColumns(snapshot, tables)
	if err != nil {
		return nil, report, err
	}
	report.SkippedColumns = skipped

	if len(selections) == 0 {
		master := frame.MustNew()
		report.Empty = true
		report.Duration = time.Since(start).Seconds()
		if b.Logger != nil {
			b.Logger.Info("build produced empty master dataset", "build_id", report.BuildID)
		}
		return master, report, nil
	}

	master, err := b.assemble(selections)
	if err != nil {
		return nil, report, fmt.Errorf("assemble master dataset: %w", err)
	}

	for _, sel := range selections {
		report.DatasetsUsed = append(report.DatasetsUsed, sel.dataset)
	}
	report.Rows = master.NumRows()
	report.Columns = master.NumCols()
	report.Duration = time.Since(start).Seconds()

	if b.Logger != nil {
		b.Logger.Info("build complete",
			"build_id", report.BuildID,
			"rows", report.Rows,
			"columns", report.Columns,
			"datasets", len(report.DatasetsUsed),
			"skipped_columns", report.SkippedColumns,
		)
	}
	return master, report, nil
}

// selectColumns resolves the snapshot against the intermediate tables in
// deterministic dataset order.
func (b *Builder) selectColumns(snapshot []colconfig.Entry, tables map[string]*frame.Table) ([]selection, int, error) {
	included := make(map[string]map[string]colconfig.Entry)
	for _, e := range snapshot {
		if !e.Include {
			continue
		}
		if included[e.Dataset] == nil {
			included[e.Dataset] = make(map[string]colconfig.Entry)
		}
		included[e.Dataset][e.Column] = e
	}

	datasets := make([]string, 0, len(included))
	for d := range included {
		datasets = append(datasets, d)
	}
	sort.Strings(datasets)

	var (
		selections []selection
		skipped    int
	)
	for _, dataset := range datasets {
		t, ok := tables[dataset]
		if !ok {
			skipped += len(included[dataset])
			if b.Logger != nil {
				b.Logger.Warn("configured dataset has no intermediate table", "dataset", dataset)
			}
			continue
		}

		// Table column order keeps selection deterministic.
		var cols []string
		for _, col := range t.Columns() {
			if _, want := included[dataset][col]; want {
				cols = append(cols, col)
			}
		}
		skipped += len(included[dataset]) - len(cols)
		if len(cols) == 0 {
			continue
		}

		sel, err := t.Select(cols...)
		if err != nil {
			return nil, skipped, fmt.Errorf("select columns for %s: %w", dataset, err)
		}
		for _, col := range cols {
			if rename := included[dataset][col].Rename; rename != "" {
				if err := sel.RenameColumn(col, rename); err != nil {
					return nil, skipped, fmt.Errorf("rename %s/%s: %w", dataset, col, err)
				}
			}
		}
		selections = append(selections, selection{
			dataset: dataset,
			table:   sel,
			keyed:   coversGrain(sel.Columns(), b.Grain),
		})
	}
	return selections, skipped, nil
}

// assemble outer-aligns the keyed selections on the grain and appends the
// keyless ones as source-tagged rows.
func (b *Builder) assemble(selections []selection) (*frame.Table, error) {
	var keyed, keyless []selection
	for _, sel := range selections {
		if sel.keyed {
			keyed = append(keyed, sel)
		} else {
			keyless = append(keyless, sel)
		}
	}

	cols := []string{sourceTagColumn}
	if len(keyed) > 0 {
		cols = append(cols, b.Grain...)
	}
	valueCols := make(map[string][]string) // dataset -> output value columns
	for _, sel := range append(append([]selection(nil), keyed...), keyless...) {
		for _, col := range sel.table.Columns() {
			if sel.keyed && contains(b.Grain, col) {
				continue
			}
			name := col
			if contains(cols, name) {
				name = col + "_" + datasetStem(sel.dataset)
			}
			cols = append(cols, name)
			valueCols[sel.dataset] = append(valueCols[sel.dataset], name)
		}
	}

	master, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}

	if len(keyed) > 0 {
		if err := b.appendAligned(master, keyed, valueCols); err != nil {
			return nil, err
		}
	}
	for _, sel := range keyless {
		if err := appendTagged(master, sel, valueCols[sel.dataset]); err != nil {
			return nil, err
		}
	}
	return master, nil
}

// appendAligned writes one row per distinct grain key across the keyed
// selections, sorted by key, missing where a dataset lacks coverage.
func (b *Builder) appendAligned(master *frame.Table, keyed []selection, valueCols map[string][]string) error {
	grid := make(map[string][]rowRef)
	keyVals := make(map[string][]frame.Value)

	for _, sel := range keyed {
		for row := 0; row < sel.table.NumRows(); row++ {
			key := grainKey(sel.table, row, b.Grain)
			// First row wins per dataset and key; the consolidator has
			// already deduplicated its own grain.
			if hasDataset(grid[key], sel.dataset) {
				continue
			}
			grid[key] = append(grid[key], rowRef{sel: sel, row: row})
			if _, ok := keyVals[key]; !ok {
				vals := make([]frame.Value, len(b.Grain))
				for i, g := range b.Grain {
					vals[i] = sel.table.Value(row, g)
				}
				keyVals[key] = vals
			}
		}
	}

	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tag := alignedTag(keyed)
	for _, key := range keys {
		row := make(map[string]frame.Value, master.NumCols())
		row[sourceTagColumn] = frame.String(tag)
		for i, g := range b.Grain {
			row[g] = keyVals[key][i]
		}
		for _, ref := range grid[key] {
			outCols := valueCols[ref.sel.dataset]
			i := 0
			for _, col := range ref.sel.table.Columns() {
				if contains(b.Grain, col) {
					continue
				}
				row[outCols[i]] = ref.sel.table.Value(ref.row, col)
				i++
			}
		}
		if err := appendMapped(master, row); err != nil {
			return err
		}
	}
	return nil
}

func appendTagged(master *frame.Table, sel selection, outCols []string) error {
	for row := 0; row < sel.table.NumRows(); row++ {
		vals := map[string]frame.Value{sourceTagColumn: frame.String(datasetStem(sel.dataset))}
		for i, col := range sel.table.Columns() {
			vals[outCols[i]] = sel.table.Value(row, col)
		}
		if err := appendMapped(master, vals); err != nil {
			return err
		}
	}
	return nil
}

func appendMapped(master *frame.Table, row map[string]frame.Value) error {
	vals := make([]frame.Value, 0, master.NumCols())
	for _, col := range master.Columns() {
		if v, ok := row[col]; ok {
			vals = append(vals, v)
		} else {
			vals = append(vals, frame.Missing())
		}
	}
	return master.AppendRow(vals...)
}

func grainKey(t *frame.Table, row int, grain []string) string {
	parts := make([]string, len(grain))
	for i, g := range grain {
		parts[i] = t.Value(row, g).Render()
	}
	return strings.Join(parts, "\x1f")
}

func alignedTag(keyed []selection) string {
	stems := make([]string, len(keyed))
	for i, sel := range keyed {
		stems[i] = datasetStem(sel.dataset)
	}
	return strings.Join(stems, "+")
}

// rowRef points at one source row contributing to an aligned output row.
type rowRef struct {
	sel selection
	row int
}

func hasDataset(refs []rowRef, dataset string) bool {
	for _, r := range refs {
		if r.sel.dataset == dataset {
			return true
		}
	}
	return false
}

func coversGrain(cols, grain []string) bool {
	if len(grain) == 0 {
		return false
	}
	for _, g := range grain {
		if !contains(cols, g) {
			return false
		}
	}
	return true
}

func datasetStem(dataset string) string {
	base := path.Base(dataset)
	return strings.TrimSuffix(base, path.Ext(base))
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
