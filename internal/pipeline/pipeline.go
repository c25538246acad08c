// Package pipeline orchestrates one full run: parallel per-source
// cleaning, proximity and landfall filtering, keyed enrichment, and
// panel consolidation. The output is the set of intermediate tables the
// assembly stage builds the master dataset from.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/hurricane-panel/internal/clean"
	"github.com/couchcryptid/hurricane-panel/internal/config"
	"github.com/couchcryptid/hurricane-panel/internal/domain"
	"github.com/couchcryptid/hurricane-panel/internal/filter"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
	"github.com/couchcryptid/hurricane-panel/internal/geo"
	"github.com/couchcryptid/hurricane-panel/internal/merge"
	"github.com/couchcryptid/hurricane-panel/internal/observability"
)

// PanelTableKey names the consolidated housing panel in Result.Tables.
// Other tables are keyed by their manifest source name.
const PanelTableKey = "processed/panel"

// loadConcurrency caps parallel source loads.
const loadConcurrency = 4

// AuditSink publishes run reports for offline review. A nil sink
// disables auditing.
type AuditSink interface {
	Publish(ctx context.Context, kind string, payload any) error
}

// Pipeline runs the batch transformation described by the manifest.
type Pipeline struct {
	manifest *config.Manifest
	region   geo.RegionTester
	cleaner  *clean.Cleaner
	logger   *slog.Logger
	metrics  *observability.Metrics
	audit    AuditSink
}

func New(manifest *config.Manifest, region geo.RegionTester, logger *slog.Logger, metrics *observability.Metrics, audit AuditSink) *Pipeline {
	return &Pipeline{
		manifest: manifest,
		region:   region,
		cleaner:  clean.New(logger),
		logger:   logger,
		metrics:  metrics,
		audit:    audit,
	}
}

// Result carries everything one run produced.
type Result struct {
	// Tables holds the intermediate tables by dataset key.
	Tables map[string]*frame.Table

	Storms       []domain.Storm
	CleanReports []clean.Report
	Match        merge.MatchReport

	// SourceErrors records per-source failures that did not abort the
	// run; those sources are absent from Tables.
	SourceErrors map[string]error
}

type sourceResult struct {
	src    config.Source
	table  *frame.Table
	report clean.Report
	points []domain.TrackPoint
	err    error
}

// Run executes the pipeline. A broken non-tracks source is skipped and
// recorded; a broken tracks source, or every source failing, aborts the
// run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	sources := p.manifest.Sources
	results := make([]sourceResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.loadSource(src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Tables:       make(map[string]*frame.Table),
		SourceErrors: make(map[string]error),
	}

	var trackPoints []domain.TrackPoint
	usable := 0
	for _, sr := range results {
		if sr.err != nil {
			if sr.src.Kind == config.SourceTracks {
				return nil, fmt.Errorf("tracks source %s: %w", sr.src.Name, sr.err)
			}
			p.logger.Error("source failed, skipping", "source", sr.src.Name, "error", sr.err)
			res.SourceErrors[sr.src.Name] = sr.err
			continue
		}
		usable++
		if sr.src.Kind == config.SourceTracks {
			trackPoints = sr.points
			continue
		}
		res.CleanReports = append(res.CleanReports, sr.report)
		p.recordCleanMetrics(sr.report)
	}
	if usable == 0 {
		return nil, errors.New("pipeline: no usable sources")
	}

	prox := filter.Proximity{
		RefLat:   p.manifest.Reference.Lat,
		RefLon:   p.manifest.Reference.Lon,
		RadiusNM: p.manifest.RadiusNM,
		YearMin:  p.manifest.Years.Min,
		YearMax:  p.manifest.Years.Max,
		Logger:   p.logger,
	}
	filtered := prox.Filter(trackPoints)
	res.Storms = filtered.Storms
	if p.metrics != nil {
		p.metrics.StormsRetained.Set(float64(len(filtered.Storms)))
	}
	res.Tables[p.manifest.TracksSource().Name] = stormTable(filtered.Storms)

	landfall := filter.Landfall{Region: p.region, Logger: p.logger}
	landfallKeys := landfall.Keys(filtered.Points)

	var series []merge.Series
	for _, sr := range results {
		if sr.err != nil || sr.src.Kind == config.SourceTracks {
			continue
		}
		switch sr.src.Kind {
		case config.SourceEvents:
			if err := p.processEvents(sr, filtered.Storms, landfall, landfallKeys, res); err != nil {
				return nil, err
			}
		case config.SourcePanel:
			entityCol := frame.Canonicalize(sr.src.EntityColumn)
			series = append(series, merge.Reshape(sr.table, sr.src.Metric, entityCol))
		}
	}

	if len(series) > 0 {
		consolidator := merge.Consolidator{Logger: p.logger}
		panel, err := consolidator.Consolidate(series)
		if err != nil {
			return nil, fmt.Errorf("consolidate panel: %w", err)
		}
		res.Tables[PanelTableKey] = panel
	}

	p.publishReports(ctx, res)
	return res, nil
}

func (p *Pipeline) loadSource(src config.Source) sourceResult {
	sr := sourceResult{src: src}

	f, err := os.Open(src.Path)
	if err != nil {
		sr.err = fmt.Errorf("open source: %w", err)
		return sr
	}
	defer f.Close()

	if src.Kind == config.SourceTracks {
		points, skipped, err := domain.ParseHURDAT2(f)
		if err != nil {
			sr.err = err
			return sr
		}
		if skipped > 0 {
			p.logger.Warn("skipped malformed track lines", "source", src.Name, "lines", skipped)
		}
		sr.points = points
		return sr
	}

	raw, err := frame.ReadCSV(f)
	if err != nil {
		sr.err = fmt.Errorf("read csv: %w", err)
		return sr
	}
	sr.table, sr.report, sr.err = p.cleaner.Clean(raw, src.Rule())
	return sr
}

func (p *Pipeline) processEvents(sr sourceResult, storms []domain.Storm, landfall filter.Landfall, keys map[domain.MergeKey]bool, res *Result) error {
	nameCol := frame.Canonicalize(sr.src.NameColumn)
	yearCol := frame.Canonicalize(sr.src.YearColumn)

	events, dropped := landfall.FilterEvents(sr.table, keys, nameCol, yearCol)
	if dropped > 0 {
		p.logger.Info("events outside landfall region dropped",
			"source", sr.src.Name, "dropped", dropped)
	}

	enricher := merge.Enricher{NameColumn: nameCol, YearColumn: yearCol, Logger: p.logger}
	enriched, match, err := enricher.Enrich(events, storms)
	if err != nil {
		return fmt.Errorf("enrich %s: %w", sr.src.Name, err)
	}

	res.Tables[sr.src.Name] = enriched
	res.Match.TotalEvents += match.TotalEvents
	res.Match.Matched += match.Matched
	res.Match.Unmatched += match.Unmatched
	res.Match.AmbiguousKeys += match.AmbiguousKeys
	if p.metrics != nil {
		p.metrics.EventsMatched.Add(float64(match.Matched))
		p.metrics.EventsUnmatched.Add(float64(match.Unmatched))
	}
	return nil
}

func (p *Pipeline) recordCleanMetrics(r clean.Report) {
	if p.metrics == nil {
		return
	}
	p.metrics.RowsCleaned.WithLabelValues(r.Dataset).Add(float64(r.RowsAfter))
	p.metrics.RowsDropped.WithLabelValues(r.Dataset, "sparse").Add(float64(r.SparseDropped))
	p.metrics.RowsDropped.WithLabelValues(r.Dataset, "bad_date").Add(float64(r.DateDropped))
	p.metrics.RowsDropped.WithLabelValues(r.Dataset, "filtered").Add(float64(r.FilteredOut))
}

func (p *Pipeline) publishReports(ctx context.Context, res *Result) {
	if p.audit == nil {
		return
	}
	for _, r := range res.CleanReports {
		if err := p.audit.Publish(ctx, "cleaning_report", r); err != nil {
			p.logger.Warn("audit publish failed", "kind", "cleaning_report", "error", err)
		}
	}
	if err := p.audit.Publish(ctx, "match_report", res.Match); err != nil {
		p.logger.Warn("audit publish failed", "kind", "match_report", "error", err)
	}
}

// stormTable renders storm aggregates as the storm summary dataset.
func stormTable(storms []domain.Storm) *frame.Table {
	t := frame.MustNew("storm_id", "storm_name", "year",
		"closest_distance_nm", "max_wind_kt", "min_pressure_mb")
	for _, s := range storms {
		maxWind := frame.Missing()
		if s.MaxWind != nil {
			maxWind = frame.Float(*s.MaxWind)
		}
		minPressure := frame.Missing()
		if s.MinPressure != nil {
			minPressure = frame.Float(*s.MinPressure)
		}
		// AppendRow only fails on arity mismatch, impossible here.
		_ = t.AppendRow(
			frame.String(s.ID),
			frame.String(s.Name),
			frame.Int(int64(s.Year)),
			frame.Float(s.ClosestNM),
			maxWind,
			minPressure,
		)
	}
	return t
}
