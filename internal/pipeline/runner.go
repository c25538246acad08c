package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/hurricane-panel/internal/build"
	"github.com/couchcryptid/hurricane-panel/internal/colconfig"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
	"github.com/couchcryptid/hurricane-panel/internal/observability"
)

// Runner executes full rebuilds: pipeline run, column rescan, assembly,
// artifact write. It holds the current master dataset for the API and
// satisfies the HTTP readiness check once the first rebuild lands.
type Runner struct {
	pipeline     *Pipeline
	builder      *build.Builder
	store        *colconfig.Store
	artifactPath string
	logger       *slog.Logger
	metrics      *observability.Metrics
	audit        AuditSink

	mu        sync.RWMutex
	master    *frame.Table
	lastBuild build.Report
	built     bool
}

func NewRunner(p *Pipeline, builder *build.Builder, store *colconfig.Store, artifactPath string, logger *slog.Logger, metrics *observability.Metrics, audit AuditSink) *Runner {
	return &Runner{
		pipeline:     p,
		builder:      builder,
		store:        store,
		artifactPath: artifactPath,
		logger:       logger,
		metrics:      metrics,
		audit:        audit,
	}
}

// Rebuild performs one end-to-end rebuild. On failure the previously
// published artifact and master stay in place.
func (r *Runner) Rebuild(ctx context.Context) error {
	if r.metrics != nil {
		r.metrics.BuildsTotal.Inc()
	}
	err := r.rebuild(ctx)
	if err != nil && r.metrics != nil {
		r.metrics.BuildsFailed.Inc()
	}
	return err
}

func (r *Runner) rebuild(ctx context.Context) error {
	res, err := r.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	added, err := r.store.Scan(res.Tables)
	if err != nil {
		return fmt.Errorf("column scan: %w", err)
	}
	if added > 0 {
		r.logger.Info("new columns discovered, excluded until an operator includes them", "columns", added)
	}

	snapshot, err := r.store.Snapshot()
	if err != nil {
		return fmt.Errorf("config snapshot: %w", err)
	}

	master, report, err := r.builder.Build(snapshot, res.Tables)
	if err != nil {
		return err
	}
	if err := build.WriteArtifact(master, r.artifactPath); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.BuildDuration.Observe(report.Duration)
		r.metrics.PanelRows.Set(float64(report.Rows))
		r.metrics.PanelColumns.Set(float64(report.Columns))
	}
	if r.audit != nil {
		if err := r.audit.Publish(ctx, "build_report", report); err != nil {
			r.logger.Warn("audit publish failed", "kind", "build_report", "error", err)
		}
	}

	r.mu.Lock()
	r.master = master
	r.lastBuild = report
	r.built = true
	r.mu.Unlock()
	return nil
}

// Rescan runs the pipeline and refreshes the column scan without
// assembling the master dataset. Returns how many new columns appeared.
func (r *Runner) Rescan(ctx context.Context) (int, error) {
	res, err := r.pipeline.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline: %w", err)
	}
	added, err := r.store.Scan(res.Tables)
	if err != nil {
		return 0, fmt.Errorf("column scan: %w", err)
	}
	return added, nil
}

// Master returns the current master dataset; ok is false before the
// first successful rebuild.
func (r *Runner) Master() (*frame.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.master, r.built
}

// LastBuild returns the most recent successful build report.
func (r *Runner) LastBuild() (build.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastBuild, r.built
}

// CheckReadiness reports whether a master dataset has been published.
func (r *Runner) CheckReadiness(context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.built {
		return errors.New("no master dataset built yet")
	}
	return nil
}
