package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/hurricane-panel/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hurricane-panel/internal/adapter/kafka"
	"github.com/couchcryptid/hurricane-panel/internal/build"
	"github.com/couchcryptid/hurricane-panel/internal/colconfig"
	"github.com/couchcryptid/hurricane-panel/internal/config"
	"github.com/couchcryptid/hurricane-panel/internal/merge"
	"github.com/couchcryptid/hurricane-panel/internal/observability"
	"github.com/couchcryptid/hurricane-panel/internal/pipeline"
	"github.com/couchcryptid/hurricane-panel/internal/rebuild"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	manifest, err := config.LoadManifest(cfg.ManifestPath)
	if err != nil {
		logger.Error("failed to load manifest", "error", err)
		os.Exit(1)
	}
	region, err := manifest.LoadRegion()
	if err != nil {
		logger.Error("failed to load region", "error", err)
		os.Exit(1)
	}

	store, err := colconfig.Open(cfg.ConfigDBPath, logger)
	if err != nil {
		logger.Error("failed to open column config store", "error", err)
		os.Exit(1)
	}

	audit := kafkaadapter.NewSink(cfg, logger)
	if audit != nil {
		logger.Info("kafka audit sink enabled", "topic", cfg.AuditTopic)
	}

	p := pipeline.New(manifest, region, logger, metrics, audit)
	builder := &build.Builder{
		Grain:  []string{merge.ColEntity, merge.ColDate},
		Logger: logger,
	}
	runner := pipeline.NewRunner(p, builder, store, cfg.ArtifactPath, logger, metrics, audit)

	controller := rebuild.New(rebuild.Config{
		Build:    runner.Rebuild,
		Debounce: cfg.DebounceInterval,
		Logger:   logger,
		OnState: func(s rebuild.State) {
			metrics.ControllerState.Set(float64(s))
		},
	})
	store.SetOnChange(controller.NotifyChange)

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, controller, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start rebuild controller and run the initial build.
	go func() {
		if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("rebuild controller error", "error", err)
		}
	}()
	controller.RebuildNow()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("column config store close error", "error", err)
	}
	if err := audit.Close(); err != nil {
		logger.Error("kafka audit sink close error", "error", err)
	}

	logger.Info("shutdown complete")
}
