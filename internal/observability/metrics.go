package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// panel pipeline.
type Metrics struct {
	RowsCleaned     *prometheus.CounterVec // labels: dataset
	RowsDropped     *prometheus.CounterVec // labels: dataset, reason={sparse,bad_date,filtered}
	StormsRetained  prometheus.Gauge
	EventsMatched   prometheus.Counter
	EventsUnmatched prometheus.Counter

	// Rebuild metrics.
	BuildsTotal     prometheus.Counter
	BuildsFailed    prometheus.Counter
	BuildDuration   prometheus.Histogram
	PanelRows       prometheus.Gauge
	PanelColumns    prometheus.Gauge
	ControllerState prometheus.Gauge // 0=idle 1=pending 2=rebuilding 3=failed
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsCleaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hurricane_panel",
			Name:      "rows_cleaned_total",
			Help:      "Rows surviving cleaning, by source dataset.",
		}, []string{"dataset"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hurricane_panel",
			Name:      "rows_dropped_total",
			Help:      "Rows dropped during cleaning, by source dataset and reason.",
		}, []string{"dataset", "reason"}),
		StormsRetained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hurricane_panel",
			Name:      "storms_retained",
			Help:      "Storms passing the proximity filter in the latest run.",
		}),
		EventsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hurricane_panel",
			Name:      "events_matched_total",
			Help:      "Economic event rows matched to a tracked storm.",
		}),
		EventsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hurricane_panel",
			Name:      "events_unmatched_total",
			Help:      "Economic event rows with no matching tracked storm.",
		}),
		BuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hurricane_panel",
			Name:      "builds_total",
			Help:      "Master dataset rebuilds attempted.",
		}),
		BuildsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hurricane_panel",
			Name:      "builds_failed_total",
			Help:      "Master dataset rebuilds that ended in failure.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hurricane_panel",
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete master dataset rebuild.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PanelRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hurricane_panel",
			Name:      "master_rows",
			Help:      "Rows in the current master dataset artifact.",
		}),
		PanelColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hurricane_panel",
			Name:      "master_columns",
			Help:      "Columns in the current master dataset artifact.",
		}),
		ControllerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hurricane_panel",
			Name:      "controller_state",
			Help:      "Rebuild controller state: 0 idle, 1 pending, 2 rebuilding, 3 failed.",
		}),
	}

	prometheus.MustRegister(
		m.RowsCleaned,
		m.RowsDropped,
		m.StormsRetained,
		m.EventsMatched,
		m.EventsUnmatched,
		m.BuildsTotal,
		m.BuildsFailed,
		m.BuildDuration,
		m.PanelRows,
		m.PanelColumns,
		m.ControllerState,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsCleaned:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hurricane_panel", Name: "rows_cleaned_total"}, []string{"dataset"}),
		RowsDropped:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hurricane_panel", Name: "rows_dropped_total"}, []string{"dataset", "reason"}),
		StormsRetained:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hurricane_panel", Name: "storms_retained"}),
		EventsMatched:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hurricane_panel", Name: "events_matched_total"}),
		EventsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hurricane_panel", Name: "events_unmatched_total"}),
		BuildsTotal:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hurricane_panel", Name: "builds_total"}),
		BuildsFailed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hurricane_panel", Name: "builds_failed_total"}),
		BuildDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hurricane_panel", Name: "build_duration_seconds"}),
		PanelRows:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hurricane_panel", Name: "master_rows"}),
		PanelColumns:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hurricane_panel", Name: "master_columns"}),
		ControllerState: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hurricane_panel", Name: "controller_state"}),
	}
}
