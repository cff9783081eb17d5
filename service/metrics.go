// Copyright © 2025 The MON authors

package service

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/monlang/mon/analysis"
	"github.com/monlang/mon/diagnostic"
)

// Metrics are the Prometheus collectors updated by a Service.
type Metrics struct {
	StageDuration *prometheus.HistogramVec
	Diagnostics   *prometheus.CounterVec
	FatalErrors   *prometheus.CounterVec
	FilesParsed   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mon_analysis_stage_duration_seconds",
			Help:    "Duration of each analysis stage",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"stage"}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mon_diagnostics_total",
			Help: "Diagnostics reported, by code",
		}, []string{"code"}),
		FatalErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mon_analysis_fatal_errors_total",
			Help: "Analyses aborted by a fatal error, by kind",
		}, []string{"kind"}),
		FilesParsed: f.NewCounter(prometheus.CounterOpts{
			Name: "mon_files_parsed_total",
			Help: "Files parsed by analyses",
		}),
	}
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) countDiagnostics(diags []diagnostic.Diagnostic) {
	if m == nil {
		return
	}
	for _, d := range diags {
		m.Diagnostics.WithLabelValues(d.Code.ID()).Inc()
	}
}

func (m *Metrics) countParsed(n int) {
	if m == nil {
		return
	}
	m.FilesParsed.Add(float64(n))
}

func (m *Metrics) countFatal(err error) {
	if m == nil {
		return
	}
	m.FatalErrors.WithLabelValues(fatalKind(err)).Inc()
}

// fatalKind names the kind of a fatal analysis error for metrics and logs.
func fatalKind(err error) string {
	var (
		notFound *analysis.FileNotFoundError
		parse    *analysis.ParseError
		cycle    *analysis.CircularDependencyError
	)
	switch {
	case errors.As(err, &notFound):
		return "file_not_found"
	case errors.As(err, &parse):
		return "parse_error"
	case errors.As(err, &cycle):
		return "circular_dependency"
	default:
		return "other"
	}
}
