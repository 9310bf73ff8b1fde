// Package telemetry holds the run's Prometheus metrics and the structured
// logger shared by every stage.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/viniciusrubens/featurepipe/pkg/errs"
)

const metricsNamespace = "featurepipe"

// Metrics is the set of collectors for one run. Each Metrics owns its own
// registry, so runs and tests never share counters.
type Metrics struct {
	Registry *prometheus.Registry

	// StageDuration measures each transition in seconds.
	// Labels: stage
	StageDuration *prometheus.HistogramVec

	// StageFailures counts fatal transitions by error kind.
	// Labels: stage, kind
	StageFailures *prometheus.CounterVec

	// ArtifactFailures counts artifacts that could not be written.
	// Labels: artifact
	ArtifactFailures *prometheus.CounterVec

	// VisualizationFailures counts plot renders that failed.
	VisualizationFailures prometheus.Counter

	// RowsWritten is the row count of the last feature store write.
	RowsWritten prometheus.Gauge

	// Accuracy is the held-out accuracy of the last evaluation.
	Accuracy prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"stage"},
		),
		StageFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "stage_failures_total",
				Help:      "Fatal stage failures by stage and error kind",
			},
			[]string{"stage", "kind"},
		),
		ArtifactFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "artifact_failures_total",
				Help:      "Artifacts that could not be written",
			},
			[]string{"artifact"},
		),
		VisualizationFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "visualization_failures_total",
			Help:      "Plot renders that failed",
		}),
		RowsWritten: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "feature_rows_written",
			Help:      "Rows written to the feature store by the last run",
		}),
		Accuracy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "model_accuracy",
			Help:      "Held-out accuracy of the last trained model",
		}),
	}
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordFailure counts a fatal error in stage under its kind.
func (m *Metrics) RecordFailure(stage string, err error) {
	m.StageFailures.WithLabelValues(stage, string(errs.KindOf(err))).Inc()
}

// WriteTextfile writes every metric to path in the Prometheus text format,
// creating the parent directory if needed.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}
