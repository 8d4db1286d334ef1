// Package metrics provides Prometheus metrics for movie-roi runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one analysis run.
type Metrics struct {
	registry *prometheus.Registry

	// Table metrics
	RowsLoaded   *prometheus.GaugeVec
	RowsRetained *prometheus.GaugeVec
	Retention    *prometheus.GaugeVec

	// Genre metrics
	VocabularySize prometheus.Gauge
	SubgenreCount  *prometheus.GaugeVec

	// Output metrics
	OutputBytes *prometheus.GaugeVec
	OutputRows  *prometheus.GaugeVec

	// Timing metrics
	StageDuration *prometheus.HistogramVec
	LastRunTime   prometheus.Gauge

	// Error metrics
	Errors *prometheus.CounterVec
}

// New creates metrics registered on a private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "movie_roi"
	}

	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsLoaded: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rows_loaded",
				Help:      "Rows read from each input table",
			},
			[]string{"table"},
		),
		RowsRetained: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rows_retained",
				Help:      "Rows left after each join stage",
			},
			[]string{"stage"},
		),
		Retention: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "retention_ratio",
				Help:      "Fraction of rows kept by each join stage",
			},
			[]string{"stage"},
		),
		VocabularySize: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "genre_vocabulary_size",
				Help:      "Number of distinct genre tags",
			},
		),
		SubgenreCount: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "subgenre_rows",
				Help:      "Rows whose genres field matches each tag",
			},
			[]string{"genre"},
		),
		OutputBytes: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "output_bytes",
				Help:      "Size of each written output file in bytes",
			},
			[]string{"table", "format"},
		),
		OutputRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "output_rows",
				Help:      "Rows in each written output file",
			},
			[]string{"table", "format"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"stage"},
		),
		LastRunTime: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
		),
		Errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of run failures by stage",
			},
			[]string{"stage"},
		),
	}
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// SetRowsLoaded records the row count of an input table.
func (m *Metrics) SetRowsLoaded(table string, rows int) {
	m.RowsLoaded.WithLabelValues(table).Set(float64(rows))
}

// SetStageRetention records rows kept and the retention ratio of a join stage.
func (m *Metrics) SetStageRetention(stage string, rows int, ratio float64) {
	m.RowsRetained.WithLabelValues(stage).Set(float64(rows))
	m.Retention.WithLabelValues(stage).Set(ratio)
}

// SetGenreCounts records the vocabulary size and per-tag counts.
func (m *Metrics) SetGenreCounts(vocabSize int, counts map[string]int) {
	m.VocabularySize.Set(float64(vocabSize))
	for tag, n := range counts {
		m.SubgenreCount.WithLabelValues(tag).Set(float64(n))
	}
}

// SetOutput records the size of a written output file.
func (m *Metrics) SetOutput(table, format string, bytes, rows int64) {
	m.OutputBytes.WithLabelValues(table, format).Set(float64(bytes))
	m.OutputRows.WithLabelValues(table, format).Set(float64(rows))
}

// ObserveStageDuration records the time spent in a stage.
func (m *Metrics) ObserveStageDuration(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// IncErrors increments the error counter for a stage.
func (m *Metrics) IncErrors(stage string) {
	m.Errors.WithLabelValues(stage).Inc()
}

// MarkRunComplete sets the last run timestamp to now.
func (m *Metrics) MarkRunComplete() {
	m.LastRunTime.SetToCurrentTime()
}
