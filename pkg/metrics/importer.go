package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImporterMetrics tracks prediction sync runs.
type ImporterMetrics struct {
	fixtures  *prometheus.CounterVec
	kept      *prometheus.CounterVec
	oddsFails prometheus.Counter
	duration  *prometheus.HistogramVec
}

func NewImporterMetrics(reg prometheus.Registerer) *ImporterMetrics {
	if reg == nil {
		return &ImporterMetrics{}
	}
	fixtures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_fixtures_fetched_total",
		Help: "Fixtures fetched from the sports data provider.",
	}, []string{"plan_type"})
	kept := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_candidates_kept_total",
		Help: "Prediction candidates that passed the confidence and odds filters.",
	}, []string{"plan_type", "mode"})
	oddsFails := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "importer_odds_failures_total",
		Help: "Fixtures skipped because their odds could not be fetched.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "importer_run_duration_seconds",
		Help:    "Duration of importer runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	reg.MustRegister(fixtures, kept, oddsFails, duration)
	return &ImporterMetrics{fixtures: fixtures, kept: kept, oddsFails: oddsFails, duration: duration}
}

func (m *ImporterMetrics) AddFixtures(planType string, n int) {
	if m == nil || m.fixtures == nil {
		return
	}
	m.fixtures.WithLabelValues(normalizeLabel(planType)).Add(float64(n))
}

func (m *ImporterMetrics) AddKept(planType string, preview bool, n int) {
	if m == nil || m.kept == nil {
		return
	}
	m.kept.WithLabelValues(normalizeLabel(planType), modeLabel(preview)).Add(float64(n))
}

func (m *ImporterMetrics) IncOddsFailure() {
	if m == nil || m.oddsFails == nil {
		return
	}
	m.oddsFails.Inc()
}

func (m *ImporterMetrics) ObserveRun(preview bool, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(modeLabel(preview)).Observe(d.Seconds())
}

func modeLabel(preview bool) string {
	if preview {
		return "preview"
	}
	return "sync"
}
