package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestImporterMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewImporterMetrics(reg)
	m.AddFixtures("vip", 12)
	m.AddKept("vip", true, 3)
	m.IncOddsFailure()
	m.ObserveRun(false, 2*time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "importer_fixtures_fetched_total", "plan_type", "vip"); err != nil || got != 12 {
		t.Fatalf("fixtures counter = %v, %v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "importer_candidates_kept_total", "mode", "preview"); err != nil || got != 3 {
		t.Fatalf("kept counter = %v, %v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "importer_run_duration_seconds", "mode", "sync"); err != nil || got != 2 {
		t.Fatalf("duration sum = %v, %v", got, err)
	}
}

func TestNilImporterMetricsAreSafe(t *testing.T) {
	var m *ImporterMetrics
	m.AddFixtures("x", 1)
	m.AddKept("x", false, 1)
	m.IncOddsFailure()
	m.ObserveRun(true, time.Second)
	NewImporterMetrics(nil).AddFixtures("x", 1)
}
