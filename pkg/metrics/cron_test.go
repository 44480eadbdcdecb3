package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsSplitOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "subscription-expiry"
	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncSuccess(job)
	m.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "oddsvault_cron_job_runs_total", "outcome", "success"); err != nil || got != 2 {
		t.Fatalf("success runs = %v, %v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "oddsvault_cron_job_runs_total", "outcome", "failure"); err != nil || got != 1 {
		t.Fatalf("failure runs = %v, %v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "oddsvault_cron_job_duration_seconds", "job", job); err != nil || got != 0.25 {
		t.Fatalf("duration sum = %v, %v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("x")
	cron.ObserveDuration("x", time.Second)
	NewCronJobMetrics(nil).IncFailure("x")

	var outbox *OutboxMetrics
	outbox.Record("transaction_created", "published")
	NewHTTPMetrics(nil).Observe("GET", "/api/plans", 200, time.Millisecond)
}

func TestOutboxAndHTTPMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	outbox := NewOutboxMetrics(reg)
	outbox.Record("transaction_created", "published")
	outbox.Record("transaction_created", "dead_letter")
	outbox.ObserveBatch(time.Second)
	httpMetrics := NewHTTPMetrics(reg)
	httpMetrics.Observe("GET", "/api/predictions/{id}", 200, 500*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "oddsvault_outbox_events_total", "outcome", "dead_letter"); err != nil || got != 1 {
		t.Fatalf("dead letters = %v, %v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "oddsvault_http_request_duration_seconds", "route", "/api/predictions/{id}"); err != nil || got != 0.5 {
		t.Fatalf("http duration = %v, %v", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
