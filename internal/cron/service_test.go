package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/metrics"
)

type fakeLock struct {
	busy     map[string]bool
	released []string
}

func (f *fakeLock) Acquire(_ context.Context, job string) (bool, error) {
	if f.busy[job] {
		return false, nil
	}
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, job string) error {
	f.released = append(f.released, job)
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestRunDueContinuesAfterFailureAndSkipsLockedJobs(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	ok := &testJob{name: "subscription-expiry"}
	failing := &testJob{name: "notification-cleanup", err: errors.New("boom")}
	locked := &testJob{name: "outbox-retention"}

	registry := NewRegistry()
	registry.Register(ok, time.Minute)
	registry.Register(failing, time.Minute)
	registry.Register(locked, time.Minute)

	reg := prometheus.NewRegistry()
	lock := &fakeLock{busy: map[string]bool{"outbox-retention": true}}
	svc, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Now:      func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	svc.runDue(context.Background())

	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected both unlocked jobs to run once, got %d and %d", ok.runs, failing.runs)
	}
	if locked.runs != 0 {
		t.Fatalf("job held by another instance must not run")
	}
	if len(lock.released) != 2 {
		t.Fatalf("expected two releases, got %v", lock.released)
	}
	count, err := testutil.GatherAndCount(reg, "oddsvault_cron_job_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected one success and one failure series, got %d", count)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Lock:   &fakeLock{},
		Tick:   time.Millisecond,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
