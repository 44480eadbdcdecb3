package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryDueHonorsCadence(t *testing.T) {
	registry := NewRegistry()
	fast := &stubJob{name: "fast"}
	slow := &stubJob{name: "slow"}
	registry.Register(fast, time.Minute)
	registry.Register(slow, time.Hour)
	registry.Register(nil, time.Minute)
	registry.Register(&stubJob{name: "never"}, 0)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if due := registry.Due(start); len(due) != 2 || due[0] != fast || due[1] != slow {
		t.Fatalf("expected both jobs due at start, got %v", due)
	}
	if due := registry.Due(start.Add(30 * time.Second)); len(due) != 0 {
		t.Fatalf("expected nothing due yet, got %d", len(due))
	}
	if due := registry.Due(start.Add(time.Minute)); len(due) != 1 || due[0] != fast {
		t.Fatalf("expected only fast job, got %v", due)
	}
	if due := registry.Due(start.Add(time.Hour)); len(due) != 2 {
		t.Fatalf("expected both jobs after an hour, got %d", len(due))
	}
	if names := registry.Names(); len(names) != 2 {
		t.Fatalf("expected 2 registered names, got %v", names)
	}
}
