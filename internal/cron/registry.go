package cron

import (
	"context"
	"time"
)

// Job is a unit of scheduled work run by cmd/cron-worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job     Job
	every   time.Duration
	nextRun time.Time
}

// Registry holds jobs with their cadence. A zero nextRun makes a job due on
// the first tick after start.
type Registry struct {
	entries []*entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register schedules job every interval. Nil jobs and non-positive
// intervals are ignored.
func (r *Registry) Register(job Job, every time.Duration) {
	if job == nil || every <= 0 {
		return
	}
	r.entries = append(r.entries, &entry{job: job, every: every})
}

// Due returns the jobs whose next run is at or before now, in registration
// order, and advances their schedule.
func (r *Registry) Due(now time.Time) []Job {
	var due []Job
	for _, e := range r.entries {
		if e.nextRun.After(now) {
			continue
		}
		due = append(due, e.job)
		e.nextRun = now.Add(e.every)
	}
	return due
}

// Names lists registered job names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.job.Name())
	}
	return names
}
