package cron

import (
	"context"
	"sync"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Cadenced is implemented by jobs that should run less often than the worker
// ticks, such as outbox retention. Jobs without it run on every cycle.
type Cadenced interface {
	Every() time.Duration
}

// Bounded is implemented by jobs that need a deadline other than the worker
// interval.
type Bounded interface {
	Timeout() time.Duration
}

type registryEntry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry tracks registered cron jobs and when each last ran on this
// instance.
type Registry struct {
	mu      sync.Mutex
	entries []*registryEntry
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job to the registry. A second job with the same name
// replaces the first.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	entry := &registryEntry{job: job}
	if cadenced, ok := job.(Cadenced); ok {
		entry.every = cadenced.Every()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.entries {
		if existing.job.Name() == job.Name() {
			r.entries[i] = entry
			return
		}
	}
	r.entries = append(r.entries, entry)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]Job, 0, len(r.entries))
	for _, entry := range r.entries {
		jobs = append(jobs, entry.job)
	}
	return jobs
}

// Due returns the jobs whose cadence has elapsed at now and stamps them as
// run.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, entry := range r.entries {
		if entry.every > 0 && !entry.lastRun.IsZero() && now.Sub(entry.lastRun) < entry.every {
			continue
		}
		entry.lastRun = now
		due = append(due, entry.job)
	}
	return due
}
