package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name  string
	every time.Duration
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

type cadencedJob struct {
	stubJob
}

func (c *cadencedJob) Every() time.Duration { return c.every }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryReplacesJobWithSameName(t *testing.T) {
	first := &stubJob{name: "price-override-sweep"}
	second := &stubJob{name: "price-override-sweep"}
	registry := NewRegistry(first, second)
	jobs := registry.Jobs()
	if len(jobs) != 1 || jobs[0] != second {
		t.Fatalf("expected the later registration to win, got %v", jobs)
	}
}

func TestRegistryDueHonoursCadence(t *testing.T) {
	every := &stubJob{name: "payment-reconcile"}
	daily := &cadencedJob{stubJob{name: "outbox-retention", every: 24 * time.Hour}}
	registry := NewRegistry(every, daily)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if due := registry.Due(start); len(due) != 2 {
		t.Fatalf("expected both jobs on the first cycle, got %d", len(due))
	}
	due := registry.Due(start.Add(5 * time.Minute))
	if len(due) != 1 || due[0] != every {
		t.Fatalf("expected only the uncadenced job, got %v", due)
	}
	if due := registry.Due(start.Add(24 * time.Hour)); len(due) != 2 {
		t.Fatalf("expected the daily job to be due again, got %d", len(due))
	}
}
