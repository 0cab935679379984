package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angelmondragon/restaurant-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
	held     bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held || f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name  string
	err   error
	runs  int
	every time.Duration
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func (t *testJob) Every() time.Duration { return t.every }

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "price-override-sweep"}
	failure := &testJob{name: "payment-reconcile", err: errors.New("boom")}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(success, failure),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	err = service.runCycle(context.Background())
	if err == nil || !errors.Is(err, failure.err) {
		t.Fatalf("expected the failing job's error, got %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", success.runs, failure.runs)
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewCronJobMetrics(reg)
	job := &testJob{name: "price-override-sweep"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
		Metrics:  jobMetrics,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run without the lock")
	}
	if got := testutil.ToFloat64(jobMetrics.Skipped()); got != 1 {
		t.Fatalf("expected one skipped cycle, got %v", got)
	}
}

func TestServiceRespectsJobCadence(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	retention := &testJob{name: "outbox-retention", every: 24 * time.Hour}
	sweep := &testJob{name: "price-override-sweep"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(sweep, retention),
		Lock:     &fakeLock{},
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := service.runCycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		now = now.Add(5 * time.Minute)
	}
	if sweep.runs != 3 || retention.runs != 1 {
		t.Fatalf("expected sweep=3 retention=1, got %d and %d", sweep.runs, retention.runs)
	}
}

type panickyJob struct{}

func (panickyJob) Name() string              { return "panicky" }
func (panickyJob) Run(context.Context) error { panic("nil map") }

type slowJob struct{ timeout time.Duration }

func (slowJob) Name() string { return "slow" }

func (j slowJob) Timeout() time.Duration { return j.timeout }

func (slowJob) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestServiceIsolatesPanickingJob(t *testing.T) {
	after := &testJob{name: "after"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(panickyJob{}, after),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	err = service.runCycle(context.Background())
	if err == nil {
		t.Fatalf("expected the panic to surface as an error")
	}
	if after.runs != 1 {
		t.Fatalf("job after the panic should still run, ran %d times", after.runs)
	}
}

func TestServiceBoundsJobByTimeout(t *testing.T) {
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(slowJob{timeout: 10 * time.Millisecond}),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	err = service.runCycle(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
