package cron

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/restaurant-backend/pkg/instance"
)

type memoryLockStore struct {
	values map[string]string
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryLockStore) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.values[key] != owner {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memoryLockStore) ExtendIfOwner(_ context.Context, key, owner string, _ time.Duration) (bool, error) {
	return m.values[key] == owner, nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "rb:lock:cron-worker:test", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "rb:lock:cron-worker:test", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(store.values["rb:lock:cron-worker:test"], instance.GetID()+":"))

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.values, "rb:lock:cron-worker:test")

	held, err := first.Extend(context.Background())
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, first.Release(context.Background()))
	assert.NotContains(t, store.values, "rb:lock:cron-worker:test")
}

func TestServiceStopsCycleWhenLeaseIsLost(t *testing.T) {
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "rb:lock:cron-worker:test", time.Minute)
	require.NoError(t, err)

	stealer := &testJob{name: "price-override-sweep"}
	after := &testJob{name: "payment-reconcile"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(stealingJob{testJob: stealer, store: store}, after),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Equal(t, 1, stealer.runs)
	assert.Equal(t, 0, after.runs)
}

// stealingJob simulates the lease expiring and another worker taking it.
type stealingJob struct {
	*testJob
	store *memoryLockStore
}

func (s stealingJob) Run(ctx context.Context) error {
	for key := range s.store.values {
		s.store.values[key] = "other-worker"
	}
	return s.testJob.Run(ctx)
}
