package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/restaurant-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

type call struct {
	intentID string
	kind     orders.PaymentEventKind
}

type stubHandler struct {
	calls []call
	err   error
}

func (s *stubHandler) HandlePaymentEvent(_ context.Context, intentID string, kind orders.PaymentEventKind) (*orders.PaymentEventResult, error) {
	s.calls = append(s.calls, call{intentID: intentID, kind: kind})
	if s.err != nil {
		return nil, s.err
	}
	return &orders.PaymentEventResult{Applied: true}, nil
}

func newTestService(t *testing.T, handler *stubHandler) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
	svc, err := NewService(handler, logg)
	require.NoError(t, err)
	return svc
}

func intentEvent(t *testing.T, eventType stripe.EventType, intentID string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(&stripe.PaymentIntent{ID: intentID, Status: stripe.PaymentIntentStatusSucceeded})
	require.NoError(t, err)
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func TestHandleEventMapsPaymentIntentTypes(t *testing.T) {
	cases := map[stripe.EventType]orders.PaymentEventKind{
		stripe.EventTypePaymentIntentSucceeded:     orders.PaymentEventSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed: orders.PaymentEventFailed,
		stripe.EventTypePaymentIntentCanceled:      orders.PaymentEventCanceled,
		stripe.EventTypePaymentIntentProcessing:    orders.PaymentEventProcessing,
	}
	for eventType, want := range cases {
		handler := &stubHandler{}
		svc := newTestService(t, handler)
		require.NoError(t, svc.HandleEvent(context.Background(), intentEvent(t, eventType, "pi_42")))
		require.Len(t, handler.calls, 1, string(eventType))
		assert.Equal(t, call{intentID: "pi_42", kind: want}, handler.calls[0])
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	handler := &stubHandler{}
	svc := newTestService(t, handler)
	require.NoError(t, svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypeChargeRefunded, "pi_1")))
	assert.Empty(t, handler.calls)
}

func TestHandleEventAcknowledgesUnknownIntent(t *testing.T) {
	handler := &stubHandler{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newTestService(t, handler)
	assert.NoError(t, svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_x")))
}

func TestHandleEventSurfacesOtherFailures(t *testing.T) {
	handler := &stubHandler{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "load order")}
	svc := newTestService(t, handler)
	err := svc.HandleEvent(context.Background(), intentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_x"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestHandleEventRejectsMissingIntent(t *testing.T) {
	svc := newTestService(t, &stubHandler{})
	err := svc.HandleEvent(context.Background(), &stripe.Event{
		Type: stripe.EventTypePaymentIntentSucceeded,
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Error(t, svc.HandleEvent(context.Background(), nil))
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "restaurant:idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func TestEventGuardClaimStates(t *testing.T) {
	guard, err := NewEventGuard(&memoryStore{data: map[string]string{}}, time.Hour, "stripe")
	require.NoError(t, err)
	ctx := context.Background()

	state, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, ClaimAcquired, state)
	state, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, ClaimInFlight, state)

	require.NoError(t, guard.Release(ctx, "evt_1"))
	state, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, ClaimAcquired, state)

	require.NoError(t, guard.Complete(ctx, "evt_1"))
	state, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, ClaimDone, state)

	_, err = guard.Claim(ctx, "")
	assert.Error(t, err)
	assert.Error(t, guard.Complete(ctx, ""))
	_, err = NewEventGuard(nil, time.Hour, "stripe")
	assert.Error(t, err)
}

func TestEventGuardProcessingTTLNeverExceedsRetention(t *testing.T) {
	short, err := NewEventGuard(&memoryStore{data: map[string]string{}}, 30*time.Second, "stripe")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, short.processingTTL())

	long, err := NewEventGuard(&memoryStore{data: map[string]string{}}, 24*time.Hour, "stripe")
	require.NoError(t, err)
	assert.Equal(t, processingTTL, long.processingTTL())
}
