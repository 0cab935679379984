package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/restaurant-backend/pkg/redis"
)

// ClaimState is the outcome of claiming a gateway event id.
type ClaimState int

const (
	// ClaimAcquired means this delivery owns the event and must apply it.
	ClaimAcquired ClaimState = iota
	// ClaimInFlight means another delivery is applying it right now.
	ClaimInFlight
	// ClaimDone means the event was already applied.
	ClaimDone
)

const (
	markerProcessing = "processing"
	markerDone       = "done"

	// processingTTL bounds how long a crashed delivery blocks redeliveries.
	processingTTL = 2 * time.Minute
)

// EventGuard remembers gateway event ids in Redis. A claimed event is marked
// processing until Complete stores it as done for the configured TTL.
type EventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &EventGuard{store: store, ttl: ttl, scope: scope}, nil
}

func (g *EventGuard) key(eventID string) string {
	return g.store.IdempotencyKey(g.scope, eventID)
}

func (g *EventGuard) processingTTL() time.Duration {
	if g.ttl > 0 && g.ttl < processingTTL {
		return g.ttl
	}
	return processingTTL
}

// Claim marks the event as processing unless an earlier delivery holds it.
func (g *EventGuard) Claim(ctx context.Context, eventID string) (ClaimState, error) {
	if eventID == "" {
		return ClaimInFlight, errors.New("event id is required")
	}
	key := g.key(eventID)
	set, err := g.store.SetNX(ctx, key, markerProcessing, g.processingTTL())
	if err != nil {
		return ClaimInFlight, fmt.Errorf("claim webhook event: %w", err)
	}
	if set {
		return ClaimAcquired, nil
	}

	marker, err := g.store.Get(ctx, key)
	if err != nil && !redis.IsMiss(err) {
		return ClaimInFlight, fmt.Errorf("read webhook claim: %w", err)
	}
	if marker == markerDone {
		return ClaimDone, nil
	}
	return ClaimInFlight, nil
}

// Complete records the event as applied.
func (g *EventGuard) Complete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.key(eventID)
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("clear webhook claim: %w", err)
	}
	if _, err := g.store.SetNX(ctx, key, markerDone, g.ttl); err != nil {
		return fmt.Errorf("complete webhook event: %w", err)
	}
	return nil
}

// Release forgets a claim so a failed delivery can be retried by the gateway.
func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.key(eventID))
}
