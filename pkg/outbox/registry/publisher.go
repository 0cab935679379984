package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// maxEnvelopeVersion is the newest envelope layout this publisher understands.
const maxEnvelopeVersion = 1

// aggregateRef is implemented by every payload so the row key and the
// payload cannot disagree about which order they describe.
type aggregateRef interface {
	AggregateRef() uuid.UUID
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

var payloadFactories = map[enums.OutboxEventType]func() any{
	enums.EventOrderCreated:           func() any { return &payloads.OrderCreatedEvent{} },
	enums.EventOrderUpdated:           func() any { return &payloads.OrderUpdatedEvent{} },
	enums.EventOrderCancelled:         func() any { return &payloads.OrderCancelledEvent{} },
	enums.EventOrderPaymentSucceeded:  func() any { return &payloads.OrderPaymentEvent{} },
	enums.EventOrderPaymentFailed:     func() any { return &payloads.OrderPaymentEvent{} },
	enums.EventOrderPaymentProcessing: func() any { return &payloads.OrderPaymentEvent{} },
	enums.EventOrderRefundFailed:      func() any { return &payloads.OrderRefundFailedEvent{} },
	enums.EventPriceOverrideExpired:   func() any { return &payloads.PriceOverrideExpiredEvent{} },
}

// NewEventRegistry registers every event under the broker-specific topic name.
func NewEventRegistry(topic string) (*EventRegistry, error) {
	if topic == "" {
		return nil, fmt.Errorf("events topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	for _, eventType := range enums.OutboxEventTypes() {
		factory, ok := payloadFactories[eventType]
		if !ok {
			return nil, fmt.Errorf("no payload schema for %s", eventType)
		}
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateType:  eventType.Aggregate(),
			Topic:          topic,
			PayloadFactory: factory,
		})
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload. Every failure is
// non-retryable: the row bytes will not change between attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.describe(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	envelope, err := openEnvelope(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	if ref, ok := payload.(aggregateRef); ok && ref.AggregateRef() != event.AggregateID {
		return nil, NewNonRetryableError(fmt.Errorf("payload references %s but row is keyed %s", ref.AggregateRef(), event.AggregateID))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) describe(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return desc, fmt.Errorf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return desc, fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return desc, fmt.Errorf("missing aggregate_id")
	}
	return desc, nil
}

func openEnvelope(event models.OutboxEvent) (outbox.PayloadEnvelope, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return envelope, fmt.Errorf("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(envelope.Data)
	switch {
	case envelope.Version < 1 || envelope.Version > maxEnvelopeVersion:
		return envelope, fmt.Errorf("unsupported envelope version %d", envelope.Version)
	case envelope.EventID == "":
		return envelope, fmt.Errorf("envelope missing event id")
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return envelope, fmt.Errorf("payload missing for %s", event.EventType)
	}
	return envelope, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
