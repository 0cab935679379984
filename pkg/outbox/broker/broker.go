// Package broker defines the transport-neutral message the outbox publisher
// hands to Pub/Sub, RabbitMQ or Kafka.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
)

// Message is one outbox row ready for delivery.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Publisher delivers a message synchronously and reports the broker's verdict.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}

// FromOutbox builds the message for an outbox row. The aggregate id is the
// partition/ordering key so events for one order stay in order.
func FromOutbox(topic, eventID string, event models.OutboxEvent) Message {
	return Message{
		Topic: topic,
		Key:   event.AggregateID.String(),
		Data:  event.Payload,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// PermanentError marks a broker rejection that will not succeed on retry,
// such as a missing topic or an oversized message.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string { return "permanent broker error: " + e.Err.Error() }
func (e PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var perm PermanentError
	return errors.As(err, &perm)
}
