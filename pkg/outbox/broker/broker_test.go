package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

func TestFromOutboxKeysByAggregate(t *testing.T) {
	orderID := uuid.New()
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	msg := FromOutbox("order-events", "evt-1", models.OutboxEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       json.RawMessage(`{"a":1}`),
		CreatedAt:     created,
	})

	assert.Equal(t, "order-events", msg.Topic)
	assert.Equal(t, orderID.String(), msg.Key)
	assert.Equal(t, `{"a":1}`, string(msg.Data))
	assert.Equal(t, "order_cancelled", msg.Attributes["event_type"])
	assert.Equal(t, "evt-1", msg.Attributes["event_id"])
	assert.Equal(t, created.Format(time.RFC3339Nano), msg.Attributes["created_at"])
}

func TestPermanentErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("publish: %w", Permanent(errors.New("topic not found")))
	assert.True(t, IsPermanent(err))
	assert.False(t, IsPermanent(errors.New("timeout")))
	assert.NoError(t, Permanent(nil))
}
