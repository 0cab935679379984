package enums

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregatePriceOverride OutboxAggregateType = "price_override"
)

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder || a == AggregatePriceOverride
}

// OutboxEventType is the internal event name notifiers subscribe to.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventOrderUpdated           OutboxEventType = "order_updated"
	EventOrderCancelled         OutboxEventType = "order_cancelled"
	EventOrderPaymentSucceeded  OutboxEventType = "order_payment_succeeded"
	EventOrderPaymentFailed     OutboxEventType = "order_payment_failed"
	EventOrderPaymentProcessing OutboxEventType = "order_payment_processing"
	EventOrderRefundFailed      OutboxEventType = "order_refund_failed"
	EventPriceOverrideExpired   OutboxEventType = "price_override_expired"
)

// eventAggregates pins every event type to the one aggregate it is keyed by.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderCreated:           AggregateOrder,
	EventOrderUpdated:           AggregateOrder,
	EventOrderCancelled:         AggregateOrder,
	EventOrderPaymentSucceeded:  AggregateOrder,
	EventOrderPaymentFailed:     AggregateOrder,
	EventOrderPaymentProcessing: AggregateOrder,
	EventOrderRefundFailed:      AggregateOrder,
	EventPriceOverrideExpired:   AggregatePriceOverride,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type e is keyed by, or "" when unknown.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

// OutboxEventTypes lists every known event type.
func OutboxEventTypes() []OutboxEventType {
	out := make([]OutboxEventType, 0, len(eventAggregates))
	for eventType := range eventAggregates {
		out = append(out, eventType)
	}
	return out
}
