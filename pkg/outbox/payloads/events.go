package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once the order snapshot is persisted.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	BranchID      uuid.UUID           `json:"branch_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	OrderType     enums.OrderType     `json:"order_type"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	FinalTotal    decimal.Decimal     `json:"final_total"`
	Currency      string              `json:"currency"`
	LineCount     int                 `json:"line_count"`
}

// OrderUpdatedEvent reports a status or ETA change made by staff.
type OrderUpdatedEvent struct {
	OrderID                    uuid.UUID           `json:"order_id"`
	OrderNumber                string              `json:"order_number"`
	BranchID                   uuid.UUID           `json:"branch_id"`
	PreviousStatus             enums.OrderStatus   `json:"previous_status"`
	Status                     enums.OrderStatus   `json:"status"`
	PaymentStatus              enums.PaymentStatus `json:"payment_status"`
	EstimatedCompletionMinutes *int                `json:"estimated_completion_minutes,omitempty"`
}

// OrderCancelledEvent is emitted for every cancellation path.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	BranchID      uuid.UUID           `json:"branch_id"`
	Reason        string              `json:"reason,omitempty"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	RefundPending bool                `json:"refund_pending"`
	CancelledAt   time.Time           `json:"cancelled_at"`
}

// OrderPaymentEvent covers succeeded, failed and processing callbacks.
type OrderPaymentEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderNumber     string              `json:"order_number"`
	BranchID        uuid.UUID           `json:"branch_id"`
	PaymentIntentID string              `json:"payment_intent_id"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	Status          enums.OrderStatus   `json:"status"`
}

// OrderRefundFailedEvent flags a refund that needs manual follow-up.
type OrderRefundFailedEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Amount          decimal.Decimal `json:"amount"`
	Attempt         int             `json:"attempt"`
	Error           string          `json:"error"`
}

// PriceOverrideExpiredEvent is emitted by the expiry sweep.
type PriceOverrideExpiredEvent struct {
	OverrideID uuid.UUID `json:"override_id"`
	ProductID  uuid.UUID `json:"product_id"`
	EndedAt    time.Time `json:"ended_at"`
}

// AggregateRef returns the id the event is keyed under in the outbox.
func (e OrderCreatedEvent) AggregateRef() uuid.UUID      { return e.OrderID }
func (e OrderUpdatedEvent) AggregateRef() uuid.UUID      { return e.OrderID }
func (e OrderCancelledEvent) AggregateRef() uuid.UUID    { return e.OrderID }
func (e OrderPaymentEvent) AggregateRef() uuid.UUID      { return e.OrderID }
func (e OrderRefundFailedEvent) AggregateRef() uuid.UUID { return e.OrderID }
func (e PriceOverrideExpiredEvent) AggregateRef() uuid.UUID {
	return e.OverrideID
}
