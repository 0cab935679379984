package orders

import (
	"time"

	"github.com/angelmondragon/restaurant-backend/internal/cart"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox/payloads"
)

func actorFromOwner(owner cart.Owner) *outbox.ActorRef {
	if owner.UserID != nil {
		return &outbox.ActorRef{UserID: owner.UserID, Role: string(enums.ActorRoleCustomer)}
	}
	return &outbox.ActorRef{SessionID: owner.SessionID, Role: string(enums.ActorRoleCustomer)}
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, SessionID: actor.SessionID, Role: string(actor.Role)}
}

func orderEvent(eventType enums.OutboxEventType, order *models.Order, actor *outbox.ActorRef, at time.Time, data any) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		OccurredAt:    at.UTC(),
		Data:          data,
	}
}

func orderCreatedEvent(order *models.Order, actor *outbox.ActorRef, at time.Time) outbox.DomainEvent {
	return orderEvent(enums.EventOrderCreated, order, actor, at, payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		BranchID:      order.BranchID,
		UserID:        order.UserID,
		OrderType:     order.OrderType,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		FinalTotal:    order.FinalTotal,
		Currency:      order.Currency,
		LineCount:     len(order.Lines),
	})
}

func orderUpdatedEvent(order *models.Order, previous enums.OrderStatus, actor *outbox.ActorRef, at time.Time) outbox.DomainEvent {
	return orderEvent(enums.EventOrderUpdated, order, actor, at, payloads.OrderUpdatedEvent{
		OrderID:                    order.ID,
		OrderNumber:                order.OrderNumber,
		BranchID:                   order.BranchID,
		PreviousStatus:             previous,
		Status:                     order.Status,
		PaymentStatus:              order.PaymentStatus,
		EstimatedCompletionMinutes: order.EstimatedCompletionMinutes,
	})
}

func orderCancelledEvent(order *models.Order, reason string, actor *outbox.ActorRef, at time.Time) outbox.DomainEvent {
	return orderEvent(enums.EventOrderCancelled, order, actor, at, payloads.OrderCancelledEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		BranchID:      order.BranchID,
		Reason:        reason,
		PaymentStatus: order.PaymentStatus,
		RefundPending: needsRefund(order),
		CancelledAt:   at.UTC(),
	})
}

func paymentEvent(eventType enums.OutboxEventType, order *models.Order, at time.Time) outbox.DomainEvent {
	intentID := ""
	if order.PaymentIntentID != nil {
		intentID = *order.PaymentIntentID
	}
	return orderEvent(eventType, order, outbox.SystemActor("payment_gateway"), at, payloads.OrderPaymentEvent{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		BranchID:        order.BranchID,
		PaymentIntentID: intentID,
		PaymentStatus:   order.PaymentStatus,
		Status:          order.Status,
	})
}

func refundFailedEvent(order *models.Order, attempt *models.RefundAttempt, at time.Time) outbox.DomainEvent {
	msg := ""
	if attempt.Error != nil {
		msg = *attempt.Error
	}
	return orderEvent(enums.EventOrderRefundFailed, order, outbox.SystemActor("refunds"), at, payloads.OrderRefundFailedEvent{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		PaymentIntentID: attempt.PaymentIntentID,
		Amount:          attempt.Amount,
		Attempt:         attempt.Attempt,
		Error:           msg,
	})
}

func needsRefund(order *models.Order) bool {
	return order.PaymentMethod.UsesGateway() &&
		order.PaymentStatus.CanTransitionTo(enums.PaymentStatusRefunded) &&
		order.PaymentIntentID != nil
}
