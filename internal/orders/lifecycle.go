package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox"
)

const maxReasonLength = 500

// CancelOrder cancels a pending or processing order, returns its stock and
// refunds a paid card payment. The cancellation commits before the refund is
// attempted, so a gateway failure is reported on the result instead of
// undoing the cancel.
func (s *service) CancelOrder(ctx context.Context, input CancelInput) (*CancelResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reason := strings.TrimSpace(input.Reason)
	if len(reason) > maxReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel reason too long")
	}
	now := s.now().UTC()

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadErr(err)
		}
		if !input.Actor.IsStaff() && !input.Actor.owns(found) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err := s.cancelLocked(ctx, tx, found, reason, nil, actorRef(input.Actor), now); err != nil {
			return err
		}
		order = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	source := "customer"
	if input.Actor.IsStaff() {
		source = string(input.Actor.Role)
	}
	s.metrics.IncCancelled(source)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"source":       source,
	}), "order cancelled")

	result := &CancelResult{Order: order}
	if needsRefund(order) {
		refunded, err := s.refund(ctx, order)
		if err != nil {
			result.RefundFailed = true
			result.RefundMessage = err.Error()
			return result, nil
		}
		result.Order = refunded
	}
	return result, nil
}

// cancelLocked moves a locked order to cancelled inside tx, releasing stock
// once. extra carries any payment fields changed by the same transition.
func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, extra map[string]any, actor *outbox.ActorRef, now time.Time) error {
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order cannot be cancelled from %s", order.Status)).
			WithDetails(map[string]any{"status": order.Status})
	}

	fields := map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	}
	for k, v := range extra {
		fields[k] = v
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
		fields["cancel_reason"] = reason
	}
	if order.StockReleasedAt == nil {
		if err := s.stock.Release(ctx, tx, stockLinesFromOrder(order)); err != nil {
			return err
		}
		fields["stock_released_at"] = now
		order.StockReleasedAt = &now
	}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancelReason = reasonPtr
	return s.outbox.Emit(ctx, tx, orderCancelledEvent(order, reason, actor, now))
}

// Advance moves an order forward through the kitchen states. Cancellation has
// its own operation.
func (s *service) Advance(ctx context.Context, id uuid.UUID, next enums.OrderStatus, actor Actor) (*models.Order, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	if next != enums.OrderStatusProcessing && next != enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be processing or completed")
	}
	now := s.now().UTC()

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapLoadErr(err)
		}
		previous := found.Status
		if !previous.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", previous, next)).
				WithDetails(map[string]any{"status": previous, "requested": next})
		}

		fields := map[string]any{"status": next}
		found.Status = next
		if next == enums.OrderStatusCompleted {
			fields["completed_at"] = now
			found.CompletedAt = &now
			// cash is collected on hand-over.
			if found.PaymentMethod == enums.PaymentMethodCashOnDelivery && found.PaymentStatus == enums.PaymentStatusPending {
				fields["payment_status"] = enums.PaymentStatusPaid
				fields["paid_at"] = now
				found.PaymentStatus = enums.PaymentStatusPaid
				found.PaidAt = &now
			}
		}
		if err := repo.Update(ctx, found.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order = found
		return s.outbox.Emit(ctx, tx, orderUpdatedEvent(found, previous, actorRef(actor), now))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateETA sets estimatedCompletionMinutes on an open order.
func (s *service) UpdateETA(ctx context.Context, id uuid.UUID, minutes int, actor Actor) (*models.Order, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	if minutes < 0 || minutes > maxETAMinutes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("estimated minutes must be between 0 and %d", maxETAMinutes))
	}
	now := s.now().UTC()

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return mapLoadErr(err)
		}
		if found.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
		}
		if err := repo.Update(ctx, found.ID, map[string]any{"estimated_completion_minutes": minutes}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order eta")
		}
		found.EstimatedCompletionMinutes = &minutes
		order = found
		return s.outbox.Emit(ctx, tx, orderUpdatedEvent(found, found.Status, actorRef(actor), now))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Refund returns the money of a paid card order. The order status is left
// unchanged.
func (s *service) Refund(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if !needsRefund(order) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only paid card orders can be refunded").
			WithDetails(map[string]any{"payment_method": order.PaymentMethod, "payment_status": order.PaymentStatus})
	}
	return s.refund(ctx, order)
}

// refund calls the gateway and records the attempt either way. A failure
// emits order_refund_failed and is returned as a gateway error.
func (s *service) refund(ctx context.Context, order *models.Order) (*models.Order, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":          order.ID.String(),
		"payment_intent_id": *order.PaymentIntentID,
	})

	count, err := s.repo.CountRefundAttempts(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count refund attempts")
	}
	attempt := &models.RefundAttempt{
		OrderID:         order.ID,
		PaymentIntentID: *order.PaymentIntentID,
		Amount:          order.FinalTotal,
		Attempt:         int(count) + 1,
	}

	callCtx, cancel := s.gatewayCtx(ctx)
	started := time.Now()
	res, gwErr := s.gateway.Refund(callCtx, attempt.PaymentIntentID, fmt.Sprintf("refund-%s-%d", order.ID, attempt.Attempt))
	cancel()
	s.metrics.ObserveGateway("refund", gwErr, time.Since(started))

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		attempt.Status = enums.RefundStatusFromResult(gwErr)
		if gwErr != nil {
			msg := gwErr.Error()
			attempt.Error = &msg
			if res.ID != "" {
				attempt.GatewayRefundID = &res.ID
			}
			if err := repo.CreateRefundAttempt(ctx, attempt); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, refundFailedEvent(order, attempt, now))
		}

		attempt.GatewayRefundID = &res.ID
		if err := repo.CreateRefundAttempt(ctx, attempt); err != nil {
			return err
		}
		if err := repo.Update(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusRefunded,
			"refunded_at":    now,
		}); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusRefunded
		order.RefundedAt = &now
		return s.outbox.Emit(ctx, tx, orderUpdatedEvent(order, order.Status, outbox.SystemActor("refunds"), now))
	})
	if err != nil {
		s.logg.Error(ctx, "record refund attempt", err)
		if gwErr == nil {
			// money moved but the ledger write failed; surface loudly.
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refund succeeded but could not be recorded")
		}
	}

	if gwErr != nil {
		s.metrics.IncRefundFailure()
		s.logg.Error(ctx, "refund failed", gwErr)
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, gwErr, "refund failed").
			WithDetails(map[string]any{"attempt": attempt.Attempt})
	}
	s.logg.Info(ctx, "order refunded")
	return order, nil
}
