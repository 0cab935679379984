package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox"
	paystripe "github.com/angelmondragon/restaurant-backend/pkg/stripe"
)

const defaultRefundMaxAttempts = 5

// HandlePaymentEvent applies a gateway outcome to the order owning the intent.
// Every transition is guarded by the current payment status, so redelivered
// or out-of-order events are no-ops.
func (s *service) HandlePaymentEvent(ctx context.Context, intentID string, kind PaymentEventKind) (*PaymentEventResult, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	switch kind {
	case PaymentEventSucceeded, PaymentEventFailed, PaymentEventCanceled, PaymentEventProcessing:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment event %q", kind))
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"payment_intent_id": intentID, "payment_event": string(kind)})
	now := s.now().UTC()

	result := &PaymentEventResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByIntentForUpdate(ctx, intentID)
		if err != nil {
			return mapLoadErr(err)
		}
		result.Order = order

		var applied bool
		switch kind {
		case PaymentEventSucceeded:
			applied, err = s.applySucceeded(ctx, tx, order, now)
		case PaymentEventFailed, PaymentEventCanceled:
			applied, err = s.applyFailed(ctx, tx, order, now)
		case PaymentEventProcessing:
			applied, err = s.applyProcessing(ctx, tx, order, now)
		}
		result.Applied = applied
		return err
	})
	if err != nil {
		s.metrics.IncPaymentEvent(string(kind), "error")
		return nil, err
	}

	outcome := "ignored"
	if result.Applied {
		outcome = "applied"
	}
	s.metrics.IncPaymentEvent(string(kind), outcome)
	order := result.Order
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "outcome", outcome), "payment event handled")

	if result.Applied && order.Status == enums.OrderStatusCancelled {
		if kind == PaymentEventSucceeded && needsRefund(order) {
			// paid after the customer or staff cancelled.
			if refunded, err := s.refund(ctx, order); err == nil {
				result.Order = refunded
			}
		} else if kind != PaymentEventSucceeded {
			s.metrics.IncCancelled("payment_failed")
		}
	}
	return result, nil
}

func (s *service) applySucceeded(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) (bool, error) {
	if !order.PaymentStatus.CanTransitionTo(enums.PaymentStatusPaid) {
		return false, nil
	}
	fields := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"paid_at":        now,
	}
	order.PaymentStatus = enums.PaymentStatusPaid
	order.PaidAt = &now
	if order.Status == enums.OrderStatusPending {
		fields["status"] = enums.OrderStatusProcessing
		order.Status = enums.OrderStatusProcessing
	}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, fields); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	return true, s.outbox.Emit(ctx, tx, paymentEvent(enums.EventOrderPaymentSucceeded, order, now))
}

func (s *service) applyFailed(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) (bool, error) {
	if !order.PaymentStatus.CanTransitionTo(enums.PaymentStatusFailed) {
		return false, nil
	}
	order.PaymentStatus = enums.PaymentStatusFailed
	if order.Status == enums.OrderStatusPending {
		extra := map[string]any{"payment_status": enums.PaymentStatusFailed}
		if err := s.cancelLocked(ctx, tx, order, "payment failed", extra, outbox.SystemActor("payment_gateway"), now); err != nil {
			return false, err
		}
	} else if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{"payment_status": enums.PaymentStatusFailed}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	return true, s.outbox.Emit(ctx, tx, paymentEvent(enums.EventOrderPaymentFailed, order, now))
}

func (s *service) applyProcessing(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) (bool, error) {
	if !order.PaymentStatus.CanTransitionTo(enums.PaymentStatusProcessing) {
		return false, nil
	}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{"payment_status": enums.PaymentStatusProcessing}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment processing")
	}
	order.PaymentStatus = enums.PaymentStatusProcessing
	return true, s.outbox.Emit(ctx, tx, paymentEvent(enums.EventOrderPaymentProcessing, order, now))
}

// ReconcilePayments asks the gateway about card orders whose payment has not
// settled after olderThan and feeds the answer through HandlePaymentEvent.
// Intents still waiting for a payment method past the cutoff are voided.
func (s *service) ReconcilePayments(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-olderThan)
	stale, err := s.repo.ListStalePayments(ctx, cutoff, defaultBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale payments")
	}

	var errs error
	applied := 0
	for _, order := range stale {
		intentID := *order.PaymentIntentID
		status, err := s.intentStatus(ctx, intentID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}

		var kind PaymentEventKind
		switch status {
		case paystripe.IntentStatusSucceeded:
			kind = PaymentEventSucceeded
		case paystripe.IntentStatusProcessing:
			kind = PaymentEventProcessing
		case paystripe.IntentStatusCanceled:
			kind = PaymentEventCanceled
		case paystripe.IntentStatusRequiresMethod:
			callCtx, cancel := s.gatewayCtx(ctx)
			started := time.Now()
			err := s.gateway.CancelIntent(callCtx, intentID)
			cancel()
			s.metrics.ObserveGateway("cancel_intent", err, time.Since(started))
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
				continue
			}
			kind = PaymentEventCanceled
		default:
			continue
		}

		res, err := s.HandlePaymentEvent(ctx, intentID, kind)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if res.Applied {
			applied++
		}
	}
	return applied, errs
}

func (s *service) intentStatus(ctx context.Context, intentID string) (string, error) {
	callCtx, cancel := s.gatewayCtx(ctx)
	defer cancel()
	started := time.Now()
	status, err := s.gateway.GetIntentStatus(callCtx, intentID)
	s.metrics.ObserveGateway("get_intent", err, time.Since(started))
	return status, err
}

// RetryRefunds retries refunds for cancelled orders that are still paid,
// skipping those that already used maxAttempts.
func (s *service) RetryRefunds(ctx context.Context, maxAttempts int) (int, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultRefundMaxAttempts
	}
	pending, err := s.repo.ListRefundRetries(ctx, maxAttempts, defaultBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refund retries")
	}

	var errs error
	refunded := 0
	for i := range pending {
		order := pending[i]
		if _, err := s.refund(ctx, &order); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		refunded++
	}
	return refunded, errs
}
