package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/restaurant-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

type paymentHandler interface {
	HandlePaymentEvent(ctx context.Context, intentID string, kind orders.PaymentEventKind) (*orders.PaymentEventResult, error)
}

// Service translates verified payment_intent events into order payment
// transitions.
type Service struct {
	orders paymentHandler
	logg   *logger.Logger
}

func NewService(handler paymentHandler, logg *logger.Logger) (*Service, error) {
	if handler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order payment handler required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{orders: handler, logg: logg}, nil
}

// KindFor maps a gateway event type to a payment outcome. Other event types
// are acknowledged and ignored.
func KindFor(eventType stripe.EventType) (orders.PaymentEventKind, bool) {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return orders.PaymentEventSucceeded, true
	case stripe.EventTypePaymentIntentPaymentFailed:
		return orders.PaymentEventFailed, true
	case stripe.EventTypePaymentIntentCanceled:
		return orders.PaymentEventCanceled, true
	case stripe.EventTypePaymentIntentProcessing:
		return orders.PaymentEventProcessing, true
	default:
		return "", false
	}
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	kind, ok := KindFor(event.Type)
	if !ok {
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
		"payment_intent_id": intent.ID,
	})
	if _, err := s.orders.HandlePaymentEvent(ctx, intent.ID, kind); err != nil {
		// intents created outside checkout have no order; acknowledge them.
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "payment event for unknown intent ignored")
			return nil
		}
		return err
	}
	return nil
}
