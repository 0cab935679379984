package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"
)

// Intent statuses the order engine reacts to.
const (
	IntentStatusSucceeded      = string(stripe.PaymentIntentStatusSucceeded)
	IntentStatusProcessing     = string(stripe.PaymentIntentStatusProcessing)
	IntentStatusCanceled       = string(stripe.PaymentIntentStatusCanceled)
	IntentStatusRequiresMethod = string(stripe.PaymentIntentStatusRequiresPaymentMethod)
)

// IntentRequest describes a payment intent in minor currency units.
type IntentRequest struct {
	AmountMinor    int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the gateway reference returned to the client for confirmation.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// RefundResult is the gateway's refund record.
type RefundResult struct {
	ID          string
	Status      string
	AmountMinor int64
}

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type refundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type intentResource struct{}

func (intentResource) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(params)
}

func (intentResource) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, params)
}

func (intentResource) Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	return paymentintent.Cancel(id, params)
}

type refundResource struct{}

func (refundResource) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	return refund.New(params)
}

// Gateway implements intent creation, status lookup and refunds on Stripe.
// Callers bound each call with a context deadline.
type Gateway struct {
	intents intentAPI
	refunds refundAPI
}

// NewGateway builds a gateway backed by the configured client.
func NewGateway(client *Client) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &Gateway{intents: intentResource{}, refunds: refundResource{}}, nil
}

// CreateIntent opens a payment intent for the amount.
func (g *Gateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if req.AmountMinor <= 0 {
		return Intent{}, fmt.Errorf("stripe: amount must be positive, got %d", req.AmountMinor)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// GetIntentStatus returns the current intent status string.
func (g *Gateway) GetIntentStatus(ctx context.Context, intentID string) (string, error) {
	if strings.TrimSpace(intentID) == "" {
		return "", errors.New("stripe: intent id required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.intents.Get(intentID, params)
	if err != nil {
		return "", fmt.Errorf("stripe: get payment intent: %w", err)
	}
	return string(pi.Status), nil
}

// CancelIntent voids an unconfirmed intent, used when the order that owns it
// could not be persisted.
func (g *Gateway) CancelIntent(ctx context.Context, intentID string) error {
	if strings.TrimSpace(intentID) == "" {
		return errors.New("stripe: intent id required")
	}
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := g.intents.Cancel(intentID, params); err != nil {
		return fmt.Errorf("stripe: cancel payment intent: %w", err)
	}
	return nil
}

// Refund refunds the full captured amount of an intent.
func (g *Gateway) Refund(ctx context.Context, intentID, idempotencyKey string) (RefundResult, error) {
	if strings.TrimSpace(intentID) == "" {
		return RefundResult{}, errors.New("stripe: intent id required")
	}
	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	r, err := g.refunds.New(params)
	if err != nil {
		return RefundResult{}, fmt.Errorf("stripe: create refund: %w", err)
	}
	if r.Status == stripe.RefundStatusFailed || r.Status == stripe.RefundStatusCanceled {
		return RefundResult{ID: r.ID, Status: string(r.Status)}, fmt.Errorf("stripe: refund %s ended %s", r.ID, r.Status)
	}
	return RefundResult{ID: r.ID, Status: string(r.Status), AmountMinor: r.Amount}, nil
}
