package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

const (
	defaultReconcileAge      = 15 * time.Minute
	defaultRefundMaxAttempts = 5
)

type paymentReconciler interface {
	ReconcilePayments(ctx context.Context, olderThan time.Duration) (int, error)
	RetryRefunds(ctx context.Context, maxAttempts int) (int, error)
}

// PaymentReconcileJobParams configure the payment reconcile job.
type PaymentReconcileJobParams struct {
	Logger            *logger.Logger
	Orders            paymentReconciler
	PendingAge        time.Duration
	RefundMaxAttempts int
}

// NewPaymentReconcileJob settles card orders whose webhook never arrived and
// retries refunds that failed when the order was cancelled.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	age := params.PendingAge
	if age <= 0 {
		age = defaultReconcileAge
	}
	attempts := params.RefundMaxAttempts
	if attempts <= 0 {
		attempts = defaultRefundMaxAttempts
	}
	return &paymentReconcileJob{
		logg:        params.Logger,
		orders:      params.Orders,
		pendingAge:  age,
		maxAttempts: attempts,
	}, nil
}

type paymentReconcileJob struct {
	logg        *logger.Logger
	orders      paymentReconciler
	pendingAge  time.Duration
	maxAttempts int
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

// Run always attempts both passes; a failing reconcile does not hold back
// refund retries.
func (j *paymentReconcileJob) Run(ctx context.Context) error {
	var errs error
	settled, err := j.orders.ReconcilePayments(ctx, j.pendingAge)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("reconcile payments: %w", err))
	}
	refunded, err := j.orders.RetryRefunds(ctx, j.maxAttempts)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("retry refunds: %w", err))
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"payments_settled": settled,
		"refunds_retried":  refunded,
	}), "payment reconcile complete")
	return errs
}
