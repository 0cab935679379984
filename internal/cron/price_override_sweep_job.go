package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

type overrideSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// PriceOverrideSweepJobParams configure the override expiry sweep.
type PriceOverrideSweepJobParams struct {
	Logger  *logger.Logger
	Pricing overrideSweeper
}

// NewPriceOverrideSweepJob deactivates auto-reverting price overrides whose
// window has closed so admin listings match what the resolver already serves.
func NewPriceOverrideSweepJob(params PriceOverrideSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	return &priceOverrideSweepJob{
		logg:    params.Logger,
		pricing: params.Pricing,
		now:     time.Now,
	}, nil
}

type priceOverrideSweepJob struct {
	logg    *logger.Logger
	pricing overrideSweeper
	now     func() time.Time
}

func (j *priceOverrideSweepJob) Name() string { return "price-override-sweep" }

func (j *priceOverrideSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expired, err := j.pricing.SweepExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep expired overrides: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "overrides_expired", expired), "price override sweep complete")
	return nil
}
