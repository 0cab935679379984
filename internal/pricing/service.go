package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/internal/catalog"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/money"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

const defaultSweepBatch = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type sweepMetrics interface {
	AddOverridesExpired(n int)
}

// Resolver is what carts and checkout need from pricing.
type Resolver interface {
	ResolveItem(ctx context.Context, item *catalog.Item, branchID *uuid.UUID, at time.Time) (Resolution, error)
}

// Service covers price resolution and override administration.
type Service interface {
	Resolver
	Resolve(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, at time.Time) (Resolution, error)
	CreateOverride(ctx context.Context, input CreateOverrideInput) (*OverrideResult, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*OverrideResult, error)
	DeleteOverride(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, productID uuid.UUID) ([]models.PriceOverride, error)
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// CreateOverrideInput is a new override request. AutoRevert defaults to true.
type CreateOverrideInput struct {
	ProductID  uuid.UUID
	BranchID   *uuid.UUID
	Kind       enums.OverrideKind
	Value      decimal.Decimal
	StartsAt   time.Time
	EndsAt     time.Time
	AutoRevert *bool
	Schedule   *types.ScheduleRestriction
	Reason     *string
	CreatedBy  *uuid.UUID
}

// OverrideResult is the accepted override plus whatever it displaced.
type OverrideResult struct {
	Accepted      models.PriceOverride `json:"accepted"`
	SupersededIDs []uuid.UUID          `json:"superseded_ids"`
}

// ServiceParams wires the pricing service.
type ServiceParams struct {
	Repository Repository
	Catalog    catalog.Reader
	Tx         txRunner
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Metrics    sweepMetrics
	Now        func() time.Time
}

type service struct {
	repo    Repository
	catalog catalog.Reader
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics sweepMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repository,
		catalog: params.Catalog,
		tx:      params.Tx,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Resolve(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, at time.Time) (Resolution, error) {
	item, err := s.catalog.GetItem(ctx, productID)
	if err != nil {
		return Resolution{}, err
	}
	return s.ResolveItem(ctx, item, branchID, at)
}

func (s *service) ResolveItem(ctx context.Context, item *catalog.Item, branchID *uuid.UUID, at time.Time) (Resolution, error) {
	if item == nil {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "catalog item required")
	}
	if at.IsZero() {
		at = s.now()
	}
	candidates, err := s.repo.ListApplicable(ctx, item.ID, branchID, at)
	if err != nil {
		return Resolution{}, err
	}
	return Resolve(item.BasePrice, candidates, at), nil
}

func (s *service) CreateOverride(ctx context.Context, input CreateOverrideInput) (*OverrideResult, error) {
	if err := validateOverride(input); err != nil {
		return nil, err
	}
	item, err := s.catalog.GetItem(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	autoRevert := true
	if input.AutoRevert != nil {
		autoRevert = *input.AutoRevert
	}
	override := models.PriceOverride{
		ProductID:     input.ProductID,
		BranchID:      input.BranchID,
		Kind:          input.Kind,
		Value:         money.Round2(input.Value),
		ResolvedPrice: PriceFor(input.Kind, input.Value, input.Value, item.BasePrice),
		StartsAt:      input.StartsAt.UTC(),
		EndsAt:        input.EndsAt.UTC(),
		IsActive:      true,
		AutoRevert:    autoRevert,
		Schedule:      input.Schedule,
		Reason:        input.Reason,
		CreatedBy:     input.CreatedBy,
	}

	var superseded []uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockProduct(ctx, override.ProductID); err != nil {
			return err
		}
		if err := repo.Create(ctx, &override); err != nil {
			return err
		}
		ids, err := s.supersedeOverlaps(ctx, repo, override)
		superseded = ids
		return err
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"override_id": override.ID.String(),
		"product_id":  override.ProductID.String(),
		"kind":        override.Kind,
		"superseded":  len(superseded),
	})
	s.logg.Info(logCtx, "price override created")
	return &OverrideResult{Accepted: override, SupersededIDs: superseded}, nil
}

// SetActive toggles an override. Re-activation displaces overlapping active
// overrides exactly like a create.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*OverrideResult, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "override id required")
	}
	var (
		result     models.PriceOverride
		superseded []uuid.UUID
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.IsDeleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "price override is deleted")
		}
		if active && !current.EndsAt.After(s.now()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "price override window has ended")
		}
		if err := repo.LockProduct(ctx, current.ProductID); err != nil {
			return err
		}
		if err := repo.SetActive(ctx, id, active, s.now()); err != nil {
			return err
		}
		if active {
			ids, err := s.supersedeOverlaps(ctx, repo, *current)
			if err != nil {
				return err
			}
			superseded = ids
		}
		updated, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		result = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &OverrideResult{Accepted: result, SupersededIDs: superseded}, nil
}

func (s *service) supersedeOverlaps(ctx context.Context, repo Repository, winner models.PriceOverride) ([]uuid.UUID, error) {
	overlapping, err := repo.ListOverlappingActive(ctx, winner.ProductID, winner.BranchID, winner.StartsAt, winner.EndsAt, &winner.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(overlapping))
	for _, o := range overlapping {
		ids = append(ids, o.ID)
	}
	if err := repo.Supersede(ctx, ids, winner.ID, s.now()); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *service) DeleteOverride(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "override id required")
	}
	return s.repo.SoftDelete(ctx, id, s.now())
}

func (s *service) History(ctx context.Context, productID uuid.UUID) ([]models.PriceOverride, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
	}
	return s.repo.ListHistory(ctx, productID)
}

// SweepExpired deactivates auto-reverting overrides whose window ended
// before now and returns how many this call flipped.
func (s *service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = s.now()
	}
	candidates, err := s.repo.ListExpiredCandidates(ctx, now, defaultSweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range candidates {
		candidate := candidate
		flipped := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.repo.WithTx(tx).DeactivateIfActive(ctx, candidate.ID, now)
			if err != nil || !ok {
				return err
			}
			flipped = true
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPriceOverrideExpired,
				AggregateType: enums.AggregatePriceOverride,
				AggregateID:   candidate.ID,
				Actor:         outbox.SystemActor("price_override_sweep"),
				OccurredAt:    now.UTC(),
				Data: payloads.PriceOverrideExpiredEvent{
					OverrideID: candidate.ID,
					ProductID:  candidate.ProductID,
					EndedAt:    candidate.EndsAt,
				},
			})
		})
		if err != nil {
			return expired, err
		}
		if flipped {
			expired++
		}
	}

	if s.metrics != nil {
		s.metrics.AddOverridesExpired(expired)
	}
	if expired > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired", expired), "price overrides expired")
	}
	return expired, nil
}

func validateOverride(input CreateOverrideInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid override kind").
			WithDetails(map[string]any{"kind": input.Kind})
	}
	if input.Value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "override value must not be negative")
	}
	if input.StartsAt.IsZero() || input.EndsAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "override window required")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "override end must be after start")
	}
	if input.Schedule != nil {
		if err := input.Schedule.Validate(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid schedule restriction")
		}
	}
	return nil
}
