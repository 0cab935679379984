package discounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/money"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Service validates codes and manages discounts.
type Service interface {
	Validate(ctx context.Context, code string, in CheckContext) (Result, error)
	RecordUsage(ctx context.Context, tx *gorm.DB, discountID uuid.UUID, userID *uuid.UUID, orderID uuid.UUID) error
	Create(ctx context.Context, input CreateInput) (*models.Discount, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Discount, error)
	List(ctx context.Context, activeOnly bool) ([]models.Discount, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// CreateInput defines a new discount code.
type CreateInput struct {
	Code               string
	Type               enums.DiscountType
	Value              decimal.Decimal
	MinOrderTotal      decimal.Decimal
	EligibleOrderTypes []enums.OrderType
	EligibleBranchIDs  []uuid.UUID
	PerUserLimit       *int
	UsageLimit         *int
	StartsAt           *time.Time
	EndsAt             *time.Time
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, logg: logg, now: now}, nil
}

// Validate runs the checks in order and reports the first failure.
func (s *service) Validate(ctx context.Context, code string, in CheckContext) (Result, error) {
	if NormalizeCode(code) == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}
	if in.At.IsZero() {
		in.At = s.now()
	}
	discount, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return rejected(ReasonNotFound), nil
		}
		return Result{}, err
	}
	return check(discount, in, func() (int64, error) {
		return s.repo.CountUserUsages(ctx, discount.ID, *in.UserID)
	})
}

// RecordUsage counts a redemption inside the order transaction. The guarded
// increment loses cleanly when the global cap was hit since validation. It
// also holds the discount row until commit, so the per-user count taken after
// it sees every redemption committed before this one.
func (s *service) RecordUsage(ctx context.Context, tx *gorm.DB, discountID uuid.UUID, userID *uuid.UUID, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	ok, err := repo.IncrementUsage(ctx, discountID)
	if err != nil {
		return err
	}
	if !ok {
		return rejectedErr(ReasonUsageLimit)
	}
	discount, err := repo.FindByID(ctx, discountID)
	if err != nil {
		return err
	}
	if discount.PerUserLimit != nil {
		if userID == nil {
			return rejectedErr(ReasonLoginRequired)
		}
		used, err := repo.CountUserUsages(ctx, discountID, *userID)
		if err != nil {
			return err
		}
		if used >= int64(*discount.PerUserLimit) {
			return rejectedErr(ReasonPerUserLimit)
		}
	}
	return repo.InsertUsage(ctx, &models.DiscountUsage{
		DiscountID: discountID,
		UserID:     userID,
		OrderID:    orderID,
	})
}

func rejectedErr(reason string) error {
	return pkgerrors.New(pkgerrors.CodeDiscountRejected, "discount rejected").
		WithDetails(map[string]any{"reason": reason})
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Discount, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	orderTypes := make(types.StringList, 0, len(input.EligibleOrderTypes))
	for _, ot := range input.EligibleOrderTypes {
		orderTypes = append(orderTypes, string(ot))
	}
	branches := make(types.StringList, 0, len(input.EligibleBranchIDs))
	for _, id := range input.EligibleBranchIDs {
		branches = append(branches, id.String())
	}
	discount := &models.Discount{
		Code:               NormalizeCode(input.Code),
		Type:               input.Type,
		Value:              money.Round2(input.Value),
		MinOrderTotal:      money.Round2(input.MinOrderTotal),
		EligibleOrderTypes: orderTypes,
		EligibleBranchIDs:  branches,
		PerUserLimit:       input.PerUserLimit,
		UsageLimit:         input.UsageLimit,
		StartsAt:           utcPtr(input.StartsAt),
		EndsAt:             utcPtr(input.EndsAt),
		IsActive:           true,
	}
	if err := s.repo.Create(ctx, discount); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "discount code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount")
	}
	s.logg.Info(s.logg.WithField(ctx, "discount_code", discount.Code), "discount created")
	return discount, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.Discount, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount id required")
	}
	return s.repo.SetActive(ctx, id, active)
}

func validateCreate(input CreateInput) error {
	if NormalizeCode(input.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if !input.Value.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.Type == enums.DiscountTypePercentage && input.Value.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage cannot exceed 100")
	}
	if input.MinOrderTotal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum order total must not be negative")
	}
	for _, ot := range input.EligibleOrderTypes {
		if !ot.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid eligible order type")
		}
	}
	if input.PerUserLimit != nil && *input.PerUserLimit < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "per-user limit must be at least 1")
	}
	if input.UsageLimit != nil && *input.UsageLimit < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be at least 1")
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.EndsAt.After(*input.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount end must be after start")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
