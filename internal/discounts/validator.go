package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/money"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// Rejection reasons, in the order the checks run.
const (
	ReasonNotFound      = "code not found"
	ReasonInactive      = "code inactive"
	ReasonNotStarted    = "code not yet active"
	ReasonExpired       = "code expired"
	ReasonBranch        = "not valid at this branch"
	ReasonOrderType     = "not valid for this order type"
	ReasonBelowMinimum  = "below minimum spend"
	ReasonLoginRequired = "sign in required to use this code"
	ReasonPerUserLimit  = "per-user limit reached"
	ReasonUsageLimit    = "usage limit reached"
)

// CheckContext carries everything a code is checked against.
type CheckContext struct {
	OrderType enums.OrderType
	Subtotal  decimal.Decimal
	UserID    *uuid.UUID
	BranchID  uuid.UUID
	At        time.Time
}

// Result is valid or carries the first failing reason.
type Result struct {
	Valid    bool             `json:"valid"`
	Reason   string           `json:"reason,omitempty"`
	Discount *models.Discount `json:"-"`
	Amount   decimal.Decimal  `json:"amount"`
}

func rejected(reason string) Result {
	return Result{Reason: reason, Amount: money.Zero}
}

// check runs the fixed sequence on an already loaded discount. userUsages is
// only consulted when the code has a per-user cap and a user is present.
func check(d *models.Discount, in CheckContext, userUsages func() (int64, error)) (Result, error) {
	if !d.IsActive {
		return rejected(ReasonInactive), nil
	}
	if d.StartsAt != nil && in.At.Before(*d.StartsAt) {
		return rejected(ReasonNotStarted), nil
	}
	if d.EndsAt != nil && !in.At.Before(*d.EndsAt) {
		return rejected(ReasonExpired), nil
	}
	if len(d.EligibleBranchIDs) > 0 && !d.EligibleBranchIDs.Contains(in.BranchID.String()) {
		return rejected(ReasonBranch), nil
	}
	if len(d.EligibleOrderTypes) > 0 && !d.EligibleOrderTypes.Contains(string(in.OrderType)) {
		return rejected(ReasonOrderType), nil
	}
	if in.Subtotal.LessThan(d.MinOrderTotal) {
		return rejected(ReasonBelowMinimum), nil
	}
	if d.PerUserLimit != nil {
		if in.UserID == nil {
			return rejected(ReasonLoginRequired), nil
		}
		used, err := userUsages()
		if err != nil {
			return Result{}, err
		}
		if used >= int64(*d.PerUserLimit) {
			return rejected(ReasonPerUserLimit), nil
		}
	}
	if d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit {
		return rejected(ReasonUsageLimit), nil
	}
	return Result{Valid: true, Discount: d, Amount: CalculateAmount(d, in.Subtotal)}, nil
}

// CalculateAmount never exceeds the subtotal and never goes negative.
func CalculateAmount(d *models.Discount, subtotal decimal.Decimal) decimal.Decimal {
	if d == nil || !subtotal.IsPositive() {
		return money.Zero
	}
	var amount decimal.Decimal
	switch d.Type {
	case enums.DiscountTypePercentage:
		amount = money.Percent(subtotal, d.Value)
	case enums.DiscountTypeFixed:
		amount = d.Value
	default:
		return money.Zero
	}
	return money.Round2(money.NonNegative(money.Min(amount, subtotal)))
}

// Snapshot freezes the applied terms for an order.
func Snapshot(d *models.Discount, amount, originalTotal decimal.Decimal) *types.DiscountSnapshot {
	return &types.DiscountSnapshot{
		DiscountID:    d.ID,
		Code:          d.Code,
		Type:          string(d.Type),
		DiscountValue: money.Round2(d.Value),
		Amount:        money.Round2(amount),
		OriginalTotal: money.Round2(originalTotal),
	}
}
