package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/money"
)

// Resolution is the effective unit price of an item at an instant.
type Resolution struct {
	EffectivePrice   decimal.Decimal `json:"effective_price"`
	BasePrice        decimal.Decimal `json:"base_price"`
	SourceOverrideID *uuid.UUID      `json:"source_override_id"`
}

// Resolve picks the applicable override for at and prices it against base.
// It has no side effects; the same inputs always give the same result.
func Resolve(base decimal.Decimal, overrides []models.PriceOverride, at time.Time) Resolution {
	var chosen *models.PriceOverride
	for i := range overrides {
		o := &overrides[i]
		if !applies(o, at) {
			continue
		}
		if chosen == nil || startedLater(o, chosen) {
			chosen = o
		}
	}
	res := Resolution{EffectivePrice: money.Round2(base), BasePrice: money.Round2(base)}
	if chosen == nil {
		return res
	}
	id := chosen.ID
	res.SourceOverrideID = &id
	res.EffectivePrice = PriceFor(chosen.Kind, chosen.Value, chosen.ResolvedPrice, base)
	return res
}

// PriceFor applies one override kind to base.
func PriceFor(kind enums.OverrideKind, value, resolved, base decimal.Decimal) decimal.Decimal {
	switch kind {
	case enums.OverrideKindFixed:
		return money.Round2(value)
	case enums.OverrideKindIncrease:
		return money.Round2(base.Add(value))
	case enums.OverrideKindDecrease:
		return money.Round2(money.NonNegative(base.Sub(value)))
	case enums.OverrideKindTemporary:
		return money.Round2(resolved)
	default:
		return money.Round2(base)
	}
}

func applies(o *models.PriceOverride, at time.Time) bool {
	if !o.IsActive || o.IsDeleted || !o.Contains(at) {
		return false
	}
	if o.Schedule != nil && !o.Schedule.Matches(at) {
		return false
	}
	return true
}

// startedLater breaks ties on equal starts by creation time, then id, so the
// choice never depends on slice order.
func startedLater(a, b *models.PriceOverride) bool {
	if !a.StartsAt.Equal(b.StartsAt) {
		return a.StartsAt.After(b.StartsAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}
