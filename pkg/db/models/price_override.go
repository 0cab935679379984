package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// PriceOverride is a time-windowed rule that changes a product's price over
// [StartsAt, EndsAt). Soft-deleted rows stay for history.
type PriceOverride struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID                  `gorm:"column:product_id;type:uuid;not null;index:idx_price_overrides_product_window"`
	BranchID       *uuid.UUID                 `gorm:"column:branch_id;type:uuid"`
	Kind           enums.OverrideKind         `gorm:"column:kind;not null"`
	Value          decimal.Decimal            `gorm:"column:value;type:numeric(12,2);not null"`
	ResolvedPrice  decimal.Decimal            `gorm:"column:resolved_price;type:numeric(12,2);not null"`
	StartsAt       time.Time                  `gorm:"column:starts_at;not null;index:idx_price_overrides_product_window"`
	EndsAt         time.Time                  `gorm:"column:ends_at;not null"`
	IsActive       bool                       `gorm:"column:is_active;not null"`
	AutoRevert     bool                       `gorm:"column:auto_revert;not null"`
	IsDeleted      bool                       `gorm:"column:is_deleted;not null"`
	DeletedAt      *time.Time                 `gorm:"column:deleted_at"`
	Schedule       *types.ScheduleRestriction `gorm:"column:schedule;type:jsonb"`
	Reason         *string                    `gorm:"column:reason"`
	CreatedBy      *uuid.UUID                 `gorm:"column:created_by;type:uuid"`
	SupersededByID *uuid.UUID                 `gorm:"column:superseded_by_id;type:uuid"`
	DeactivatedAt  *time.Time                 `gorm:"column:deactivated_at"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PriceOverride) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Overlaps reports whether the two half-open windows intersect.
func (p PriceOverride) Overlaps(start, end time.Time) bool {
	return p.StartsAt.Before(end) && start.Before(p.EndsAt)
}

// Contains reports whether at lies inside [StartsAt, EndsAt).
func (p PriceOverride) Contains(at time.Time) bool {
	return !at.Before(p.StartsAt) && at.Before(p.EndsAt)
}
