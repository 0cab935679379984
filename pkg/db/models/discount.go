package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// Discount is a promotional code. Code is stored upper-cased.
type Discount struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code               string             `gorm:"column:code;not null;uniqueIndex"`
	Type               enums.DiscountType `gorm:"column:discount_type;not null"`
	Value              decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinOrderTotal      decimal.Decimal    `gorm:"column:min_order_total;type:numeric(12,2);not null;default:0"`
	EligibleOrderTypes types.StringList   `gorm:"column:eligible_order_types;type:jsonb;not null"`
	EligibleBranchIDs  types.StringList   `gorm:"column:eligible_branch_ids;type:jsonb;not null"`
	PerUserLimit       *int               `gorm:"column:per_user_limit"`
	UsageLimit         *int               `gorm:"column:usage_limit"`
	UsedCount          int                `gorm:"column:used_count;not null;default:0"`
	StartsAt           *time.Time         `gorm:"column:starts_at"`
	EndsAt             *time.Time         `gorm:"column:ends_at"`
	IsActive           bool               `gorm:"column:is_active;not null"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Discount) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// DiscountUsage records one redemption; per-user caps count these rows.
type DiscountUsage struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	DiscountID uuid.UUID  `gorm:"column:discount_id;type:uuid;not null;index"`
	UserID     *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	OrderID    uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (u *DiscountUsage) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
