package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// Cart is owned by exactly one of UserID or SessionID.
type Cart struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID      *uuid.UUID       `gorm:"column:user_id;type:uuid;index"`
	SessionID   *string          `gorm:"column:session_id;index"`
	BranchID    *uuid.UUID       `gorm:"column:branch_id;type:uuid"`
	OrderType   *enums.OrderType `gorm:"column:order_type"`
	DeliveryFee decimal.Decimal  `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	Status      enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	Lines       []CartLine       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartLine is one product selection. PriceAtTime is advisory only.
type CartLine struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	CartID      uuid.UUID                 `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID   uuid.UUID                 `gorm:"column:product_id;type:uuid;not null"`
	Position    int                       `gorm:"column:position;not null;default:0"`
	Quantity    int                       `gorm:"column:quantity;not null"`
	PriceAtTime decimal.Decimal           `gorm:"column:price_at_time;type:numeric(12,2);not null"`
	Attributes  types.AttributeSelections `gorm:"column:attributes;type:jsonb;not null"`
	Note        *string                   `gorm:"column:note"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
