package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// Order is an immutable pricing snapshot plus the mutable status axes.
type Order struct {
	ID                         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber                string                  `gorm:"column:order_number;not null;uniqueIndex"`
	BranchID                   uuid.UUID               `gorm:"column:branch_id;type:uuid;not null;index"`
	UserID                     *uuid.UUID              `gorm:"column:user_id;type:uuid;index"`
	SessionID                  *string                 `gorm:"column:session_id"`
	GuestContact               *types.GuestContact     `gorm:"column:guest_contact;type:jsonb"`
	CartID                     *uuid.UUID              `gorm:"column:cart_id;type:uuid"`
	OrderType                  enums.OrderType         `gorm:"column:order_type;not null"`
	Status                     enums.OrderStatus       `gorm:"column:status;not null;index"`
	PaymentMethod              enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	PaymentStatus              enums.PaymentStatus     `gorm:"column:payment_status;not null"`
	PaymentIntentID            *string                 `gorm:"column:payment_intent_id;uniqueIndex"`
	Currency                   string                  `gorm:"column:currency;not null"`
	Subtotal                   decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee                decimal.Decimal         `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	DiscountAmount             decimal.Decimal         `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	Discount                   *types.DiscountSnapshot `gorm:"column:discount;type:jsonb"`
	FinalTotal                 decimal.Decimal         `gorm:"column:final_total;type:numeric(12,2);not null"`
	EstimatedCompletionMinutes *int                    `gorm:"column:estimated_completion_minutes"`
	CancelReason               *string                 `gorm:"column:cancel_reason"`
	StockReleasedAt            *time.Time              `gorm:"column:stock_released_at"`
	PaidAt                     *time.Time              `gorm:"column:paid_at"`
	CancelledAt                *time.Time              `gorm:"column:cancelled_at"`
	CompletedAt                *time.Time              `gorm:"column:completed_at"`
	RefundedAt                 *time.Time              `gorm:"column:refunded_at"`
	Lines                      []OrderLine             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt                  time.Time               `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt                  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderLine freezes the resolved price and attribute snapshot of one line.
type OrderLine struct {
	ID                 uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          uuid.UUID                 `gorm:"column:product_id;type:uuid;not null"`
	ProductName        string                    `gorm:"column:product_name;not null"`
	Position           int                       `gorm:"column:position;not null;default:0"`
	Quantity           int                       `gorm:"column:quantity;not null"`
	UnitPrice          decimal.Decimal           `gorm:"column:unit_price;type:numeric(12,2);not null"`
	PriceOverrideID    *uuid.UUID                `gorm:"column:price_override_id;type:uuid"`
	Attributes         types.AttributeSelections `gorm:"column:attributes;type:jsonb;not null"`
	AttributeSurcharge decimal.Decimal           `gorm:"column:attribute_surcharge;type:numeric(12,2);not null;default:0"`
	LineTotal          decimal.Decimal           `gorm:"column:line_total;type:numeric(12,2);not null"`
	Note               *string                   `gorm:"column:note"`
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// BranchOrderSequence is the per-branch counter behind order numbers.
type BranchOrderSequence struct {
	BranchID  uuid.UUID `gorm:"column:branch_id;type:uuid;primaryKey"`
	LastValue int64     `gorm:"column:last_value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RefundAttempt records every refund call against the gateway.
type RefundAttempt struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentIntentID string             `gorm:"column:payment_intent_id;not null"`
	Amount          decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Status          enums.RefundStatus `gorm:"column:status;not null"`
	GatewayRefundID *string            `gorm:"column:gateway_refund_id"`
	Error           *string            `gorm:"column:error"`
	Attempt         int                `gorm:"column:attempt;not null"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (r *RefundAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
