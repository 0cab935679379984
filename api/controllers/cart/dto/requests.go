package cartdto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemRequest appends one line to the caller's active cart.
type AddItemRequest struct {
	ProductID  uuid.UUID          `json:"catalog_item_id" validate:"required"`
	Quantity   int                `json:"quantity" validate:"required,min=1,max=99"`
	Note       *string            `json:"note,omitempty" validate:"omitempty,max=500"`
	Attributes []AttributeRequest `json:"attributes" validate:"dive"`
}

// AttributeRequest picks one option from an attribute group.
type AttributeRequest struct {
	GroupID  uuid.UUID `json:"group_id" validate:"required"`
	OptionID uuid.UUID `json:"option_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"omitempty,min=1,max=20"`
}

// UpdateItemRequest changes quantity and/or note on an existing line.
type UpdateItemRequest struct {
	Quantity *int    `json:"quantity,omitempty" validate:"omitempty,min=1,max=99"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type DeliveryRequest struct {
	OrderType   string          `json:"order_type" validate:"required,oneof=delivery pickup dine_in"`
	BranchID    uuid.UUID       `json:"branch_id" validate:"required"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// MergeRequest names the guest session whose cart folds into the user's.
type MergeRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
}
