package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/restaurant-backend/internal/cart"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// ListFilters narrows order listings. Nil fields are ignored.
type ListFilters struct {
	BranchID      *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	UserID        *uuid.UUID
	SessionID     *string
}

// scope names the filter set so a cursor cannot be replayed against a
// different listing.
func (f ListFilters) scope() string {
	var b strings.Builder
	if f.BranchID != nil {
		b.WriteString("branch=" + f.BranchID.String() + ";")
	}
	if f.Status != nil {
		b.WriteString("status=" + string(*f.Status) + ";")
	}
	if f.PaymentStatus != nil {
		b.WriteString("payment=" + string(*f.PaymentStatus) + ";")
	}
	if f.UserID != nil {
		b.WriteString("user=" + f.UserID.String() + ";")
	}
	if f.SessionID != nil {
		b.WriteString("session=" + *f.SessionID + ";")
	}
	return b.String()
}

// RefundFailure is a failed refund attempt on an order that is still paid.
type RefundFailure struct {
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	BranchID        uuid.UUID       `json:"branch_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Amount          decimal.Decimal `json:"amount"`
	Attempt         int             `json:"attempt"`
	Error           *string         `json:"error,omitempty"`
	AttemptedAt     time.Time       `json:"attempted_at"`
}

// Actor identifies who is acting on an order.
type Actor struct {
	UserID    *uuid.UUID
	SessionID string
	Role      enums.ActorRole
}

// IsStaff reports whether the actor may operate on any order.
func (a Actor) IsStaff() bool {
	return a.Role == enums.ActorRoleStaff || a.Role == enums.ActorRoleAdmin
}

func (a Actor) owns(order *models.Order) bool {
	if a.UserID != nil && order.UserID != nil {
		return *a.UserID == *order.UserID
	}
	if a.SessionID != "" && order.SessionID != nil {
		return a.SessionID == *order.SessionID
	}
	return false
}

// CreateOrderInput is a checkout request against the owner's active cart.
type CreateOrderInput struct {
	Owner         cart.Owner
	PaymentMethod enums.PaymentMethod
	DiscountCode  *string
	GuestContact  *types.GuestContact
}

// CreateOrderResult carries the persisted order and, for card orders, the
// client secret needed to confirm the intent.
type CreateOrderResult struct {
	Order        *models.Order `json:"order"`
	ClientSecret string        `json:"client_secret,omitempty"`
}

// CancelInput cancels an order on behalf of the actor.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  string
}

// CancelResult reports the cancelled order and the refund outcome. A refund
// failure does not undo the cancellation.
type CancelResult struct {
	Order         *models.Order `json:"order"`
	RefundFailed  bool          `json:"refund_failed"`
	RefundMessage string        `json:"refund_message,omitempty"`
}

// PaymentEventKind is the normalized gateway outcome for an intent.
type PaymentEventKind string

const (
	PaymentEventSucceeded  PaymentEventKind = "succeeded"
	PaymentEventFailed     PaymentEventKind = "failed"
	PaymentEventCanceled   PaymentEventKind = "canceled"
	PaymentEventProcessing PaymentEventKind = "processing"
)

// PaymentEventResult says whether the event changed the order.
type PaymentEventResult struct {
	Order   *models.Order
	Applied bool
}
