package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/restaurant-backend/internal/catalog"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/money"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// LineView is one cart line priced at read time.
type LineView struct {
	ID                 uuid.UUID                 `json:"id"`
	ProductID          uuid.UUID                 `json:"catalog_item_id"`
	Name               string                    `json:"name"`
	Quantity           int                       `json:"quantity"`
	Note               *string                   `json:"note,omitempty"`
	Attributes         types.AttributeSelections `json:"attributes"`
	PriceAtTime        decimal.Decimal           `json:"price_at_time"`
	UnitPrice          decimal.Decimal           `json:"unit_price"`
	AttributeSurcharge decimal.Decimal           `json:"attribute_surcharge"`
	LineTotal          decimal.Decimal           `json:"line_total"`
	SourceOverrideID   *uuid.UUID                `json:"source_override_id"`
	Available          bool                      `json:"available"`
	Issue              string                    `json:"issue,omitempty"`
}

// View is the cart with live prices and totals.
type View struct {
	ID          uuid.UUID        `json:"id"`
	UserID      *uuid.UUID       `json:"user_id,omitempty"`
	SessionID   *string          `json:"session_id,omitempty"`
	BranchID    *uuid.UUID       `json:"branch_id"`
	OrderType   *enums.OrderType `json:"order_type"`
	Status      enums.CartStatus `json:"status"`
	Lines       []LineView       `json:"lines"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	DeliveryFee decimal.Decimal  `json:"delivery_fee"`
	Total       decimal.Decimal  `json:"total"`
}

// Unavailable returns lines that cannot be checked out as they stand.
func (v View) Unavailable() []LineView {
	var out []LineView
	for _, line := range v.Lines {
		if !line.Available {
			out = append(out, line)
		}
	}
	return out
}

func emptyView(owner Owner) *View {
	return &View{
		UserID:      owner.UserID,
		SessionID:   owner.sessionPtr(),
		Status:      enums.CartStatusActive,
		Lines:       []LineView{},
		Subtotal:    money.Zero,
		DeliveryFee: money.Zero,
		Total:       money.Zero,
	}
}

// price reprices every line against the catalog and overrides at at. Lines
// whose item or options went away are flagged and left out of the totals.
func (s *service) price(ctx context.Context, record *models.Cart, at time.Time) (*View, error) {
	view := &View{
		ID:          record.ID,
		UserID:      record.UserID,
		SessionID:   record.SessionID,
		BranchID:    record.BranchID,
		OrderType:   record.OrderType,
		Status:      record.Status,
		Lines:       make([]LineView, 0, len(record.Lines)),
		DeliveryFee: money.Round2(record.DeliveryFee),
	}
	subtotal := decimal.Zero
	for _, line := range record.Lines {
		lv, err := s.priceLine(ctx, record, line, at)
		if err != nil {
			return nil, err
		}
		if lv.Available {
			subtotal = subtotal.Add(lv.LineTotal)
		}
		view.Lines = append(view.Lines, lv)
	}
	view.Subtotal = money.Round2(subtotal)
	view.Total = money.Round2(view.Subtotal.Add(view.DeliveryFee))
	return view, nil
}

func (s *service) priceLine(ctx context.Context, record *models.Cart, line models.CartLine, at time.Time) (LineView, error) {
	lv := LineView{
		ID:                 line.ID,
		ProductID:          line.ProductID,
		Quantity:           line.Quantity,
		Note:               line.Note,
		Attributes:         line.Attributes,
		PriceAtTime:        money.Round2(line.PriceAtTime),
		UnitPrice:          money.Round2(line.PriceAtTime),
		AttributeSurcharge: money.Round2(line.Attributes.Surcharge()),
		LineTotal:          money.Zero,
	}
	if lv.Attributes == nil {
		lv.Attributes = types.AttributeSelections{}
	}

	item, err := s.catalog.GetItem(ctx, line.ProductID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			lv.Issue = "item no longer exists"
			return lv, nil
		}
		return LineView{}, err
	}
	lv.Name = item.Name
	if issue := availabilityIssue(item, record.BranchID); issue != "" {
		lv.Issue = issue
		return lv, nil
	}
	if err := CheckAttributes(item, line.Attributes); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			lv.Issue = pkgerrors.As(err).Message()
			return lv, nil
		}
		return LineView{}, err
	}

	res, err := s.prices.ResolveItem(ctx, item, record.BranchID, at)
	if err != nil {
		return LineView{}, err
	}
	qty := decimal.NewFromInt(int64(line.Quantity))
	surcharge := line.Attributes.Surcharge()
	lv.UnitPrice = res.EffectivePrice
	lv.AttributeSurcharge = money.Round2(surcharge)
	lv.SourceOverrideID = res.SourceOverrideID
	lv.LineTotal = money.Round2(res.EffectivePrice.Mul(qty).Add(surcharge.Mul(qty)))
	lv.Available = true
	return lv, nil
}

func availabilityIssue(item *catalog.Item, branchID *uuid.UUID) string {
	if !item.IsActive {
		return "item unavailable"
	}
	if branchID != nil && !item.SoldAt(*branchID) {
		return "item not sold at this branch"
	}
	return ""
}
