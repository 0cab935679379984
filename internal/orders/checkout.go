package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/internal/cart"
	"github.com/angelmondragon/restaurant-backend/internal/discounts"
	"github.com/angelmondragon/restaurant-backend/internal/stock"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/money"
	paystripe "github.com/angelmondragon/restaurant-backend/pkg/stripe"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// totals is the computed money side of a checkout.
type totals struct {
	Subtotal       decimal.Decimal
	DeliveryFee    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalTotal     decimal.Decimal
}

// CreateOrder turns the owner's active cart into an order. Steps run in a
// fixed order and every rejection happens before anything is persisted:
// reprice, stock check, discount, totals, gateway intent, then one
// transaction that persists the snapshot and reserves stock.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := input.Owner.Validate(); err != nil {
		return nil, err
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	contact, err := normalizeContact(input.Owner, input.GuestContact)
	if err != nil {
		return nil, err
	}

	record, err := s.carts.Active(ctx, input.Owner)
	if err != nil {
		return nil, err
	}
	if len(record.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if record.BranchID == nil || record.OrderType == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select an order type and branch before checkout")
	}
	branch, err := s.branches.GetBranch(ctx, *record.BranchID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"cart_id":        record.ID.String(),
		"branch_id":      branch.ID.String(),
		"payment_method": string(input.PaymentMethod),
	})

	// 1. re-resolve every line against live catalog and overrides.
	view, err := s.carts.Price(ctx, record, now)
	if err != nil {
		return nil, err
	}
	if bad := view.Unavailable(); len(bad) > 0 {
		issues := make([]map[string]any, 0, len(bad))
		for _, line := range bad {
			issues = append(issues, map[string]any{
				"line_id":         line.ID,
				"catalog_item_id": line.ProductID,
				"issue":           line.Issue,
			})
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has unavailable items").
			WithDetails(map[string]any{"lines": issues})
	}

	// 2. availability.
	stockLines := stockLinesFromView(view)
	availability, err := s.stock.CheckAvailability(ctx, stockLines)
	if err != nil {
		return nil, err
	}
	if !availability.OK {
		s.metrics.IncStockShortfall()
		return nil, pkgerrors.New(pkgerrors.CodeStockShortfall, "insufficient stock").
			WithDetails(map[string]any{"shortfalls": availability.Shortfalls})
	}

	// 3. discount.
	var applied discounts.Result
	if code := trimmed(input.DiscountCode); code != "" {
		applied, err = s.discounts.Validate(ctx, code, discounts.CheckContext{
			OrderType: *record.OrderType,
			Subtotal:  view.Subtotal,
			UserID:    input.Owner.UserID,
			BranchID:  branch.ID,
			At:        now,
		})
		if err != nil {
			return nil, err
		}
		if !applied.Valid {
			s.metrics.IncDiscountRejected(applied.Reason)
			return nil, pkgerrors.New(pkgerrors.CodeDiscountRejected, "discount rejected: "+applied.Reason).
				WithDetails(map[string]any{"code": code, "reason": applied.Reason})
		}
	}

	// 4. totals.
	sums := computeTotals(view.Subtotal, view.DeliveryFee, applied)

	orderID := uuid.New()
	order := &models.Order{
		ID:            orderID,
		BranchID:      branch.ID,
		UserID:        input.Owner.UserID,
		GuestContact:  contact,
		CartID:        &record.ID,
		OrderType:     *record.OrderType,
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		// cash on delivery is also pending until staff collect it.
		PaymentStatus:  enums.PaymentStatusPending,
		Currency:       strings.ToUpper(s.currency),
		Subtotal:       sums.Subtotal,
		DeliveryFee:    sums.DeliveryFee,
		DiscountAmount: sums.DiscountAmount,
		FinalTotal:     sums.FinalTotal,
		Lines:          orderLinesFromView(orderID, view),
	}
	if input.Owner.UserID == nil {
		session := input.Owner.SessionID
		order.SessionID = &session
	}
	if applied.Valid {
		order.Discount = discounts.Snapshot(applied.Discount, sums.DiscountAmount, sums.Subtotal.Add(sums.DeliveryFee))
	}

	// 5. gateway intent before anything is written.
	var intent paystripe.Intent
	if input.PaymentMethod.UsesGateway() {
		intent, err = s.createIntent(ctx, order, branch.Code)
		if err != nil {
			return nil, err
		}
		order.PaymentIntentID = &intent.ID
	}

	// 6 + 7. persist the snapshot and reserve stock atomically.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		seq, err := repo.NextSequence(ctx, branch.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}
		order.OrderNumber = formatOrderNumber(branch.Code, seq)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		if err := s.stock.Reserve(ctx, tx, stockLines); err != nil {
			return err
		}
		if applied.Valid {
			if err := s.discounts.RecordUsage(ctx, tx, applied.Discount.ID, input.Owner.UserID, order.ID); err != nil {
				return err
			}
		}
		if err := s.carts.MarkConverted(ctx, tx, record.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, orderCreatedEvent(order, actorFromOwner(input.Owner), now))
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStockShortfall) {
			s.metrics.IncStockShortfall()
		}
		if intent.ID != "" {
			s.voidIntent(ctx, intent.ID)
		}
		return nil, err
	}

	s.metrics.IncCreated(string(order.OrderType), string(order.PaymentMethod))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"final_total":  order.FinalTotal.StringFixed(2),
	}), "order created")

	return &CreateOrderResult{Order: order, ClientSecret: intent.ClientSecret}, nil
}

func (s *service) createIntent(ctx context.Context, order *models.Order, branchCode string) (paystripe.Intent, error) {
	if !order.FinalTotal.IsPositive() {
		return paystripe.Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "card payment needs a positive total; choose cash_on_delivery")
	}
	minor, err := money.ToMinorUnits(order.FinalTotal)
	if err != nil {
		return paystripe.Intent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order total")
	}

	callCtx, cancel := s.gatewayCtx(ctx)
	defer cancel()
	started := time.Now()
	intent, err := s.gateway.CreateIntent(callCtx, paystripe.IntentRequest{
		AmountMinor:    minor,
		Currency:       s.currency,
		Description:    fmt.Sprintf("Order at %s", branchCode),
		Metadata:       map[string]string{"order_id": order.ID.String(), "branch_id": order.BranchID.String()},
		IdempotencyKey: "order-intent-" + order.ID.String(),
	})
	s.metrics.ObserveGateway("create_intent", err, time.Since(started))
	if err != nil {
		s.logg.Error(ctx, "payment intent failed", err)
		return paystripe.Intent{}, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "payment gateway unavailable")
	}
	if intent.ID == "" {
		return paystripe.Intent{}, pkgerrors.New(pkgerrors.CodePaymentGateway, "payment gateway returned no intent")
	}
	return intent, nil
}

// voidIntent cancels an intent whose order never made it to storage so the
// client secret can no longer be confirmed.
func (s *service) voidIntent(ctx context.Context, intentID string) {
	callCtx, cancel := s.gatewayCtx(context.WithoutCancel(ctx))
	defer cancel()
	started := time.Now()
	err := s.gateway.CancelIntent(callCtx, intentID)
	s.metrics.ObserveGateway("cancel_intent", err, time.Since(started))
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "payment_intent_id", intentID), "void orphaned intent", err)
	}
}

func computeTotals(subtotal, deliveryFee decimal.Decimal, applied discounts.Result) totals {
	subtotal = money.Round2(subtotal)
	deliveryFee = money.Round2(money.NonNegative(deliveryFee))
	discount := money.Zero
	if applied.Valid {
		discount = money.Round2(money.Min(applied.Amount, subtotal))
	}
	return totals{
		Subtotal:       subtotal,
		DeliveryFee:    deliveryFee,
		DiscountAmount: discount,
		FinalTotal:     money.Round2(money.NonNegative(subtotal.Sub(discount).Add(deliveryFee))),
	}
}

func stockLinesFromView(view *cart.View) []stock.Line {
	lines := make([]stock.Line, 0, len(view.Lines))
	for _, line := range view.Lines {
		lines = append(lines, stock.Line{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return lines
}

func stockLinesFromOrder(order *models.Order) []stock.Line {
	lines := make([]stock.Line, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, stock.Line{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return lines
}

func orderLinesFromView(orderID uuid.UUID, view *cart.View) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(view.Lines))
	for i, line := range view.Lines {
		attrs := line.Attributes
		if attrs == nil {
			attrs = types.AttributeSelections{}
		}
		lines = append(lines, models.OrderLine{
			OrderID:            orderID,
			ProductID:          line.ProductID,
			ProductName:        line.Name,
			Position:           i + 1,
			Quantity:           line.Quantity,
			UnitPrice:          line.UnitPrice,
			PriceOverrideID:    line.SourceOverrideID,
			Attributes:         attrs,
			AttributeSurcharge: line.AttributeSurcharge,
			LineTotal:          line.LineTotal,
			Note:               line.Note,
		})
	}
	return lines
}

func normalizeContact(owner cart.Owner, contact *types.GuestContact) (*types.GuestContact, error) {
	if contact == nil {
		if owner.UserID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest contact required for anonymous checkout")
		}
		return nil, nil
	}
	out := types.GuestContact{
		Name:  strings.TrimSpace(contact.Name),
		Phone: strings.TrimSpace(contact.Phone),
		Email: contact.Email,
	}
	if out.Name == "" || out.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest contact needs a name and phone")
	}
	return &out, nil
}

func formatOrderNumber(branchCode string, seq int64) string {
	return fmt.Sprintf("%s-%06d", strings.ToUpper(branchCode), seq)
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
