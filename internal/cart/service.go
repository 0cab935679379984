package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/internal/catalog"
	"github.com/angelmondragon/restaurant-backend/internal/pricing"
	"github.com/angelmondragon/restaurant-backend/pkg/db"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/money"
)

const maxNoteLength = 500

// Owner identifies a cart by exactly one of UserID or SessionID.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

// Validate rejects owners that name neither or both identities.
func (o Owner) Validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasSession := strings.TrimSpace(o.SessionID) != ""
	switch {
	case !hasUser && !hasSession:
		return pkgerrors.New(pkgerrors.CodeValidation, "user id or session id required")
	case hasUser && hasSession:
		return pkgerrors.New(pkgerrors.CodeValidation, "provide either user id or session id, not both")
	}
	return nil
}

func (o Owner) sessionPtr() *string {
	if o.SessionID == "" {
		return nil
	}
	s := o.SessionID
	return &s
}

// Service exposes cart operations.
type Service interface {
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (*View, error)
	UpdateItem(ctx context.Context, owner Owner, lineID uuid.UUID, input UpdateItemInput) (*View, error)
	RemoveItem(ctx context.Context, owner Owner, lineID uuid.UUID) (*View, error)
	Clear(ctx context.Context, owner Owner) (*View, error)
	SetDelivery(ctx context.Context, owner Owner, input DeliveryInput) (*View, error)
	Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*MergeResult, error)
	View(ctx context.Context, owner Owner) (*View, error)
	Active(ctx context.Context, owner Owner) (*models.Cart, error)
	Price(ctx context.Context, record *models.Cart, at time.Time) (*View, error)
	MarkConverted(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

// AddItemInput appends one line. Equal requests still produce separate lines.
type AddItemInput struct {
	ProductID  uuid.UUID
	Quantity   int
	Note       *string
	Attributes []AttributeRequest
}

// UpdateItemInput changes quantity and/or note.
type UpdateItemInput struct {
	Quantity *int
	Note     *string
}

// DeliveryInput sets fulfilment details. Fees only apply to delivery.
type DeliveryInput struct {
	OrderType   enums.OrderType
	BranchID    uuid.UUID
	DeliveryFee decimal.Decimal
}

// MergeResult reports the user's cart after a guest merge and any guest
// lines that could not be carried over.
type MergeResult struct {
	Cart           *View       `json:"cart"`
	SkippedLines   []uuid.UUID `json:"skipped_lines"`
	MergedLines    int         `json:"merged_lines"`
	GuestDiscarded bool        `json:"guest_discarded"`
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repository CartRepository
	Catalog    catalog.Reader
	Branches   catalog.BranchReader
	Prices     pricing.Resolver
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo     CartRepository
	catalog  catalog.Reader
	branches catalog.BranchReader
	prices   pricing.Resolver
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Branches == nil {
		return nil, fmt.Errorf("branch reader required")
	}
	if params.Prices == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repository,
		catalog:  params.Catalog,
		branches: params.Branches,
		prices:   params.Prices,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if err := validateNote(input.Note); err != nil {
		return nil, err
	}

	item, err := s.catalog.GetItem(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	record, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	if issue := availabilityIssue(item, record.BranchID); issue != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, issue).
			WithDetails(map[string]any{"catalog_item_id": item.ID})
	}
	selections, err := SelectAttributes(item, input.Attributes)
	if err != nil {
		return nil, err
	}
	res, err := s.prices.ResolveItem(ctx, item, record.BranchID, s.now())
	if err != nil {
		return nil, err
	}

	line := &models.CartLine{
		CartID:      record.ID,
		ProductID:   item.ID,
		Quantity:    input.Quantity,
		PriceAtTime: res.EffectivePrice,
		Attributes:  selections,
		Note:        input.Note,
	}
	if err := s.repo.AppendLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart line")
	}
	return s.View(ctx, owner)
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, lineID uuid.UUID, input UpdateItemInput) (*View, error) {
	if input.Quantity == nil && input.Note == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity or note required")
	}
	if input.Quantity != nil && *input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if err := validateNote(input.Note); err != nil {
		return nil, err
	}
	record, err := s.Active(ctx, owner)
	if err != nil {
		return nil, err
	}
	line, ok := findLine(record, lineID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	if input.Quantity != nil {
		line.Quantity = *input.Quantity
	}
	if input.Note != nil {
		line.Note = input.Note
	}
	if err := s.repo.UpdateLine(ctx, &line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return s.View(ctx, owner)
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, lineID uuid.UUID) (*View, error) {
	record, err := s.Active(ctx, owner)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeleteLine(ctx, record.ID, lineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	if !deleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return s.View(ctx, owner)
}

func (s *service) Clear(ctx context.Context, owner Owner) (*View, error) {
	record, err := s.Active(ctx, owner)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return emptyView(owner), nil
		}
		return nil, err
	}
	if err := s.repo.DeleteLines(ctx, record.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return s.View(ctx, owner)
}

func (s *service) SetDelivery(ctx context.Context, owner Owner, input DeliveryInput) (*View, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if !input.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}
	if input.DeliveryFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee must not be negative")
	}
	branch, err := s.branches.GetBranch(ctx, input.BranchID)
	if err != nil {
		return nil, err
	}
	record, err := s.findOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	orderType := input.OrderType
	record.OrderType = &orderType
	record.BranchID = &branch.ID
	record.DeliveryFee = money.Zero
	if orderType == enums.OrderTypeDelivery {
		record.DeliveryFee = money.Round2(input.DeliveryFee)
	}
	if err := s.repo.UpdateDelivery(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set cart delivery")
	}
	return s.View(ctx, owner)
}

// Merge re-adds each guest line to the user's cart through AddItem and then
// abandons the guest cart. Lines are independent: one failing does not undo
// the others.
func (s *service) Merge(ctx context.Context, sessionID string, userID uuid.UUID) (*MergeResult, error) {
	if strings.TrimSpace(sessionID) == "" || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id and user id required")
	}
	guestOwner := Owner{SessionID: sessionID}
	userOwner := Owner{UserID: &userID}
	result := &MergeResult{SkippedLines: []uuid.UUID{}}

	guest, err := s.Active(ctx, guestOwner)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		view, err := s.View(ctx, userOwner)
		if err != nil {
			return nil, err
		}
		result.Cart = view
		return result, nil
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"session_id":    sessionID,
		"user_id":       userID.String(),
		"guest_cart_id": guest.ID.String(),
	})

	if guest.BranchID != nil && guest.OrderType != nil {
		user, err := s.findOrCreate(ctx, userOwner)
		if err != nil {
			return nil, err
		}
		if user.BranchID == nil {
			user.BranchID = guest.BranchID
			user.OrderType = guest.OrderType
			user.DeliveryFee = guest.DeliveryFee
			if err := s.repo.UpdateDelivery(ctx, user); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "copy cart delivery")
			}
		}
	}

	for _, line := range guest.Lines {
		_, err := s.AddItem(ctx, userOwner, AddItemInput{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			Note:       line.Note,
			Attributes: requestsFrom(line.Attributes),
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
				return nil, err
			}
			s.logg.Warn(s.logg.WithField(logCtx, "line_id", line.ID.String()), "guest cart line skipped during merge")
			result.SkippedLines = append(result.SkippedLines, line.ID)
			continue
		}
		result.MergedLines++
	}

	discarded, err := s.repo.UpdateStatus(ctx, guest.ID, enums.CartStatusActive, enums.CartStatusAbandoned)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard guest cart")
	}
	result.GuestDiscarded = discarded

	view, err := s.View(ctx, userOwner)
	if err != nil {
		return nil, err
	}
	result.Cart = view
	s.logg.Info(logCtx, "guest cart merged")
	return result, nil
}

func (s *service) View(ctx context.Context, owner Owner) (*View, error) {
	record, err := s.Active(ctx, owner)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return emptyView(owner), nil
		}
		return nil, err
	}
	return s.price(ctx, record, s.now())
}

// Active loads the owner's active cart with lines.
func (s *service) Active(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	record, err := s.findActive(ctx, s.repo, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return record, nil
}

// Price reprices an already loaded cart, as checkout does before snapshotting.
func (s *service) Price(ctx context.Context, record *models.Cart, at time.Time) (*View, error) {
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart required")
	}
	if at.IsZero() {
		at = s.now()
	}
	return s.price(ctx, record, at)
}

// MarkConverted closes the cart inside the order transaction.
func (s *service) MarkConverted(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, cartID, enums.CartStatusActive, enums.CartStatusConverted)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is no longer active")
	}
	return nil
}

func (s *service) findActive(ctx context.Context, repo CartRepository, owner Owner) (*models.Cart, error) {
	if owner.UserID != nil {
		return repo.FindActiveByUser(ctx, *owner.UserID)
	}
	return repo.FindActiveBySession(ctx, owner.SessionID)
}

// findOrCreate returns the active cart, creating it on first use. A unique
// violation means a concurrent request created it first.
func (s *service) findOrCreate(ctx context.Context, owner Owner) (*models.Cart, error) {
	record, err := s.findActive(ctx, s.repo, owner)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	created, err := s.repo.Create(ctx, &models.Cart{
		UserID:      owner.UserID,
		SessionID:   owner.sessionPtr(),
		DeliveryFee: money.Zero,
		Status:      enums.CartStatusActive,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.Active(ctx, owner)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func findLine(record *models.Cart, lineID uuid.UUID) (models.CartLine, bool) {
	for _, line := range record.Lines {
		if line.ID == lineID {
			return line, true
		}
	}
	return models.CartLine{}, false
}

func validateNote(note *string) error {
	if note != nil && len(*note) > maxNoteLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "note too long").
			WithDetails(map[string]any{"max_length": maxNoteLength})
	}
	return nil
}
