package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/internal/cart"
	"github.com/angelmondragon/restaurant-backend/internal/catalog"
	"github.com/angelmondragon/restaurant-backend/internal/discounts"
	"github.com/angelmondragon/restaurant-backend/internal/stock"
	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox"
	"github.com/angelmondragon/restaurant-backend/pkg/pagination"
	paystripe "github.com/angelmondragon/restaurant-backend/pkg/stripe"
)

const (
	defaultGatewayTimeout = 10 * time.Second
	defaultCurrency       = "gbp"
	defaultBatchSize      = 100
	maxETAMinutes         = 600
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PaymentGateway is the card processor contract. Amounts are minor units.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req paystripe.IntentRequest) (paystripe.Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
	GetIntentStatus(ctx context.Context, intentID string) (string, error)
	Refund(ctx context.Context, intentID, idempotencyKey string) (paystripe.RefundResult, error)
}

type cartSource interface {
	Active(ctx context.Context, owner cart.Owner) (*models.Cart, error)
	Price(ctx context.Context, record *models.Cart, at time.Time) (*cart.View, error)
	MarkConverted(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type discountChecker interface {
	Validate(ctx context.Context, code string, in discounts.CheckContext) (discounts.Result, error)
	RecordUsage(ctx context.Context, tx *gorm.DB, discountID uuid.UUID, userID *uuid.UUID, orderID uuid.UUID) error
}

type orderMetrics interface {
	IncCreated(orderType, paymentMethod string)
	IncCancelled(source string)
	IncPaymentEvent(kind, outcome string)
	IncStockShortfall()
	IncDiscountRejected(reason string)
	IncRefundFailure()
	ObserveGateway(operation string, err error, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) IncCreated(string, string)                    {}
func (noopMetrics) IncCancelled(string)                          {}
func (noopMetrics) IncPaymentEvent(string, string)               {}
func (noopMetrics) IncStockShortfall()                           {}
func (noopMetrics) IncDiscountRejected(string)                   {}
func (noopMetrics) IncRefundFailure()                            {}
func (noopMetrics) ObserveGateway(string, error, time.Duration) {}

// Service is the order lifecycle: checkout, cancellation, payment events and
// the staff surface.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	CancelOrder(ctx context.Context, input CancelInput) (*CancelResult, error)
	HandlePaymentEvent(ctx context.Context, intentID string, kind PaymentEventKind) (*PaymentEventResult, error)

	Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Order], error)
	ListForActor(ctx context.Context, actor Actor, params pagination.Params) (pagination.Page[models.Order], error)
	Advance(ctx context.Context, id uuid.UUID, next enums.OrderStatus, actor Actor) (*models.Order, error)
	UpdateETA(ctx context.Context, id uuid.UUID, minutes int, actor Actor) (*models.Order, error)
	Refund(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error)
	ListRefundFailures(ctx context.Context, limit int) ([]RefundFailure, error)

	ReconcilePayments(ctx context.Context, olderThan time.Duration) (int, error)
	RetryRefunds(ctx context.Context, maxAttempts int) (int, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repository     Repository
	Carts          cartSource
	Stock          stock.Ledger
	Discounts      discountChecker
	Branches       catalog.BranchReader
	Gateway        PaymentGateway
	Tx             txRunner
	Outbox         outboxPublisher
	Logger         *logger.Logger
	Metrics        orderMetrics
	Currency       string
	GatewayTimeout time.Duration
	Now            func() time.Time
}

type service struct {
	repo           Repository
	carts          cartSource
	stock          stock.Ledger
	discounts      discountChecker
	branches       catalog.BranchReader
	gateway        PaymentGateway
	tx             txRunner
	outbox         outboxPublisher
	logg           *logger.Logger
	metrics        orderMetrics
	currency       string
	gatewayTimeout time.Duration
	now            func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Discounts == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if params.Branches == nil {
		return nil, fmt.Errorf("branch reader required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		repo:           params.Repository,
		carts:          params.Carts,
		stock:          params.Stock,
		discounts:      params.Discounts,
		branches:       params.Branches,
		gateway:        params.Gateway,
		tx:             params.Tx,
		outbox:         params.Outbox,
		logg:           params.Logger,
		metrics:        params.Metrics,
		currency:       params.Currency,
		gatewayTimeout: params.GatewayTimeout,
		now:            params.Now,
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.currency == "" {
		s.currency = defaultCurrency
	}
	if s.gatewayTimeout <= 0 {
		s.gatewayTimeout = defaultGatewayTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if !actor.IsStaff() && !actor.owns(order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Order], error) {
	if _, err := pagination.ParseCursor(params.Cursor, filters.scope()); err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return page, nil
}

func (s *service) ListForActor(ctx context.Context, actor Actor, params pagination.Params) (pagination.Page[models.Order], error) {
	var filters ListFilters
	switch {
	case actor.UserID != nil:
		filters.UserID = actor.UserID
	case actor.SessionID != "":
		session := actor.SessionID
		filters.SessionID = &session
	default:
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	return s.List(ctx, filters, params)
}

func (s *service) ListRefundFailures(ctx context.Context, limit int) ([]RefundFailure, error) {
	rows, err := s.repo.ListFailedRefunds(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refund failures")
	}
	return rows, nil
}

func mapLoadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func (s *service) gatewayCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.gatewayTimeout)
}
