package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/pagination"
)

// Repository is the persistence surface for orders, order numbering and the
// refund attempt ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIntentForUpdate(ctx context.Context, intentID string) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Order], error)

	NextSequence(ctx context.Context, branchID uuid.UUID) (int64, error)

	ListStalePayments(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
	ListRefundRetries(ctx context.Context, maxAttempts, limit int) ([]models.Order, error)

	CreateRefundAttempt(ctx context.Context, attempt *models.RefundAttempt) error
	CountRefundAttempts(ctx context.Context, orderID uuid.UUID) (int64, error)
	ListFailedRefunds(ctx context.Context, limit int) ([]RefundFailure, error)
}
