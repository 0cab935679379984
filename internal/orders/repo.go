package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its lines.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIntentForUpdate(ctx context.Context, intentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_intent_id = ?", intentID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// loadLines runs outside the locking read so the lock covers the order row only.
func (r *repository) loadLines(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("position ASC").
		Find(&order.Lines).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[models.Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor, filters.scope())
	if err != nil {
		return pagination.Page[models.Order]{}, err
	}

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.BranchID != nil {
		query = query.Where("branch_id = ?", *filters.BranchID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.SessionID != nil {
		query = query.Where("session_id = ?", *filters.SessionID)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return pagination.Page[models.Order]{}, err
	}
	return pagination.Paginate(rows, params.Limit, filters.scope(), func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// NextSequence bumps the branch counter and returns the new value. The upsert
// holds the row lock until the surrounding transaction ends.
func (r *repository) NextSequence(ctx context.Context, branchID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	seq := models.BranchOrderSequence{BranchID: branchID, LastValue: 1}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "branch_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_value": gorm.Expr("branch_order_sequences.last_value + 1"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&seq).Error
	if err != nil {
		return 0, err
	}

	var current models.BranchOrderSequence
	if err := db.Where("branch_id = ?", branchID).First(&current).Error; err != nil {
		return 0, err
	}
	return current.LastValue, nil
}

// ListStalePayments returns open card orders whose payment has not settled.
func (r *repository) ListStalePayments(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("payment_method = ?", enums.PaymentMethodCard).
		Where("payment_status IN ?", []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusProcessing}).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing}).
		Where("payment_intent_id IS NOT NULL").
		Where("created_at < ?", createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListRefundRetries returns cancelled card orders that are still paid and have
// fewer than maxAttempts refund attempts on record.
func (r *repository) ListRefundRetries(ctx context.Context, maxAttempts, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusCancelled).
		Where("payment_method = ?", enums.PaymentMethodCard).
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Where("payment_intent_id IS NOT NULL").
		Where("(SELECT COUNT(*) FROM refund_attempts ra WHERE ra.order_id = orders.id) < ?", maxAttempts).
		Order("cancelled_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CreateRefundAttempt(ctx context.Context, attempt *models.RefundAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *repository) CountRefundAttempts(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RefundAttempt{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

// ListFailedRefunds lists failed attempts for orders whose money has not been
// returned yet, newest first.
func (r *repository) ListFailedRefunds(ctx context.Context, limit int) ([]RefundFailure, error) {
	var rows []RefundFailure
	err := r.db.WithContext(ctx).
		Table("refund_attempts ra").
		Select(`ra.order_id AS order_id, o.order_number AS order_number, o.branch_id AS branch_id,
ra.payment_intent_id AS payment_intent_id, ra.amount AS amount, ra.attempt AS attempt,
ra.error AS error, ra.created_at AS attempted_at`).
		Joins("JOIN orders o ON o.id = ra.order_id").
		Where("ra.status = ?", enums.RefundStatusFailed).
		Where("o.payment_status = ?", enums.PaymentStatusPaid).
		Order("ra.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
