package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) activeQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		Where("status = ?", enums.CartStatusActive).
		Order("created_at DESC")
}

// FindActiveByUser loads the user's active cart with its lines in insertion order.
func (r *Repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	if err := r.activeQuery(ctx).Where("user_id = ?", userID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindActiveBySession loads an anonymous session's active cart.
func (r *Repository) FindActiveBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	var record models.Cart
	if err := r.activeQuery(ctx).Where("session_id = ?", sessionID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	if record.Status == "" {
		record.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Omit("Lines").Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateDelivery saves the fulfilment fields of a cart.
func (r *Repository) UpdateDelivery(ctx context.Context, record *models.Cart) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"order_type":   record.OrderType,
			"branch_id":    record.BranchID,
			"delivery_fee": record.DeliveryFee,
		}).Error
}

// AppendLine adds a line after the current last position.
func (r *Repository) AppendLine(ctx context.Context, line *models.CartLine) error {
	var maxPos int
	if err := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("cart_id = ?", line.CartID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPos).Error; err != nil {
		return err
	}
	line.Position = maxPos + 1
	return r.db.WithContext(ctx).Create(line).Error
}

// UpdateLine saves quantity and note for a line.
func (r *Repository) UpdateLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ? AND cart_id = ?", line.ID, line.CartID).
		Updates(map[string]any{
			"quantity": line.Quantity,
			"note":     line.Note,
		}).Error
}

// DeleteLine removes one line and reports whether it existed.
func (r *Repository) DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Delete(&models.CartLine{})
	return res.RowsAffected > 0, res.Error
}

// DeleteLines empties the cart.
func (r *Repository) DeleteLines(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLine{}).Error
}

// UpdateStatus moves a cart between states only from the expected one.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.CartStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("cart status %s cannot become %s", from, to)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}
