package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
)

// Repository holds every stock_records statement. Quantity only ever moves
// through conditional updates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.StockRecord, error)
	Find(ctx context.Context, productID uuid.UUID) (*models.StockRecord, error)
	DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, productID uuid.UUID, qty int) error
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (bool, error)
	Upsert(ctx context.Context, record *models.StockRecord) error
	ListLowStock(ctx context.Context, branchID *uuid.UUID) ([]LowStockRow, error)
}

// LowStockRow is one managed item at or under its threshold.
type LowStockRow struct {
	ProductID         uuid.UUID `json:"catalog_item_id"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"last_updated"`
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.StockRecord, error) {
	out := make(map[uuid.UUID]models.StockRecord, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []models.StockRecord
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock records")
	}
	for _, row := range rows {
		out[row.ProductID] = row
	}
	return out, nil
}

func (r *repository) Find(ctx context.Context, productID uuid.UUID) (*models.StockRecord, error) {
	var row models.StockRecord
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock record")
	}
	return &row, nil
}

// DecrementIfAvailable takes qty only when enough is on hand. false means the
// guard rejected it and nothing changed.
func (r *repository) DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("product_id = ? AND is_managed = ? AND quantity >= ?", productID, true, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Increment(ctx context.Context, productID uuid.UUID, qty int) error {
	err := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("product_id = ? AND is_managed = ?", productID, true).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
	}
	return nil
}

// Adjust applies a signed delta unless it would take quantity below zero.
func (r *repository) Adjust(ctx context.Context, productID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockRecord{}).
		Where("product_id = ? AND quantity + ? >= 0", productID, delta).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust stock")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Upsert(ctx context.Context, record *models.StockRecord) error {
	record.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_managed", "quantity", "low_stock_threshold", "updated_at"}),
		}).
		Create(record).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save stock record")
	}
	return nil
}

func (r *repository) ListLowStock(ctx context.Context, branchID *uuid.UUID) ([]LowStockRow, error) {
	q := r.db.WithContext(ctx).
		Table("stock_records AS s").
		Select("s.product_id, p.name, s.quantity, s.low_stock_threshold, s.updated_at").
		Joins("JOIN products p ON p.id = s.product_id").
		Where("s.is_managed = ? AND s.quantity <= s.low_stock_threshold", true)
	if branchID != nil {
		q = q.Joins("JOIN branch_products bp ON bp.product_id = s.product_id").
			Where("bp.branch_id = ? AND bp.is_available = ?", *branchID, true)
	}
	var rows []LowStockRow
	if err := q.Order("s.quantity ASC").Order("p.name ASC").Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return rows, nil
}
