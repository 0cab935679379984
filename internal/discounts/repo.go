package discounts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
)

// Repository persists discounts and their redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Discount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error)
	List(ctx context.Context, activeOnly bool) ([]models.Discount, error)
	Create(ctx context.Context, discount *models.Discount) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CountUserUsages(ctx context.Context, discountID, userID uuid.UUID) (int64, error)
	IncrementUsage(ctx context.Context, discountID uuid.UUID) (bool, error)
	InsertUsage(ctx context.Context, usage *models.DiscountUsage) error
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

// FindByCode matches case-insensitively; codes are stored upper-cased.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Discount, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&discount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}
	return &discount, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&discount).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}
	return &discount, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.Discount, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.Discount
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discounts")
	}
	return rows, nil
}

func (r *repository) Create(ctx context.Context, discount *models.Discount) error {
	if err := r.db.WithContext(ctx).Create(discount).Error; err != nil {
		return err
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Discount{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "toggle discount")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
	}
	return nil
}

func (r *repository) CountUserUsages(ctx context.Context, discountID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DiscountUsage{}).
		Where("discount_id = ? AND user_id = ?", discountID, userID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count discount usages")
	}
	return count, nil
}

// IncrementUsage bumps used_count unless the global cap is already reached.
func (r *repository) IncrementUsage(ctx context.Context, discountID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", discountID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment discount usage")
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) InsertUsage(ctx context.Context, usage *models.DiscountUsage) error {
	if err := r.db.WithContext(ctx).Create(usage).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record discount usage")
	}
	return nil
}

// NormalizeCode is the stored form of a discount code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
