package pricing

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

// Repository persists price overrides.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockProduct(ctx context.Context, productID uuid.UUID) error
	Create(ctx context.Context, override *models.PriceOverride) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PriceOverride, error)
	ListApplicable(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, at time.Time) ([]models.PriceOverride, error)
	ListOverlappingActive(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]models.PriceOverride, error)
	Supersede(ctx context.Context, ids []uuid.UUID, by uuid.UUID, at time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	ListHistory(ctx context.Context, productID uuid.UUID) ([]models.PriceOverride, error)
	ListExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]models.PriceOverride, error)
	DeactivateIfActive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a price override repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockProduct serializes override writes for one product on postgres.
// sqlite drops the locking clause and relies on its single writer.
func (r *repository) LockProduct(ctx context.Context, productID uuid.UUID) error {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock catalog item")
	}
	return nil
}

func (r *repository) Create(ctx context.Context, override *models.PriceOverride) error {
	if err := r.db.WithContext(ctx).Create(override).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create price override")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PriceOverride, error) {
	var override models.PriceOverride
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&override).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price override not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price override")
	}
	return &override, nil
}

// ListApplicable returns live overrides whose window contains at. Without a
// branch only overrides for every branch apply. Schedule restrictions are
// evaluated by the resolver.
func (r *repository) ListApplicable(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, at time.Time) ([]models.PriceOverride, error) {
	q := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ? AND is_deleted = ?", productID, true, false).
		Where("starts_at <= ? AND ends_at > ?", at.UTC(), at.UTC())
	if branchID != nil {
		q = q.Where("(branch_id IS NULL OR branch_id = ?)", *branchID)
	} else {
		q = q.Where("branch_id IS NULL")
	}
	var rows []models.PriceOverride
	if err := q.Order("starts_at DESC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price overrides")
	}
	return rows, nil
}

// ListOverlappingActive returns live overrides that share a window and a
// branch scope with the given one. A NULL branch covers every branch.
func (r *repository) ListOverlappingActive(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]models.PriceOverride, error) {
	q := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ? AND is_deleted = ?", productID, true, false).
		Where("starts_at < ? AND ends_at > ?", end.UTC(), start.UTC())
	if branchID != nil {
		q = q.Where("(branch_id IS NULL OR branch_id = ?)", *branchID)
	}
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var rows []models.PriceOverride
	if err := q.Order("starts_at ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overlapping overrides")
	}
	return rows, nil
}

func (r *repository) Supersede(ctx context.Context, ids []uuid.UUID, by uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.PriceOverride{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"is_active":        false,
			"superseded_by_id": by,
			"deactivated_at":   at.UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede price overrides")
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error {
	updates := map[string]any{"is_active": active}
	if active {
		updates["deactivated_at"] = nil
		updates["superseded_by_id"] = nil
	} else {
		updates["deactivated_at"] = at.UTC()
	}
	res := r.db.WithContext(ctx).
		Model(&models.PriceOverride{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "toggle price override")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "price override not found")
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.PriceOverride{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{
			"is_deleted":     true,
			"deleted_at":     at.UTC(),
			"is_active":      false,
			"deactivated_at": at.UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete price override")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "price override not found")
	}
	return nil
}

// ListHistory includes soft-deleted rows, newest first.
func (r *repository) ListHistory(ctx context.Context, productID uuid.UUID) ([]models.PriceOverride, error) {
	var rows []models.PriceOverride
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list override history")
	}
	return rows, nil
}

func (r *repository) ListExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]models.PriceOverride, error) {
	q := r.db.WithContext(ctx).
		Where("auto_revert = ? AND is_active = ? AND is_deleted = ? AND ends_at < ?", true, true, false, now.UTC()).
		Order("ends_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.PriceOverride
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired overrides")
	}
	return rows, nil
}

// DeactivateIfActive flips one row and reports whether this call did it, so
// concurrent sweeps each see a given override at most once.
func (r *repository) DeactivateIfActive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PriceOverride{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "deactivated_at": at.UTC()})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "deactivate price override")
	}
	return res.RowsAffected == 1, nil
}
