package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
)

// Reader is the catalog store contract.
type Reader interface {
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog reader over the products tables.
func NewRepository(db *gorm.DB) Reader {
	return &repository{db: db}
}

func (r *repository) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
	}
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("AttributeGroups.Options").
		Preload("Branches", "is_available = ?", true).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog item")
	}

	var stock models.StockRecord
	managed := false
	err = r.db.WithContext(ctx).Where("product_id = ?", id).Limit(1).Find(&stock).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock flag")
	}
	if stock.ProductID == id {
		managed = stock.IsManaged
	}

	return toItem(product, managed), nil
}

func toItem(p models.Product, managed bool) *Item {
	item := &Item{
		ID:           p.ID,
		Name:         p.Name,
		BasePrice:    p.BasePrice,
		IsActive:     p.IsActive,
		ManagedStock: managed,
	}
	for _, bp := range p.Branches {
		item.BranchIDs = append(item.BranchIDs, bp.BranchID)
	}
	for _, g := range p.AttributeGroups {
		group := AttributeGroup{ID: g.ID, Name: g.Name, MaxSelect: g.MaxSelect}
		for _, o := range g.Options {
			group.Options = append(group.Options, AttributeOption{
				ID:       o.ID,
				Name:     o.Name,
				Price:    o.Price,
				IsActive: o.IsActive,
			})
		}
		item.AttributeGroups = append(item.AttributeGroups, group)
	}
	return item
}
