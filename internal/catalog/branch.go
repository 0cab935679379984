package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
)

// BranchReader looks up branches for carts and order numbering.
type BranchReader interface {
	GetBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error)
}

type branchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) BranchReader {
	return &branchRepository{db: db}
}

// GetBranch returns active branches only.
func (r *branchRepository) GetBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	var branch models.Branch
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load branch")
	}
	return &branch, nil
}
