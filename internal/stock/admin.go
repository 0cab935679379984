package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
)

// SetStockInput replaces the fields that are set and keeps the rest.
type SetStockInput struct {
	ProductID         uuid.UUID
	Quantity          *int
	LowStockThreshold *int
	IsManaged         *bool
}

// AdminService is the back-office stock surface.
type AdminService interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.StockRecord, error)
	Set(ctx context.Context, input SetStockInput) (*models.StockRecord, error)
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (*models.StockRecord, error)
	LowStock(ctx context.Context, branchID *uuid.UUID) ([]LowStockRow, error)
}

type adminService struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewAdminService(repo Repository, tx txRunner, logg *logger.Logger) (AdminService, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &adminService{repo: repo, tx: tx, logg: logg}, nil
}

func (s *adminService) Get(ctx context.Context, productID uuid.UUID) (*models.StockRecord, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
	}
	return s.repo.Find(ctx, productID)
}

func (s *adminService) Set(ctx context.Context, input SetStockInput) (*models.StockRecord, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.LowStockThreshold != nil && *input.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold must not be negative")
	}

	var saved models.StockRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record := models.StockRecord{ProductID: input.ProductID}
		current, err := repo.Find(ctx, input.ProductID)
		switch {
		case err == nil:
			record = *current
		case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			return err
		}
		if input.Quantity != nil {
			record.Quantity = *input.Quantity
		}
		if input.LowStockThreshold != nil {
			record.LowStockThreshold = *input.LowStockThreshold
		}
		if input.IsManaged != nil {
			record.IsManaged = *input.IsManaged
		}
		if err := repo.Upsert(ctx, &record); err != nil {
			return err
		}
		saved = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"catalog_item_id": saved.ProductID.String(),
		"quantity":        saved.Quantity,
		"managed":         saved.IsManaged,
	})
	s.logg.Info(logCtx, "stock record saved")
	return &saved, nil
}

func (s *adminService) Adjust(ctx context.Context, productID uuid.UUID, delta int) (*models.StockRecord, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog item id required")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	var record *models.StockRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.Adjust(ctx, productID, delta)
		if err != nil {
			return err
		}
		current, err := repo.Find(ctx, productID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment would make stock negative").
				WithDetails(map[string]any{"quantity": current.Quantity, "delta": delta})
		}
		record = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *adminService) LowStock(ctx context.Context, branchID *uuid.UUID) ([]LowStockRow, error) {
	return s.repo.ListLowStock(ctx, branchID)
}
