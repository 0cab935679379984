package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/restaurant-backend/pkg/db/models"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

// SeedBranch inserts an active branch with the given order-number code.
func SeedBranch(tb testing.TB, db *gorm.DB, code string) models.Branch {
	tb.Helper()
	branch := models.Branch{Code: code, Name: code + " branch", IsActive: true}
	if err := db.Create(&branch).Error; err != nil {
		tb.Fatalf("seed branch: %v", err)
	}
	return branch
}

// ProductSeed describes a product plus its optional attribute groups.
type ProductSeed struct {
	Name      string
	BasePrice string
	Groups    []GroupSeed
	BranchIDs []uuid.UUID
}

type GroupSeed struct {
	Name    string
	Options map[string]string
}

// SeedProduct inserts a product with attribute groups and branch links.
func SeedProduct(tb testing.TB, db *gorm.DB, seed ProductSeed) models.Product {
	tb.Helper()
	product := models.Product{
		Name:      seed.Name,
		BasePrice: decimal.RequireFromString(seed.BasePrice),
		IsActive:  true,
	}
	for _, g := range seed.Groups {
		group := models.ProductAttributeGroup{Name: g.Name}
		for name, price := range g.Options {
			group.Options = append(group.Options, models.ProductAttributeOption{
				Name:     name,
				Price:    decimal.RequireFromString(price),
				IsActive: true,
			})
		}
		product.AttributeGroups = append(product.AttributeGroups, group)
	}
	if err := db.Create(&product).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	for _, branchID := range seed.BranchIDs {
		link := models.BranchProduct{BranchID: branchID, ProductID: product.ID, IsAvailable: true}
		if err := db.Create(&link).Error; err != nil {
			tb.Fatalf("seed branch product: %v", err)
		}
	}
	return product
}

// SeedStock inserts a managed stock record.
func SeedStock(tb testing.TB, db *gorm.DB, productID uuid.UUID, qty, threshold int) models.StockRecord {
	tb.Helper()
	record := models.StockRecord{
		ProductID:         productID,
		IsManaged:         true,
		Quantity:          qty,
		LowStockThreshold: threshold,
	}
	if err := db.Create(&record).Error; err != nil {
		tb.Fatalf("seed stock: %v", err)
	}
	return record
}

// StockQuantity reads the current on-hand quantity.
func StockQuantity(tb testing.TB, db *gorm.DB, productID uuid.UUID) int {
	tb.Helper()
	var record models.StockRecord
	if err := db.Where("product_id = ?", productID).First(&record).Error; err != nil {
		tb.Fatalf("load stock: %v", err)
	}
	return record.Quantity
}

// OutboxEvents lists queued outbox rows of one type, oldest first.
func OutboxEvents(tb testing.TB, db *gorm.DB, eventType enums.OutboxEventType) []models.OutboxEvent {
	tb.Helper()
	var rows []models.OutboxEvent
	if err := db.Where("event_type = ?", eventType).Order("created_at ASC").Find(&rows).Error; err != nil {
		tb.Fatalf("load outbox events: %v", err)
	}
	return rows
}
