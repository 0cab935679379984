package models

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord tracks on-hand quantity for a product. Only managed records
// take part in reservation.
type StockRecord struct {
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	IsManaged         bool      `gorm:"column:is_managed;not null"`
	Quantity          int       `gorm:"column:quantity;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
