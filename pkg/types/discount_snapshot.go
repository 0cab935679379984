package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountSnapshot freezes the discount terms applied to an order.
type DiscountSnapshot struct {
	DiscountID    uuid.UUID       `json:"discount_id"`
	Code          string          `json:"code"`
	Type          string          `json:"type"`
	DiscountValue decimal.Decimal `json:"value"`
	Amount        decimal.Decimal `json:"amount"`
	OriginalTotal decimal.Decimal `json:"original_total"`
}

// Value serializes the snapshot to JSON.
func (d DiscountSnapshot) Value() (driver.Value, error) {
	return jsonValue(d)
}

// Scan decodes JSONB into the snapshot.
func (d *DiscountSnapshot) Scan(value interface{}) error {
	if value == nil {
		*d = DiscountSnapshot{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, d)
}
