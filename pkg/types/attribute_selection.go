package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttributeSelection is a chosen attribute option, snapshotted when selected so
// later catalog edits do not change historical carts or orders.
type AttributeSelection struct {
	GroupID  uuid.UUID       `json:"group_id"`
	OptionID uuid.UUID       `json:"option_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// AttributeSelections is persisted as a JSONB array.
type AttributeSelections []AttributeSelection

// Surcharge returns the per-unit attribute cost: sum of price * quantity.
func (a AttributeSelections) Surcharge() decimal.Decimal {
	total := decimal.Zero
	for _, sel := range a {
		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}
		total = total.Add(sel.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}

// Value serializes the selections to JSON.
func (a AttributeSelections) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return jsonValue([]AttributeSelection(a))
}

// Scan decodes JSONB into the selections.
func (a *AttributeSelections) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded []AttributeSelection
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*a = decoded
	return nil
}
