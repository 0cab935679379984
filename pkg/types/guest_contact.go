package types

import (
	"database/sql/driver"
	"encoding/json"
)

// GuestContact is the contact captured for anonymous checkouts.
type GuestContact struct {
	Name  string  `json:"name" validate:"required,min=1,max=120"`
	Phone string  `json:"phone" validate:"required,min=5,max=32"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// Value serializes the contact to JSON.
func (g GuestContact) Value() (driver.Value, error) {
	return jsonValue(g)
}

// Scan decodes JSONB into the contact.
func (g *GuestContact) Scan(value interface{}) error {
	if value == nil {
		*g = GuestContact{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, g)
}
