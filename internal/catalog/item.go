package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is the read-only catalog view the pricing, stock and cart engines need.
type Item struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	BasePrice       decimal.Decimal  `json:"base_price"`
	IsActive        bool             `json:"is_active"`
	ManagedStock    bool             `json:"managed_stock"`
	BranchIDs       []uuid.UUID      `json:"branch_ids"`
	AttributeGroups []AttributeGroup `json:"attribute_groups"`
}

type AttributeGroup struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	MaxSelect int               `json:"max_select"`
	Options   []AttributeOption `json:"options"`
}

type AttributeOption struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	IsActive bool            `json:"is_active"`
}

// Option finds an option that belongs to groupID on this item.
func (i Item) Option(groupID, optionID uuid.UUID) (AttributeGroup, AttributeOption, bool) {
	for _, group := range i.AttributeGroups {
		if group.ID != groupID {
			continue
		}
		for _, opt := range group.Options {
			if opt.ID == optionID {
				return group, opt, true
			}
		}
		return group, AttributeOption{}, false
	}
	return AttributeGroup{}, AttributeOption{}, false
}

// SoldAt reports whether the item is sold at branchID. Items with no branch
// associations are sold everywhere.
func (i Item) SoldAt(branchID uuid.UUID) bool {
	if len(i.BranchIDs) == 0 {
		return true
	}
	for _, id := range i.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}
