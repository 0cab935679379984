package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/restaurant-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
	"github.com/angelmondragon/restaurant-backend/pkg/types"
)

// AttributeRequest names one option chosen within a group.
type AttributeRequest struct {
	GroupID  uuid.UUID
	OptionID uuid.UUID
	Quantity int
}

// SelectAttributes checks every request against the item and snapshots the
// option name and price.
func SelectAttributes(item *catalog.Item, requests []AttributeRequest) (types.AttributeSelections, error) {
	selections := make(types.AttributeSelections, 0, len(requests))
	perGroup := make(map[uuid.UUID]int)
	seen := make(map[uuid.UUID]struct{})
	for _, req := range requests {
		group, option, ok := item.Option(req.GroupID, req.OptionID)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "attribute option does not belong to this item").
				WithDetails(map[string]any{"group_id": req.GroupID, "option_id": req.OptionID})
		}
		if !option.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "attribute option unavailable").
				WithDetails(map[string]any{"option_id": req.OptionID})
		}
		if _, dup := seen[req.OptionID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "attribute option selected twice").
				WithDetails(map[string]any{"option_id": req.OptionID})
		}
		seen[req.OptionID] = struct{}{}

		qty := req.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "attribute quantity must be positive")
		}
		perGroup[group.ID]++
		if group.MaxSelect > 0 && perGroup[group.ID] > group.MaxSelect {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many options selected for group").
				WithDetails(map[string]any{"group_id": group.ID, "max_select": group.MaxSelect})
		}
		selections = append(selections, types.AttributeSelection{
			GroupID:  group.ID,
			OptionID: option.ID,
			Name:     option.Name,
			Price:    option.Price,
			Quantity: qty,
		})
	}
	return selections, nil
}

// CheckAttributes reports whether stored selections are still valid for item.
// The stored name and price snapshot is never replaced.
func CheckAttributes(item *catalog.Item, stored types.AttributeSelections) error {
	_, err := SelectAttributes(item, requestsFrom(stored))
	return err
}

func requestsFrom(selections types.AttributeSelections) []AttributeRequest {
	out := make([]AttributeRequest, 0, len(selections))
	for _, sel := range selections {
		out = append(out, AttributeRequest{GroupID: sel.GroupID, OptionID: sel.OptionID, Quantity: sel.Quantity})
	}
	return out
}
