package enums

// CartStatus tracks whether a cart is still editable.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
	CartStatusAbandoned CartStatus = "abandoned"
)

// CanTransitionTo reports whether a cart may move to next. Only an active
// cart changes state; converted and abandoned carts are final.
func (c CartStatus) CanTransitionTo(next CartStatus) bool {
	return c == CartStatusActive && (next == CartStatusConverted || next == CartStatusAbandoned)
}
