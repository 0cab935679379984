package enums

// DiscountType selects percentage or fixed-amount discounts.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercentage,
	DiscountTypeFixed,
}

func (d DiscountType) IsValid() bool { return oneOf(d, validDiscountTypes) }

func ParseDiscountType(raw string) (DiscountType, error) {
	return parseOneOf("discount type", raw, validDiscountTypes)
}
