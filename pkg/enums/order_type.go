package enums

// OrderType is the fulfilment channel chosen for a cart or order.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDineIn   OrderType = "dine_in"
)

var validOrderTypes = []OrderType{
	OrderTypeDelivery,
	OrderTypePickup,
	OrderTypeDineIn,
}

func (o OrderType) IsValid() bool { return oneOf(o, validOrderTypes) }

func ParseOrderType(raw string) (OrderType, error) {
	return parseOneOf("order type", raw, validOrderTypes)
}
