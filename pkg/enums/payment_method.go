package enums

// PaymentMethod is how the customer settles an order.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodCashOnDelivery,
}

func (p PaymentMethod) IsValid() bool { return oneOf(p, validPaymentMethods) }

// UsesGateway reports whether the order needs a payment intent. Cash orders
// are settled at the door and stay pending until staff complete them.
func (p PaymentMethod) UsesGateway() bool {
	return p == PaymentMethodCard
}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	return parseOneOf("payment method", raw, validPaymentMethods)
}
