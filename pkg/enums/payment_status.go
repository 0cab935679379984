package enums

// PaymentStatus tracks the payment axis of an order, independent of its fulfilment status.
type PaymentStatus string

const (
	PaymentStatusNone       PaymentStatus = "none"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusNone,
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// paymentTransitions lists, per target status, the statuses a gateway event
// may move an order out of. Anything else is a stale or repeated delivery.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusProcessing: {PaymentStatusNone, PaymentStatusPending},
	PaymentStatusPaid:       {PaymentStatusNone, PaymentStatusPending, PaymentStatusProcessing, PaymentStatusFailed},
	PaymentStatusFailed:     {PaymentStatusNone, PaymentStatusPending, PaymentStatusProcessing},
	PaymentStatusRefunded:   {PaymentStatusPaid},
}

// CanTransitionTo reports whether the payment axis may move from p to next.
// A failed payment can still be overtaken by a late success.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, from := range paymentTransitions[next] {
		if from == p {
			return true
		}
	}
	return false
}

func (p PaymentStatus) IsValid() bool { return oneOf(p, validPaymentStatuses) }

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return parseOneOf("payment status", raw, validPaymentStatuses)
}
