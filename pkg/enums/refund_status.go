package enums

// RefundStatus records the outcome of a refund attempt.
type RefundStatus string

const (
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

// RefundStatusFromResult maps a refund call outcome onto the attempts ledger.
func RefundStatusFromResult(err error) RefundStatus {
	if err != nil {
		return RefundStatusFailed
	}
	return RefundStatusSucceeded
}
