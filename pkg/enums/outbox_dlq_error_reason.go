package enums

// OutboxDLQErrorReason records why an outbox row stopped being retried.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means the broker kept failing transiently.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonUndecodable means the stored row no longer matches a
	// registered event shape, so no publish was attempted.
	OutboxDLQReasonUndecodable OutboxDLQErrorReason = "undecodable"
	// OutboxDLQReasonBrokerRejected means the broker refused the message
	// outright; resending the same bytes cannot succeed.
	OutboxDLQReasonBrokerRejected OutboxDLQErrorReason = "broker_rejected"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonUndecodable, OutboxDLQReasonBrokerRejected:
		return true
	}
	return false
}

// Replayable reports whether an operator can requeue the row unchanged once
// the broker recovers. Undecodable and rejected rows need a fix first.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts
}
