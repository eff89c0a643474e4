package storage

// Status is the lifecycle state of a delivery record.
//
// Transitions move forward only:
//
//	pending -> published -> delivered | delivery_failed
//	pending -> publish_failed (terminal)
type Status string

const (
	// StatusPending means the record is created and broker submission
	// has not yet been acknowledged.
	StatusPending Status = "pending"
	// StatusPublished means the broker accepted the message.
	StatusPublished Status = "published"
	// StatusPublishFailed means the broker rejected or timed out. Terminal.
	StatusPublishFailed Status = "publish_failed"
	// StatusDelivered means the consumer handed the message to the mail sink.
	StatusDelivered Status = "delivered"
	// StatusDeliveryFailed means the mail sink reported an error. Terminal.
	StatusDeliveryFailed Status = "delivery_failed"
)

// predecessors maps each status to the statuses a record may hold
// immediately before transitioning into it.
var predecessors = map[Status][]Status{
	StatusPublished:      {StatusPending},
	StatusPublishFailed:  {StatusPending},
	StatusDelivered:      {StatusPublished},
	StatusDeliveryFailed: {StatusPublished},
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPublished, StatusPublishFailed, StatusDelivered, StatusDeliveryFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a record in status s may move to next.
// No transition moves a record backward.
func (s Status) CanTransitionTo(next Status) bool {
	for _, p := range predecessors[next] {
		if p == s {
			return true
		}
	}
	return false
}

// Predecessors returns the statuses from which a record may legally
// transition into next. The conditional status update uses this as its
// WHERE guard, which makes the transition idempotent: a second
// application finds the record no longer in a predecessor state and
// matches zero rows.
func Predecessors(next Status) []Status {
	return predecessors[next]
}
