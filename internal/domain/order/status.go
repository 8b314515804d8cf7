package order

// Status is the workflow position of an order. It is the single source of
// truth for what may happen to the order next.
type Status string

const (
	// StatusPending means the order was created and awaits payment evidence.
	StatusPending Status = "pending"
	// StatusPendingReview means a receipt is attached and awaits an admin decision.
	StatusPendingReview Status = "pending_review"
	// StatusProcessing means an admin confirmed payment and fulfillment started.
	StatusProcessing Status = "processing"
	// StatusShipped means the order left the warehouse.
	StatusShipped Status = "shipped"
	// StatusDelivered means the order reached the customer.
	StatusDelivered Status = "delivered"
	// StatusCancelled is the terminal escape state.
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks financial settlement independently from fulfillment.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Event names a state machine edge.
type Event string

const (
	// EventReceiptAttached moves pending -> pending_review.
	EventReceiptAttached Event = "receipt_attached"
	// EventAdminConfirmed moves pending_review -> processing.
	EventAdminConfirmed Event = "admin_confirmed"
	// EventAdminRejected moves pending_review -> cancelled.
	EventAdminRejected Event = "admin_rejected"
	// EventStatusOverride is the administrative bookkeeping path. It may set
	// any status in the operational set and triggers no payment side effects.
	EventStatusOverride Event = "status_override"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusPendingReview, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// overrideTargets is the operational set reachable through the manual
// override path. pending_review is deliberately absent: the only way into
// review is an actual receipt upload.
var overrideTargets = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

// OverridableStatus reports whether target may be set via EventStatusOverride.
func OverridableStatus(target Status) bool {
	return overrideTargets[target]
}
