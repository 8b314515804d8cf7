package order

import "fmt"

// Sentinel errors shared across the workflow packages.
var (
	// ErrNotFound indicates the order (or a related resource) does not exist.
	ErrNotFound = fmt.Errorf("order not found")
	// ErrConflict indicates a concurrent writer won the status race. The
	// caller must re-read the order before deciding whether to retry; the
	// workflow layer never retries on its own.
	ErrConflict = fmt.Errorf("order was modified concurrently")
	// ErrForbidden indicates the calling principal is not allowed to act on
	// the order.
	ErrForbidden = fmt.Errorf("forbidden")
)

// IllegalTransitionError indicates the requested event is not a legal edge
// from the order's current status. State is left untouched.
type IllegalTransitionError struct {
	From  Status
	Event Event
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: event %s from status %s", e.Event, e.From)
}

// ValidationError indicates malformed input: a bad file type or size, a
// missing required field, an unknown status value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
