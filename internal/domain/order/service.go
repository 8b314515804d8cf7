package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transition describes one application of a state machine edge.
type Transition struct {
	Event Event
	// Expected is the status the caller observed before requesting the
	// transition. The update only commits if it still holds.
	Expected Status

	// ReceiptRef must be set for EventReceiptAttached.
	ReceiptRef string
	// RejectReason is stored for EventAdminRejected.
	RejectReason string
	// Target must be set for EventStatusOverride and is ignored otherwise.
	Target Status
}

// Service is the order lifecycle engine. It owns the transition table and is
// the only component permitted to write status or payment status.
type Service struct {
	orders Repository
}

// NewService creates the lifecycle engine over the given order store.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// resolve maps a transition request onto the legal edge table, returning the
// full mutation to apply. It performs no I/O.
func resolve(t Transition) (StatusChange, error) {
	illegal := func() (StatusChange, error) {
		return StatusChange{}, &IllegalTransitionError{From: t.Expected, Event: t.Event}
	}

	switch t.Event {
	case EventReceiptAttached:
		if t.Expected != StatusPending {
			return illegal()
		}
		if t.ReceiptRef == "" {
			return StatusChange{}, &ValidationError{Field: "receipt", Reason: "reference required"}
		}
		return StatusChange{
			Status:        StatusPendingReview,
			PaymentStatus: PaymentPending,
			ReceiptRef:    t.ReceiptRef,
		}, nil

	case EventAdminConfirmed:
		if t.Expected != StatusPendingReview {
			return illegal()
		}
		return StatusChange{
			Status:        StatusProcessing,
			PaymentStatus: PaymentPaid,
		}, nil

	case EventAdminRejected:
		if t.Expected != StatusPendingReview {
			return illegal()
		}
		return StatusChange{
			Status:        StatusCancelled,
			PaymentStatus: PaymentFailed,
			RejectReason:  t.RejectReason,
		}, nil

	case EventStatusOverride:
		// Bookkeeping path: any operational target, no payment side effects.
		if !OverridableStatus(t.Target) {
			return StatusChange{}, &ValidationError{Field: "status", Reason: "not an operational status: " + string(t.Target)}
		}
		return StatusChange{Status: t.Target}, nil
	}

	return illegal()
}

// ApplyTransition applies one edge of the state machine as an atomic
// conditional update. Exactly one of two concurrent callers acting on the
// same expected status commits; the other receives ErrConflict and must
// re-read before retrying. The engine itself never retries: a silent replay
// could apply a non-idempotent action twice.
func (s *Service) ApplyTransition(ctx context.Context, orderID string, t Transition) (Status, error) {
	change, err := resolve(t)
	if err != nil {
		return "", err
	}

	committed, err := s.orders.UpdateStatus(ctx, orderID, t.Expected, change)
	if err != nil {
		return "", errors.Wrapf(err, "update order %s", orderID)
	}
	if committed {
		return change.Status, nil
	}

	// Guard mismatch: distinguish a missing order from a lost race.
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", errors.Wrapf(err, "re-read order %s", orderID)
	}
	return "", ErrConflict
}

// CreateOrderRequest holds the input for order creation at checkout.
type CreateOrderRequest struct {
	OwnerID      string
	Items        []Item
	Shipping     ShippingAddress
	ShippingCost decimal.Decimal
}

// CreateOrder validates the checkout input, snapshots prices into a new
// order, and persists it. Line items are written after the order row; if
// they fail, the order row is deleted so no orphan survives.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.OwnerID == "" {
		return nil, &ValidationError{Field: "owner_id", Reason: "required"}
	}
	if len(req.Items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "at least one item required"}
	}
	if req.Shipping.Email == "" {
		return nil, &ValidationError{Field: "shipping.email", Reason: "required"}
	}
	if req.ShippingCost.IsNegative() {
		return nil, &ValidationError{Field: "shipping_cost", Reason: "must not be negative"}
	}

	total := req.ShippingCost
	for _, item := range req.Items {
		if item.ProductID == "" {
			return nil, &ValidationError{Field: "items.product_id", Reason: "required"}
		}
		if item.Quantity <= 0 {
			return nil, &ValidationError{Field: "items.quantity", Reason: "must be greater than 0 for product " + item.ProductID}
		}
		if item.UnitPrice.IsNegative() {
			return nil, &ValidationError{Field: "items.unit_price", Reason: "must not be negative for product " + item.ProductID}
		}
		total = total.Add(item.Subtotal())
	}

	now := time.Now().UTC()
	o := &Order{
		ID:            uuid.New().String(),
		OrderNumber:   newOrderNumber(now),
		OwnerID:       req.OwnerID,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		TotalAmount:   total.Round(2),
		ShippingCost:  req.ShippingCost.Round(2),
		Shipping:      req.Shipping,
		Items:         req.Items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orders.CreateOrder(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	if err := s.orders.CreateItems(ctx, o.ID, o.Items); err != nil {
		// Compensating rollback: no order row may survive without its items.
		if delErr := s.orders.Delete(ctx, o.ID); delErr != nil {
			return nil, errors.Wrapf(err, "create order items (rollback also failed: %v)", delErr)
		}
		return nil, errors.Wrap(err, "create order items")
	}

	return o, nil
}

// Get fetches a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

// List returns orders matching the filter together with aggregate stats.
// Reads are not linearizable with writes; momentarily stale results are
// acceptable for display.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, *Stats, error) {
	list, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list orders")
	}
	stats, err := s.orders.Stats(ctx, ListFilter{OwnerID: f.OwnerID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "order stats")
	}
	return list, stats, nil
}

// newOrderNumber builds the human-readable order reference used in all
// customer communication, e.g. ORD-20260828-4F2A1C.
func newOrderNumber(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return "ORD-" + now.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b[:]))
}
