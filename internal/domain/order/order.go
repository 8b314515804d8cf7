package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer's purchase request with line items, a shipping
// snapshot, and a lifecycle status. Orders are never physically deleted by
// the workflow; cancellation is a terminal status.
type Order struct {
	ID            string
	OrderNumber   string
	OwnerID       string
	Status        Status
	PaymentStatus PaymentStatus
	TotalAmount   decimal.Decimal
	ShippingCost  decimal.Decimal
	Shipping      ShippingAddress
	// ReceiptReference points at the uploaded payment evidence. Set exactly
	// once by receipt intake, never cleared.
	ReceiptReference string
	RejectReason     string
	Items            []Item
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Item is a line item with prices snapshotted at order time. Items are
// created atomically with the order and never mutated.
type Item struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
}

// Subtotal returns unit price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is a snapshot of customer contact and delivery data at
// order time. The order stays addressable for email even if the customer's
// profile changes later.
type ShippingAddress struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// StatusChange is the mutation applied by a conditional status update.
// Zero-valued fields leave the corresponding column untouched.
type StatusChange struct {
	Status        Status
	PaymentStatus PaymentStatus
	ReceiptRef    string
	RejectReason  string
}

// ListFilter narrows List results.
type ListFilter struct {
	Status  Status // empty means all statuses
	OwnerID string // empty means all owners
}

// Stats are the aggregate projections served alongside order lists.
type Stats struct {
	CountByStatus map[Status]int
	TotalOrders   int
	// Revenue sums total_amount over orders whose payment settled.
	Revenue decimal.Decimal
}

// Repository is the order store collaborator. UpdateStatus is the single
// write primitive for status and payment fields: a compare-and-swap keyed on
// the expected prior status.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	CreateItems(ctx context.Context, orderID string, items []Item) error
	// Delete removes the order row. It exists solely for the compensating
	// rollback when line item persistence fails right after order creation.
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	Stats(ctx context.Context, f ListFilter) (*Stats, error)
	// UpdateStatus atomically applies change iff the order's current status
	// equals expected. It reports whether the write committed. A false return
	// with nil error means the guard did not match (missing row or stale
	// status); the caller re-reads to tell the two apart.
	UpdateStatus(ctx context.Context, id string, expected Status, change StatusChange) (bool, error)
}
