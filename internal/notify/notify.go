// Package notify delivers transactional email notifications for order
// lifecycle transitions. Delivery is fire-and-forget: the workflow layer
// never awaits the result and a delivery failure never propagates as a
// transition failure.
package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Templates for the three customer/admin-facing transactional emails.
const (
	// TemplateReceiptSubmitted tells the admin inbox a receipt awaits review.
	TemplateReceiptSubmitted = "receipt_submitted"
	// TemplateOrderConfirmed tells the customer payment was accepted.
	TemplateOrderConfirmed = "order_confirmed"
	// TemplateOrderRejected tells the customer payment evidence was rejected.
	TemplateOrderRejected = "order_rejected"
)

// Message is one templated notification addressed to a single recipient.
type Message struct {
	// OrderID keys deduplication together with Template.
	OrderID   string
	Template  string
	Recipient string
	Params    map[string]string
}

// Notifier sends a single message over some transport. Implementations must
// honor the context deadline.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier is the development and test transport: it writes the message
// to the log instead of delivering it.
type LogNotifier struct{}

// Send logs the message at info level.
func (LogNotifier) Send(ctx context.Context, msg Message) error {
	zctx.From(ctx).Info("Notification",
		zap.String("template", msg.Template),
		zap.String("order_id", msg.OrderID),
		zap.String("recipient", msg.Recipient),
		zap.Any("params", msg.Params),
	)
	return nil
}
