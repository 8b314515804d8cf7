// Package receipt implements bank-transfer receipt intake: a customer
// uploads evidence of an out-of-band payment, which moves their order into
// review.
package receipt

import (
	"context"
	"io"

	"github.com/go-faster/errors"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/order"
	"github.com/veloshop/orderdesk/internal/notify"
)

// MaxFileSize is the default ceiling for uploaded receipt files.
const MaxFileSize = 5 << 20 // 5 MiB

// allowedContentTypes is the receipt upload allow-list: common image formats
// plus PDF.
var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// FileMeta describes an uploaded file before its bytes are consumed.
type FileMeta struct {
	Filename    string
	ContentType string
	Size        int64
}

// ObjectStore is the external collaborator that persists receipt files. Put
// returns a stable reference (URL or key) for the stored object.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Intake accepts receipt uploads, attaches them to orders, and triggers the
// pending -> pending_review transition.
type Intake struct {
	engine     *order.Service
	store      ObjectStore
	notifier   notify.Sender
	adminEmail string
	maxSize    int64
}

// NewIntake constructs the receipt intake service. adminEmail receives the
// "receipt awaits review" notification. maxSize <= 0 means MaxFileSize.
func NewIntake(engine *order.Service, store ObjectStore, notifier notify.Sender, adminEmail string, maxSize int64) *Intake {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	return &Intake{
		engine:     engine,
		store:      store,
		notifier:   notifier,
		adminEmail: adminEmail,
		maxSize:    maxSize,
	}
}

// AttachReceipt validates the upload, stores the file, and applies the
// "receipt attached" transition. The file is persisted before the transition
// so a cancelled upload leaves the order untouched; the notification fires
// only after the transition commits and never affects the result.
func (i *Intake) AttachReceipt(ctx context.Context, orderID string, caller auth.Principal, meta FileMeta, file io.Reader) error {
	ext, ok := allowedContentTypes[meta.ContentType]
	if !ok {
		return &order.ValidationError{Field: "file", Reason: "unsupported content type " + meta.ContentType}
	}
	if meta.Size <= 0 {
		return &order.ValidationError{Field: "file", Reason: "empty file"}
	}
	if meta.Size > i.maxSize {
		return &order.ValidationError{Field: "file", Reason: "file exceeds size limit"}
	}

	o, err := i.engine.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.OwnerID != caller.OwnerID {
		// Customers may only attach receipts to their own orders.
		return order.ErrForbidden
	}
	if o.Status != order.StatusPending {
		// Receipts are immutable once accepted; a rejected order is terminal
		// and requires a fresh order for a re-upload.
		return &order.IllegalTransitionError{From: o.Status, Event: order.EventReceiptAttached}
	}

	// Guard against a lying Content-Length: never read more than the ceiling.
	ref, err := i.store.Put(ctx, orderID+ext, meta.ContentType, io.LimitReader(file, i.maxSize))
	if err != nil {
		return errors.Wrap(err, "store receipt")
	}

	if _, err := i.engine.ApplyTransition(ctx, orderID, order.Transition{
		Event:      order.EventReceiptAttached,
		Expected:   order.StatusPending,
		ReceiptRef: ref,
	}); err != nil {
		return err
	}

	i.notifier.Dispatch(ctx, notify.Message{
		OrderID:   o.ID,
		Template:  notify.TemplateReceiptSubmitted,
		Recipient: i.adminEmail,
		Params: map[string]string{
			"order_number": o.OrderNumber,
			"receipt_url":  ref,
		},
	})
	return nil
}
