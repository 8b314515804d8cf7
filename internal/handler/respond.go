package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/veloshop/orderdesk/internal/domain/order"
)

// writeJSON encodes the response built by fn and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the standard error body {"code": ..., "message": ...}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// respondError maps workflow errors onto HTTP statuses. Unknown errors are
// logged and surfaced as 500 without leaking detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		illegalErr    *order.IllegalTransitionError
		validationErr *order.ValidationError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, order.ErrConflict):
		writeError(w, http.StatusConflict, "order was modified concurrently, re-read and retry")
	case errors.As(err, &illegalErr):
		writeError(w, http.StatusConflict, illegalErr.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, validationErr.Error())
	default:
		zctx.From(r.Context()).Error("Unhandled request error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// encodeOrder writes the full order representation.
func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("order_number")
	e.Str(o.OrderNumber)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("payment_status")
	e.Str(string(o.PaymentStatus))
	e.FieldStart("total_amount")
	e.Str(o.TotalAmount.StringFixed(2))
	e.FieldStart("shipping_cost")
	e.Str(o.ShippingCost.StringFixed(2))
	if o.ReceiptReference != "" {
		e.FieldStart("receipt_reference")
		e.Str(o.ReceiptReference)
	}
	if o.RejectReason != "" {
		e.FieldStart("reject_reason")
		e.Str(o.RejectReason)
	}
	e.FieldStart("shipping")
	encodeShipping(e, o.Shipping)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(it.ProductID)
		e.FieldStart("product_name")
		e.Str(it.ProductName)
		if it.ProductImage != "" {
			e.FieldStart("product_image")
			e.Str(it.ProductImage)
		}
		e.FieldStart("unit_price")
		e.Str(it.UnitPrice.StringFixed(2))
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	e.ObjEnd()
}

func encodeShipping(e *jx.Encoder, s order.ShippingAddress) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("email")
	e.Str(s.Email)
	if s.Phone != "" {
		e.FieldStart("phone")
		e.Str(s.Phone)
	}
	e.FieldStart("line1")
	e.Str(s.Line1)
	if s.Line2 != "" {
		e.FieldStart("line2")
		e.Str(s.Line2)
	}
	e.FieldStart("city")
	e.Str(s.City)
	e.FieldStart("postal_code")
	e.Str(s.PostalCode)
	e.FieldStart("country")
	e.Str(s.Country)
	e.ObjEnd()
}

func encodeStats(e *jx.Encoder, st *order.Stats) {
	e.ObjStart()
	e.FieldStart("total_orders")
	e.Int(st.TotalOrders)
	e.FieldStart("revenue")
	e.Str(st.Revenue.StringFixed(2))
	e.FieldStart("count_by_status")
	e.ObjStart()
	for _, s := range []order.Status{
		order.StatusPending, order.StatusPendingReview, order.StatusProcessing,
		order.StatusShipped, order.StatusDelivered, order.StatusCancelled,
	} {
		if n, ok := st.CountByStatus[s]; ok {
			e.FieldStart(string(s))
			e.Int(n)
		}
	}
	e.ObjEnd()
	e.ObjEnd()
}
