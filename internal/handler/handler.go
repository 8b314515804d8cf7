// Package handler exposes the order workflow over HTTP. It is a thin layer:
// decode, delegate to a domain service, map the result or error back to a
// response.
package handler

import (
	"net/http"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/order"
	"github.com/veloshop/orderdesk/internal/domain/receipt"
	"github.com/veloshop/orderdesk/internal/domain/review"
)

// Handler holds the domain services behind the API routes.
type Handler struct {
	engine *order.Service
	intake *receipt.Intake
	review *review.Service
	guard  auth.AccessGuard
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	engine *order.Service,
	intake *receipt.Intake,
	reviewSvc *review.Service,
	guard auth.AccessGuard,
) *Handler {
	return &Handler{
		engine: engine,
		intake: intake,
		review: reviewSvc,
		guard:  guard,
	}
}

// Register attaches all API routes to mux. Authentication is applied by the
// surrounding middleware chain, not here.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/receipt", h.attachReceipt)
	mux.HandleFunc("POST /api/orders/{id}/confirm", h.confirmOrder)
	mux.HandleFunc("POST /api/orders/{id}/reject", h.rejectOrder)
	mux.HandleFunc("PUT /api/orders/{id}/status", h.overrideStatus)
}
