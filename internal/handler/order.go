package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/order"
)

type createOrderRequest struct {
	Items        []createOrderItem     `json:"items"`
	Shipping     order.ShippingAddress `json:"shipping"`
	ShippingCost decimal.Decimal       `json:"shipping_cost"`
}

type createOrderItem struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
}

// createOrder handles POST /api/orders: checkout for the authenticated
// customer.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.Item{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
		}
	}

	o, err := h.engine.CreateOrder(r.Context(), order.CreateOrderRequest{
		OwnerID:      caller.OwnerID,
		Items:        items,
		Shipping:     req.Shipping,
		ShippingCost: req.ShippingCost,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// listOrders handles GET /api/orders: admins see every order, customers see
// their own. Aggregate stats ride along with the list.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := order.ListFilter{}
	if !h.guard.IsAdmin(r.Context(), caller) {
		filter.OwnerID = caller.OwnerID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := order.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status: "+raw)
			return
		}
		filter.Status = status
	}

	list, stats, err := h.engine.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orders")
		e.ArrStart()
		for i := range list {
			encodeOrder(e, &list[i])
		}
		e.ArrEnd()
		e.FieldStart("stats")
		encodeStats(e, stats)
		e.ObjEnd()
	})
}

// getOrder handles GET /api/orders/{id}. Owners and admins only.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	o, err := h.engine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if o.OwnerID != caller.OwnerID && !h.guard.IsAdmin(r.Context(), caller) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
