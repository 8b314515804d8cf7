package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/order"
)

// confirmOrder handles POST /api/orders/{id}/confirm.
func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.review.ConfirmOrder(r.Context(), r.PathValue("id"), caller); err != nil {
		respondError(w, r, err)
		return
	}
	writeStatus(w, order.StatusProcessing)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// rejectOrder handles POST /api/orders/{id}/reject with an optional JSON
// body carrying the reason.
func (h *Handler) rejectOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req rejectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := h.review.RejectOrder(r.Context(), r.PathValue("id"), caller, req.Reason); err != nil {
		respondError(w, r, err)
		return
	}
	writeStatus(w, order.StatusCancelled)
}

type overrideRequest struct {
	Status string `json:"status"`
}

// overrideStatus handles PUT /api/orders/{id}/status: the administrative
// bookkeeping path for shipping and delivery updates.
func (h *Handler) overrideStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target, ok := order.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "unknown status: "+req.Status)
		return
	}

	if err := h.review.OverrideStatus(r.Context(), r.PathValue("id"), caller, target); err != nil {
		respondError(w, r, err)
		return
	}
	writeStatus(w, target)
}

func writeStatus(w http.ResponseWriter, status order.Status) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("status")
		e.Str(string(status))
		e.ObjEnd()
	})
}
