package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/receipt"
)

// maxReceiptForm caps the whole multipart body, leaving headroom over the
// per-file ceiling enforced by the intake service.
const maxReceiptForm = receipt.MaxFileSize + 1<<20

// attachReceipt handles POST /api/orders/{id}/receipt: a multipart upload of
// bank-transfer evidence by the order's owner.
func (h *Handler) attachReceipt(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptForm)
	if err := r.ParseMultipartForm(maxReceiptForm); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	meta := receipt.FileMeta{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	if err := h.intake.AttachReceipt(r.Context(), r.PathValue("id"), caller, meta, file); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("status")
		e.Str("pending_review")
		e.ObjEnd()
	})
}
