package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type decrementFailureResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	Cause         string    `json:"cause"`
	CreatedAt     time.Time `json:"created_at"`
}

// listDecrementFailures returns stock decrements that failed after a sale
// was persisted, oldest first, so an operator can correct stock by hand.
func (h *Handler) listDecrementFailures(w http.ResponseWriter, r *http.Request) {
	entries, err := h.reconcile.ListUnresolved(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]decrementFailureResponse, len(entries))
	for i, e := range entries {
		out[i] = decrementFailureResponse{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			ProductID:     e.ProductID,
			Quantity:      e.Quantity,
			Cause:         e.Cause,
			CreatedAt:     e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) resolveDecrementFailure(w http.ResponseWriter, r *http.Request) {
	if err := h.reconcile.Resolve(r.Context(), chi.URLParam(r, "failureID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
