package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khanhERP/laundry-pos/internal/cart"
	"github.com/khanhERP/laundry-pos/internal/common"
	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// Handler wires checkout to HTTP.
type Handler struct {
	Svc *Service
}

// Create finalizes a cart into an order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	cashierID, _ := common.CashierID(r.Context())
	out, err := h.Svc.Create(r.Context(), cashierID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, pricing.ErrNoLines):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "cart has no lines", nil)
	case errors.Is(err, pricing.ErrValidation):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	case errors.Is(err, pricing.ErrReconciliation):
		common.JSONError(w, http.StatusInternalServerError, "RECONCILIATION", "pricing failed to reconcile", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
