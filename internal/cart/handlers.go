package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khanhERP/laundry-pos/internal/common"
	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc      *Service
	Currency string
}

// Create opens a new cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cart, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": cart})
}

// Get returns the cart with its current pricing preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cart, snap, err := h.Svc.Price(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		// A cart with no lines yet is still a valid cart.
		if errors.Is(err, pricing.ErrNoLines) {
			cart, getErr := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
			if getErr != nil {
				h.writeError(w, getErr)
				return
			}
			common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"cart":     cart,
				"currency": h.Currency,
			}})
			return
		}
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"cart":     cart,
		"pricing":  snap,
		"currency": h.Currency,
	}})
}

// UpsertLine adds or replaces one cart line.
func (h *Handler) UpsertLine(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var line pricing.RawLine
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	cart, err := h.Svc.UpsertLine(r.Context(), chi.URLParam(r, "id"), line)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

// RemoveLine deletes one cart line.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cart, err := h.Svc.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

// ApplyDiscount sets the order-level discount.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload pricing.RawDiscount
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	cart, err := h.Svc.ApplyOrderDiscount(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

// RemoveDiscount clears the order-level discount.
func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	cart, err := h.Svc.RemoveOrderDiscount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cart})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart line not found", nil)
	case errors.Is(err, pricing.ErrValidation), errors.Is(err, pricing.ErrNoLines):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	case errors.Is(err, pricing.ErrReconciliation):
		common.JSONError(w, http.StatusInternalServerError, "RECONCILIATION", "pricing failed to reconcile", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
