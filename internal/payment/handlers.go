package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/khanhERP/laundry-pos/internal/common"
	"github.com/khanhERP/laundry-pos/internal/order"
)

// Handler wires payment settlement to HTTP.
type Handler struct {
	Svc *Service
}

// Settle applies tenders to an order.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment service not configured", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var payload struct {
		Tenders []Tender `json:"tenders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	settlement, err := h.Svc.Settle(r.Context(), orderID, payload.Tenders)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": settlement})
}

// Receipt returns the display/print payload for an order.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment service not configured", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	receipt, err := h.Svc.Receipt(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": receipt})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, order.ErrBadTransition):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "order is not payable", nil)
	case errors.Is(err, ErrNoTenders), errors.Is(err, ErrUnknownMethod), errors.Is(err, ErrTenderMismatch):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", "payment provider error", nil)
	}
}
