package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/khanhERP/laundry-pos/internal/common"
	"github.com/khanhERP/laundry-pos/internal/events"
)

// Handler exposes order reads and the void operation.
type Handler struct {
	Store  *PgStore
	Events *events.Bus
}

// Get returns one order with its pricing snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// List returns a page of orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	orders, total, err := h.Store.List(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Void cancels an unpaid order.
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	if err := h.Store.Void(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	if h.Events != nil {
		_, _ = h.Events.Emit(r.Context(), events.TopicOrderVoided,
			pgtype.UUID{Bytes: id, Valid: true}, map[string]any{"orderId": id.String()})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": StatusVoided}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrBadTransition):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "order is not in a voidable state", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
