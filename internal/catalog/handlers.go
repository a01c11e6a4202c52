package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khanhERP/laundry-pos/internal/common"
)

// Handler exposes catalog reads.
type Handler struct {
	Svc *Service
}

// List returns a page of items.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	items, total, err := h.Svc.List(r.Context(), r.URL.Query().Get("q"), page, perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list items", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns one item by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	item, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load item", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}
