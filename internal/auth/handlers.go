package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khanhERP/laundry-pos/internal/common"
)

// Handler wires auth endpoints.
type Handler struct {
	Svc *Service
}

// Login authenticates a cashier and returns a shift token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	result, err := h.Svc.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Me returns the authenticated cashier identifier.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cashierID, ok := common.CashierID(r.Context())
	if !ok || cashierID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"cashierId": cashierID}})
}
