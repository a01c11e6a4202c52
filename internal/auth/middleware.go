package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/khanhERP/laundry-pos/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware resolves the cashier identity from a shift token carried either
// in the Authorization header or in the access cookie.
type Middleware struct {
	Service      *Service
	AccessCookie string
}

// Authenticate is the soft variant: it attaches the cashier ID when a valid
// token is present and otherwise lets the request through anonymously.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx, err := m.resolve(r); err == nil || errors.Is(err, errNoToken) {
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects the request with 401 unless a valid shift token is
// presented.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.resolve(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) resolve(r *http.Request) (context.Context, error) {
	if m.Service == nil {
		return r.Context(), errors.New("auth: service not configured")
	}
	token := m.bearerToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	cashierID, err := m.Service.ParseAccessToken(token)
	if err != nil {
		return r.Context(), err
	}
	return common.WithCashierID(r.Context(), cashierID), nil
}

func (m Middleware) bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.AccessCookie == "" {
		return ""
	}
	cookie, err := r.Cookie(m.AccessCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func writeAuthError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusUnauthorized
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
}
