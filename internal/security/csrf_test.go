package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func csrfHandler() http.Handler {
	return CSRF{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	rr := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCSRFAcceptsMatchingTokenAndCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("X-CSRF-Token", "shift-token")
	req.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "shift-token"})

	rr := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestCSRFRejectsMismatch(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("X-CSRF-Token", "shift-token")
	req.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "other"})

	rr := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on token mismatch, got %d", rr.Code)
	}
}

func TestCSRFSkipsBearerRequests(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Authorization", "Bearer abc.def")

	rr := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("bearer request should bypass csrf, got %d", rr.Code)
	}
}
