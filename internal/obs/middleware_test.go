package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/khanhERP/laundry-pos/internal/obs"
)

func TestHTTPObsRecordsPerRoute(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("laundrypos", []float64{1, 10}, registry)

	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/checkout"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/checkout", "201"))
	if total != 1 {
		t.Fatalf("expected request counter 1, got %v", total)
	}
	if samples := testutil.CollectAndCount(metrics.ReqDur); samples == 0 {
		t.Fatal("expected a duration sample")
	}
	if inflight := testutil.ToFloat64(metrics.InFlight); inflight != 0 {
		t.Fatalf("expected in-flight gauge back at 0, got %v", inflight)
	}
}
