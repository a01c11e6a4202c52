package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	defaultDBTimeout    = 500 * time.Millisecond
	defaultRedisTimeout = 300 * time.Millisecond
)

// Checker probes the backing stores the API cannot serve without.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live always answers ok while the process is running.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready answers 200 only when the process accepts traffic and both the
// database and Redis respond to a probe. During shutdown the ready flag is
// cleared first so the load balancer drains this instance.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !IsReady() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	status := map[string]string{
		"db":    probe(ctx, h.Checker.PingDB, orDefault(h.DBTimeout, defaultDBTimeout)),
		"redis": probe(ctx, h.Checker.PingRedis, orDefault(h.RedisTimeout, defaultRedisTimeout)),
	}

	code := http.StatusOK
	for _, v := range status {
		if v != "ok" {
			code = http.StatusServiceUnavailable
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func probe(ctx context.Context, ping func(context.Context, time.Duration) error, timeout time.Duration) string {
	if err := ping(ctx, timeout); err != nil {
		return err.Error()
	}
	return "ok"
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
