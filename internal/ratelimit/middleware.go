package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var throttledCounter, _ = otel.Meter("laundry-pos/ratelimit").Int64Counter(
	"ratelimit.throttled",
	metric.WithDescription("Requests rejected with 429 by the sliding window limiter."),
)

// Config decides which bucket a request falls into and how full it may get.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler throttles requests per key. Limiter failures fail open so a Redis
// outage never takes the register offline.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		h.writeQuotaHeaders(w, remaining, resetAt)
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Retry-After", strconv.Itoa(secondsUntil(resetAt)))
		if throttledCounter != nil {
			throttledCounter.Add(r.Context(), 1)
		}
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})
}

func (h Handler) writeQuotaHeaders(w http.ResponseWriter, remaining int, resetAt time.Time) {
	limit := h.Config.Max
	if limit < 0 {
		limit = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func secondsUntil(t time.Time) int {
	s := int(time.Until(t).Seconds())
	if s < 0 {
		return 0
	}
	return s
}
