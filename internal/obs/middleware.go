package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// responseTap records the status code and body size while passing writes
// through. Handlers that never call WriteHeader count as 200.
type responseTap struct {
	http.ResponseWriter
	code    int
	written int64
}

func tapResponse(w http.ResponseWriter) *responseTap {
	return &responseTap{ResponseWriter: w, code: http.StatusOK}
}

func (t *responseTap) WriteHeader(code int) {
	t.code = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTap) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.written += int64(n)
	return n, err
}

// routeLabel resolves the matched chi pattern so metrics stay low-cardinality
// even for parameterized routes.
func routeLabel(r *http.Request, fallback string) string {
	if route := RoutePatternFromContext(r.Context()); route != "" {
		return route
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return fallback
}

// HTTPObs instruments handlers with the request counters and histograms.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware implements the chi middleware shape. A nil Metrics disables it.
func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tap := tapResponse(w)
		o.Metrics.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(tap, r)
		o.Metrics.InFlight.Dec()

		route := routeLabel(r, "unknown")
		o.Metrics.ReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(tap.code)).Inc()
		o.Metrics.ReqDur.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(start)))
	})
}

// RoutePatternMiddleware stores the matched route pattern on the context so
// downstream middleware sees it regardless of ordering.
func RoutePatternMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rc := chi.RouteContext(ctx); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				ctx = WithRoutePattern(ctx, pattern)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TracingMiddleware opens a server span per request, named by method and route.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("http.server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r, r.URL.Path)
		ctx, span := tracer.Start(r.Context(), r.Method+" "+route)
		tap := tapResponse(w)
		next.ServeHTTP(tap, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", tap.code),
		)
		if tap.code >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(tap.code))
		}
		span.End()
	})
}
