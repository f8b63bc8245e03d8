package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	shortenRequests  prometheus.Counter
	redirectRequests prometheus.Counter
}

// newMetrics builds the collectors on a private registry so multiple routers
// can coexist in one process (tests spin up several).
func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		}, []string{"method", "endpoint"}),
		shortenRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "url_shorten_requests_total",
			Help: "Total URL shortening requests",
		}),
		redirectRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "url_redirect_requests_total",
			Help: "Total URL redirect requests",
		}),
	}
}

// requestMetrics records a counter and duration sample per request. The
// endpoint label is the chi route pattern (e.g. "/{shortCode}"), so path
// variables do not blow up label cardinality.
func (m *metrics) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
