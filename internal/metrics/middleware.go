package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// CacheHeader is set by handlers that may answer from the snapshot cache.
const CacheHeader = "X-Cache"

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metasearch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
		[]string{"method", "route", "status", "cache"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metasearch",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status", "cache"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal)
}

// Middleware records HTTP request duration and count, labelled by chi route
// pattern and by the X-Cache header the handler set ("none" when absent).
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			labels := []string{
				r.Method,
				routeLabel(r),
				strconv.Itoa(sw.status),
				cacheLabel(w.Header().Get(CacheHeader)),
			}
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(labels...).Inc()
		})
	}
}

// routeLabel keeps label cardinality bounded: unmatched paths collapse to "unknown".
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unknown"
	}
	return rctx.RoutePattern()
}

func cacheLabel(v string) string {
	switch v {
	case "hit", "miss":
		return v
	default:
		return "none"
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}
