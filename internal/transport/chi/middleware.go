package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/metasearch/internal/logger"
	"github.com/kailas-cloud/metasearch/internal/metrics"
)

// NewRouter builds the HTTP handler with the full middleware chain.
func NewRouter(s *Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeBadRequest, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
	s.Routes(r)
	return r
}

// JSONRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func JSONRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func WideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// RequestID runs first and stores the id in the context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.Query().Get("q")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
