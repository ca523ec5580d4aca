// Package chi exposes the search service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/metasearch/internal/domain"
	"github.com/kailas-cloud/metasearch/internal/domain/query"
	"github.com/kailas-cloud/metasearch/internal/domain/result"
	logpkg "github.com/kailas-cloud/metasearch/internal/logger"
	"github.com/kailas-cloud/metasearch/internal/metrics"
	healthuc "github.com/kailas-cloud/metasearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/metasearch/internal/usecase/search"
)

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest     ErrorCode = "bad_request"
	ErrorCodeInvalidQuery   ErrorCode = "invalid_query"
	ErrorCodeUnknownEngine  ErrorCode = "unknown_engine"
	ErrorCodeNoEngines      ErrorCode = "no_engines"
	ErrorCodeSuspended      ErrorCode = "engines_suspended"
	ErrorCodeUnauthorized   ErrorCode = "unauthorized"
	ErrorCodeInternalError  ErrorCode = "internal_error"
	ErrorCodeUnsupportedRes ErrorCode = "unsupported_result"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// EnginesResponse is the body of GET /engines.
type EnginesResponse struct {
	Items []searchuc.EngineStatus `json:"items"`
}

// Searcher runs aggregated searches.
type Searcher interface {
	Search(ctx context.Context, q query.Query) (*result.Response, error)
	Engines() []searchuc.EngineStatus
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the HTTP API.
type Server struct {
	search        Searcher
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		sentinelHandler(domain.ErrUnknownEngine, http.StatusBadRequest, ErrorCodeUnknownEngine),
		sentinelHandler(domain.ErrNoEngines, http.StatusServiceUnavailable, ErrorCodeNoEngines),
		sentinelHandler(domain.ErrEngineSuspended, http.StatusServiceUnavailable, ErrorCodeSuspended),
		sentinelHandler(domain.ErrUnsupportedResult, http.StatusBadGateway, ErrorCodeUnsupportedRes),
	}
	return s
}

// Routes mounts the API handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search", s.Search)
	r.Get("/engines", s.Engines)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles GET /search?q=...&page=...&engines=a,b&fresh=true.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	page := 1
	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	q := query.New(params.Get("q"), page, splitEngines(params.Get("engines"))...)
	if raw := params.Get("fresh"); raw != "" {
		fresh, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "fresh must be a boolean")
			return
		}
		q.Fresh = fresh
	}

	resp, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	cache := "miss"
	if resp.Cached {
		cache = "hit"
	}
	w.Header().Set(metrics.CacheHeader, cache)
	writeJSON(w, http.StatusOK, resp)
}

// Engines handles GET /engines.
func (s *Server) Engines(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, EnginesResponse{Items: s.search.Engines()})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func splitEngines(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the client-facing message for err without exposing internals.
// Query and engine errors carry the offending input, so their full text is kept.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrUnknownEngine) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNoEngines,
		domain.ErrEngineSuspended,
		domain.ErrUnsupportedResult,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
