// Package search fans a query out to the configured engines and aggregates
// their answers into one response.
package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/metasearch/internal/domain"
	"github.com/kailas-cloud/metasearch/internal/domain/query"
	"github.com/kailas-cloud/metasearch/internal/domain/result"
	logpkg "github.com/kailas-cloud/metasearch/internal/logger"
	"github.com/kailas-cloud/metasearch/internal/usecase/aggregate"
)

// Error types reported for unresponsive engines.
const (
	ErrorTypeTimeout         = "timeout"
	ErrorTypeSuspended       = "suspended"
	ErrorTypeHTTP            = "HTTP error"
	ErrorTypeTooManyRequests = "too many requests"
	ErrorTypeAccessDenied    = "access denied"
	ErrorTypeNetwork         = "network error"
	ErrorTypeCrash           = "unexpected crash"
)

// Defaults applied to a zero Config.
const (
	DefaultEngineTimeout = 3 * time.Second
	DefaultMaxParallel   = 8
)

// Config tunes the fan-out.
type Config struct {
	EngineTimeout time.Duration
	MaxParallel   int
	Breaker       BreakerConfig
}

type guardedBackend struct {
	backend Backend
	breaker *gobreaker.CircuitBreaker[Batch]
}

// Service runs searches across engines.
type Service struct {
	registry  Registry
	backends  map[string]guardedBackend
	filter    aggregate.Filter
	telemetry Telemetry
	cache     Cache
	logger    *zap.Logger

	engineTimeout time.Duration
	maxParallel   int
	newID         func() string
}

// New creates a search service. filter and cache may be nil.
func New(
	cfg Config, registry Registry, backends []Backend,
	filter aggregate.Filter, telemetry Telemetry, cache Cache, logger *zap.Logger,
) *Service {
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = DefaultEngineTimeout
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	if telemetry == nil {
		telemetry = nopTelemetry{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	guarded := make(map[string]guardedBackend, len(backends))
	for _, b := range backends {
		guarded[b.Name()] = guardedBackend{
			backend: b,
			breaker: newBreaker(b.Name(), cfg.Breaker, logger),
		}
	}

	return &Service{
		registry:      registry,
		backends:      guarded,
		filter:        filter,
		telemetry:     telemetry,
		cache:         cache,
		logger:        logger,
		engineTimeout: cfg.EngineTimeout,
		maxParallel:   cfg.MaxParallel,
		newID:         uuid.NewString,
	}
}

// Search queries every selected engine and returns the aggregated response.
func (s *Service) Search(ctx context.Context, q query.Query) (*result.Response, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	engines, err := s.resolve(q)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	log := logpkg.FromContextOr(ctx, s.logger).With(
		zap.String("search_id", id),
		zap.String("query", q.Text),
		zap.Int("page", q.Page),
	)

	if s.cache != nil && q.Fresh {
		if err := s.cache.Invalidate(ctx, q, engines); err != nil {
			log.Warn("failed to drop cached snapshot", zap.Error(err))
		}
	} else if s.cache != nil {
		if resp, ok := s.cache.Get(ctx, q, engines); ok {
			s.telemetry.RecordCache(true)
			resp.Cached = true
			return resp, nil
		}
		s.telemetry.RecordCache(false)
	}

	c := aggregate.New(s.registry, s.filter, s.telemetry, log)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for _, name := range engines {
		g.Go(func() error {
			return s.runEngine(gCtx, c, s.backends[name], q, log)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.Close()
	resp := buildResponse(id, q, c)

	log.Info("search finished",
		zap.Int("engines", len(engines)),
		zap.Int("results", len(resp.Results)),
		zap.Int("unresponsive", len(resp.UnresponsiveEngines)),
	)

	if s.cache != nil && len(resp.UnresponsiveEngines) == 0 {
		s.cache.Put(ctx, q, engines, resp)
	}
	return resp, nil
}

// resolve returns the sorted engine names to query. Engines without paging
// support are skipped past the first page.
func (s *Service) resolve(q query.Query) ([]string, error) {
	var candidates []string
	if len(q.Engines) == 0 {
		for name := range s.backends {
			candidates = append(candidates, name)
		}
	} else {
		for _, name := range q.Engines {
			if _, ok := s.backends[name]; !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEngine, name)
			}
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)
	candidates = slices.Compact(candidates)

	out := candidates[:0]
	for _, name := range candidates {
		if q.Page > 1 {
			if e, ok := s.registry.Lookup(name); !ok || !e.Paging {
				continue
			}
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, domain.ErrNoEngines
	}
	return out, nil
}

// runEngine queries one engine and feeds the container. Engine failures are
// recorded on the container; only aggregation errors are returned.
func (s *Service) runEngine(
	ctx context.Context, c *aggregate.Container, gb guardedBackend, q query.Query, log *zap.Logger,
) (err error) {
	name := gb.backend.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("engine panicked", zap.String("engine", name), zap.Any("panic", r))
			s.telemetry.RecordEngineRequest(name, time.Since(start), ErrorTypeCrash)
			c.AddUnresponsiveEngine(name, ErrorTypeCrash, gb.breaker.State() == gobreaker.StateOpen)
			err = nil
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.engineTimeout)
	defer cancel()

	batch, callErr := gb.breaker.Execute(func() (Batch, error) {
		return gb.backend.Search(ctx, q)
	})
	total := time.Since(start)

	if callErr != nil {
		if errors.Is(callErr, context.Canceled) {
			return nil
		}
		errorType := classify(callErr)
		suspended := isBreakerRejection(callErr) || gb.breaker.State() == gobreaker.StateOpen
		if isBreakerRejection(callErr) {
			callErr = fmt.Errorf("%w: %s: %w", domain.ErrEngineSuspended, name, callErr)
		}
		log.Warn("engine failed",
			zap.String("engine", name),
			zap.String("error_type", errorType),
			zap.Bool("suspended", suspended),
			zap.Duration("elapsed", total),
			zap.Error(callErr),
		)
		s.telemetry.RecordEngineRequest(name, total, errorType)
		c.AddUnresponsiveEngine(name, errorType, suspended)
		return nil
	}

	s.telemetry.RecordEngineRequest(name, total, "")
	if err := c.Extend(name, batch.Entries); err != nil {
		return fmt.Errorf("aggregate %s: %w", name, err)
	}
	if batch.RedirectURL != "" {
		c.SetRedirectURL(batch.RedirectURL)
	}
	c.AddTiming(name, total, batch.LoadTime)
	return nil
}

// classify maps a backend failure to the error type shown to clients.
func classify(err error) string {
	if isBreakerRejection(err) {
		return ErrorTypeSuspended
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusTooManyRequests:
			return ErrorTypeTooManyRequests
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrorTypeAccessDenied
		default:
			return ErrorTypeHTTP
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeNetwork
	}
	return ErrorTypeCrash
}

func buildResponse(id string, q query.Query, c *aggregate.Container) *result.Response {
	return &result.Response{
		ID:                  id,
		Query:               q.Text,
		Page:                q.Page,
		NumberOfResults:     c.NumberOfResults(),
		Results:             c.OrderedResults(),
		Answers:             c.Answers(),
		Corrections:         c.Corrections(),
		Suggestions:         c.Suggestions(),
		Infoboxes:           c.Infoboxes(),
		UnresponsiveEngines: c.UnresponsiveEngines(),
		Timings:             c.Timings(),
		EngineData:          c.EngineData(),
		Paging:              c.Paging(),
		RedirectURL:         c.RedirectURL(),
	}
}

type nopTelemetry struct{ aggregate.NopTelemetry }

func (nopTelemetry) RecordEngineRequest(string, time.Duration, string) {}
func (nopTelemetry) RecordCache(bool)                                  {}

// EngineStatus reports whether an engine is currently suspended.
type EngineStatus struct {
	Name      string `json:"name"`
	Suspended bool   `json:"suspended"`
}

// Engines returns the status of every configured engine, ordered by name.
func (s *Service) Engines() []EngineStatus {
	out := make([]EngineStatus, 0, len(s.backends))
	for name, gb := range s.backends {
		out = append(out, EngineStatus{Name: name, Suspended: gb.breaker.State() == gobreaker.StateOpen})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HealthCheck fails when no engine can currently be queried.
func (s *Service) HealthCheck(_ context.Context) error {
	if len(s.backends) == 0 {
		return domain.ErrNoEngines
	}
	for _, st := range s.Engines() {
		if !st.Suspended {
			return nil
		}
	}
	return fmt.Errorf("%w: all %d engines", domain.ErrEngineSuspended, len(s.backends))
}
