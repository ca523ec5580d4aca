// Package httpengine implements a search backend that queries a JSON
// search API over HTTP.
package httpengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metasearch/internal/domain/query"
	"github.com/kailas-cloud/metasearch/internal/usecase/search"
)

const maxBodyBytes = 8 << 20

// StatusError is returned for non-200 responses.
type StatusError struct {
	Engine string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine %s: unexpected status %d %s", e.Engine, e.Code, http.StatusText(e.Code))
}

// StatusCode returns the HTTP status of the response.
func (e *StatusError) StatusCode() int { return e.Code }

// Config holds the backend settings.
type Config struct {
	Name string
	// SearchURL may contain {query} and {page} placeholders.
	SearchURL string
	Headers   map[string]string
	// HTMLContent strips markup from titles and contents.
	HTMLContent bool
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Engine is a search.Backend over HTTP.
type Engine struct {
	name        string
	searchURL   string
	headers     map[string]string
	htmlContent bool
	client      *http.Client
	logger      *zap.Logger
}

// New creates a backend. SearchURL must contain the {query} placeholder.
func New(cfg *Config) (*Engine, error) {
	if cfg.Name == "" {
		return nil, errors.New("httpengine: name is required")
	}
	if !strings.Contains(cfg.SearchURL, "{query}") {
		return nil, fmt.Errorf("httpengine %s: search_url must contain {query}", cfg.Name)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		name:        cfg.Name,
		searchURL:   cfg.SearchURL,
		headers:     cfg.Headers,
		htmlContent: cfg.HTMLContent,
		client:      client,
		logger:      logger,
	}, nil
}

// Name implements search.Backend.
func (e *Engine) Name() string { return e.name }

// Search implements search.Backend.
func (e *Engine) Search(ctx context.Context, q query.Query) (search.Batch, error) {
	target := strings.NewReplacer(
		"{query}", url.QueryEscape(q.Text),
		"{page}", strconv.Itoa(q.Page),
	).Replace(e.searchURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return search.Batch{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return search.Batch{}, fmt.Errorf("engine %s: %w", e.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return search.Batch{}, &StatusError{Engine: e.name, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return search.Batch{}, fmt.Errorf("engine %s: read body: %w", e.name, err)
	}
	load := time.Since(start)

	entries, redirect, err := e.decode(body)
	if err != nil {
		return search.Batch{}, fmt.Errorf("engine %s: %w", e.name, err)
	}

	e.logger.Debug("engine answered",
		zap.String("engine", e.name),
		zap.Int("entries", len(entries)),
		zap.Duration("load", load),
	)
	return search.Batch{Entries: entries, LoadTime: load, RedirectURL: redirect}, nil
}
