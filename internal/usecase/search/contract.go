package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/metasearch/internal/domain/engine"
	"github.com/kailas-cloud/metasearch/internal/domain/query"
	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

// Batch is one backend's answer to a query, in rank order.
type Batch struct {
	Entries  []result.Entry
	LoadTime time.Duration // time spent on the wire, excluding parsing
	// RedirectURL sends the client elsewhere instead of showing results.
	RedirectURL string
}

// Backend queries one search engine.
type Backend interface {
	Name() string
	Search(ctx context.Context, q query.Query) (Batch, error)
}

// Registry resolves engine descriptors.
type Registry interface {
	Lookup(name string) (engine.Engine, bool)
	Weight(name string) float64
}

// Telemetry receives aggregation and backend measurements.
type Telemetry interface {
	RecordResultError(engine, message string)
	RecordResultCount(engine string, count int)
	RecordScore(engine string, score float64)
	RecordEngineRequest(engine string, d time.Duration, errorType string)
	RecordCache(hit bool)
}

// Cache stores finished responses. engines is the resolved engine list.
type Cache interface {
	Get(ctx context.Context, q query.Query, engines []string) (*result.Response, bool)
	Put(ctx context.Context, q query.Query, engines []string, resp *result.Response)
	Invalidate(ctx context.Context, q query.Query, engines []string) error
}

// StatusCoder is implemented by backend errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}
