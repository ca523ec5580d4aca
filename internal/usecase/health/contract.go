package health

import "context"

// CachePinger checks snapshot cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EngineChecker checks whether any search engine can be queried.
type EngineChecker interface {
	HealthCheck(ctx context.Context) error
}
