package domain

import "errors"

var (
	// ErrUnsupportedResult signals an entry kind the aggregator has no route for.
	ErrUnsupportedResult = errors.New("unsupported result kind")
	// ErrInvalidQuery signals a malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownEngine signals a request for an engine that is not configured.
	ErrUnknownEngine = errors.New("unknown engine")
	// ErrNoEngines signals that no engine is available for the request.
	ErrNoEngines = errors.New("no engines available")
	// ErrEngineSuspended signals an engine whose circuit breaker is open.
	ErrEngineSuspended = errors.New("engine suspended")
)
