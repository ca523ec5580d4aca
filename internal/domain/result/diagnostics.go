package result

import "time"

// Timing records how long an engine took for one request.
type Timing struct {
	Engine string        `json:"engine"`
	Total  time.Duration `json:"total"`
	Load   time.Duration `json:"load"`
}

// UnresponsiveEngine records an engine that failed to answer a request.
type UnresponsiveEngine struct {
	Engine    string `json:"engine"`
	ErrorType string `json:"error_type"`
	Suspended bool   `json:"suspended"`
}
