package aggregate

import (
	"github.com/kailas-cloud/metasearch/internal/domain/engine"
	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

// Registry looks up engine descriptors by name.
type Registry interface {
	Lookup(name string) (engine.Engine, bool)
	Weight(name string) float64
}

// Telemetry receives per-engine measurements produced while aggregating.
type Telemetry interface {
	RecordResultError(engine, message string)
	RecordResultCount(engine string, count int)
	RecordScore(engine string, score float64)
}

// Filter decides whether an entry is accepted. It is called once per
// candidate entry; false drops the entry.
type Filter func(result.Entry) bool

// AcceptAll is the filter that accepts every entry.
func AcceptAll(result.Entry) bool { return true }

// NopTelemetry discards all measurements.
type NopTelemetry struct{}

// RecordResultError implements Telemetry.
func (NopTelemetry) RecordResultError(string, string) {}

// RecordResultCount implements Telemetry.
func (NopTelemetry) RecordResultCount(string, int) {}

// RecordScore implements Telemetry.
func (NopTelemetry) RecordScore(string, float64) {}
