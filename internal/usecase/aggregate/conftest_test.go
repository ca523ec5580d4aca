package aggregate

import (
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metasearch/internal/domain/engine"
	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

// recordingTelemetry captures every measurement for assertions.
type recordingTelemetry struct {
	mu     sync.Mutex
	errors map[string][]string
	counts map[string][]int
	scores map[string][]float64
}

func newRecordingTelemetry() *recordingTelemetry {
	return &recordingTelemetry{
		errors: make(map[string][]string),
		counts: make(map[string][]int),
		scores: make(map[string][]float64),
	}
}

func (m *recordingTelemetry) RecordResultError(engine, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[engine] = append(m.errors[engine], message)
}

func (m *recordingTelemetry) RecordResultCount(engine string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[engine] = append(m.counts[engine], count)
}

func (m *recordingTelemetry) RecordScore(engine string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[engine] = append(m.scores[engine], score)
}

func testRegistry() *engine.Registry {
	return engine.NewRegistry(
		engine.Engine{Name: "ddg", Categories: []string{"general"}, Paging: true, DisplayErrorMessages: true},
		engine.Engine{Name: "bing", Categories: []string{"general"}, DisplayErrorMessages: true},
		engine.Engine{Name: "brave", Categories: []string{"general"}},
		engine.Engine{Name: "flickr", Categories: []string{"images"}},
		engine.Engine{Name: "wikipedia", Weight: 2, Categories: []string{"general"}},
		engine.Engine{Name: "wikidata", Categories: []string{"general"}},
	)
}

func newTestContainer(t *testing.T) (*Container, *recordingTelemetry) {
	t.Helper()
	tel := newRecordingTelemetry()
	return New(testRegistry(), AcceptAll, tel, zap.NewNop()), tel
}

func link(u, title string) *result.Result {
	return &result.Result{URL: u, Title: title}
}

func mustExtend(t *testing.T, c *Container, engineName string, batch ...result.Entry) {
	t.Helper()
	if err := c.Extend(engineName, batch); err != nil {
		t.Fatalf("Extend(%s): %v", engineName, err)
	}
}
