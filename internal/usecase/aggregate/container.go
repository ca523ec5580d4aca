// Package aggregate merges the result batches of concurrently running
// search engines into one deduplicated, scored and ordered result set.
package aggregate

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metasearch/internal/domain"
	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

// Container aggregates the results of one search request. Engines call
// Extend, AddTiming and AddUnresponsiveEngine concurrently; the
// orchestrator calls Close once all of them are done.
type Container struct {
	registry  Registry
	filter    Filter
	telemetry Telemetry
	logger    *zap.Logger

	mu           sync.Mutex
	closed       bool
	merged       []*result.Result
	infoboxes    []*result.Infobox
	suggestions  result.StringSet
	answers      result.AnswerSet
	corrections  result.StringSet
	counts       []int64
	engineData   map[string]map[string]string
	paging       bool
	unresponsive map[result.UnresponsiveEngine]struct{}
	timings      []result.Timing
	redirectURL  string
}

// New creates an open container. A nil filter accepts everything and a
// nil telemetry discards measurements.
func New(registry Registry, filter Filter, telemetry Telemetry, logger *zap.Logger) *Container {
	if filter == nil {
		filter = AcceptAll
	}
	if telemetry == nil {
		telemetry = NopTelemetry{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Container{
		registry:     registry,
		filter:       filter,
		telemetry:    telemetry,
		logger:       logger,
		engineData:   make(map[string]map[string]string),
		unresponsive: make(map[result.UnresponsiveEngine]struct{}),
	}
}

// staged is an accepted entry waiting to be applied under the lock.
type staged struct {
	entry    result.Entry
	position int
}

// Extend ingests one engine's batch in rank order. engineName may be empty
// for batches synthesized by the service itself. Calls after Close are
// ignored. An entry of a kind with no ingestion route aborts the batch
// with an error wrapping domain.ErrUnsupportedResult.
func (c *Container) Extend(engineName string, batch []result.Entry) error {
	if c.isClosed() {
		return nil
	}

	accepted := make([]staged, 0, len(batch))
	errMsgs := make(map[string]struct{})
	standardCount := 0

	for _, e := range batch {
		if legacy, ok := e.(result.Legacy); ok {
			typed, err := legacy.Classify(engineName)
			if err != nil {
				c.logger.Debug("invalid result",
					zap.String("engine", engineName),
					zap.Error(err),
					zap.Any("result", map[string]any(legacy)),
				)
				errMsgs[err.Error()] = struct{}{}
				continue
			}
			e = typed
		}

		e, err := c.withEngine(engineName, e)
		if err != nil {
			return err
		}

		if r, ok := e.(*result.Result); ok && r.URL != "" {
			if err := r.Normalize(); err != nil {
				c.logger.Debug("invalid result URL",
					zap.String("engine", engineName),
					zap.String("url", r.URL),
					zap.Error(err),
				)
				errMsgs["invalid URL"] = struct{}{}
				continue
			}
		}

		if !c.filter(e) {
			continue
		}

		s := staged{entry: e}
		if e.Kind() == result.KindStandard || e.Kind() == result.KindNoURL {
			standardCount++
			s.position = standardCount
		}
		accepted = append(accepted, s)
	}

	c.apply(engineName, accepted, standardCount)

	for msg := range errMsgs {
		c.telemetry.RecordResultError(engineName, "some results are invalids: "+msg)
	}
	if _, ok := c.registry.Lookup(engineName); ok {
		c.telemetry.RecordResultCount(engineName, standardCount)
	}
	return nil
}

// withEngine fills the engine name of typed entries that carry none.
func (c *Container) withEngine(engineName string, e result.Entry) (result.Entry, error) {
	switch v := e.(type) {
	case result.Answer:
		v.Engine = firstNonEmpty(v.Engine, engineName)
		return v, nil
	case result.Suggestion:
		v.Engine = firstNonEmpty(v.Engine, engineName)
		return v, nil
	case result.Correction:
		v.Engine = firstNonEmpty(v.Engine, engineName)
		return v, nil
	case result.EngineData:
		v.Engine = firstNonEmpty(v.Engine, engineName)
		return v, nil
	case result.ResultCount:
		v.Engine = firstNonEmpty(v.Engine, engineName)
		return v, nil
	case *result.Infobox:
		v.Engine = firstNonEmpty(v.Engine, engineName)
		return v, nil
	case *result.Result:
		v.Engine = firstNonEmpty(v.Engine, engineName)
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %s (%T) from engine %q", domain.ErrUnsupportedResult, e.Kind(), e, engineName)
	}
}

func (c *Container) apply(engineName string, accepted []staged, standardCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Warn("results arrived after close, dropped",
			zap.String("engine", engineName),
			zap.Int("count", len(accepted)),
		)
		return
	}

	for _, s := range accepted {
		switch v := s.entry.(type) {
		case result.Answer:
			c.answers.Add(v)
		case result.Suggestion:
			c.suggestions.Add(v.Text)
		case result.Correction:
			c.corrections.Add(v.Text)
		case *result.Infobox:
			c.insertInfoboxLocked(v)
		case result.ResultCount:
			c.counts = append(c.counts, v.Count)
		case result.EngineData:
			if c.engineData[v.Engine] == nil {
				c.engineData[v.Engine] = make(map[string]string)
			}
			c.engineData[v.Engine][v.Key] = v.Value
		case *result.Result:
			if v.URL != "" {
				c.mergeURLResultLocked(v, s.position)
			} else {
				v.Engines = result.NewEngineSet(v.Engine)
				v.Positions = []int{s.position}
				c.merged = append(c.merged, v)
			}
		}
	}

	if !c.paging && standardCount > 0 {
		if e, ok := c.registry.Lookup(engineName); ok && e.Paging {
			c.paging = true
		}
	}
}

func (c *Container) mergeURLResultLocked(r *result.Result, position int) {
	r.Engines = result.NewEngineSet(r.Engine)
	if dup := c.findDuplicateLocked(r); dup != nil {
		mergeDuplicate(dup, r, position)
		return
	}
	r.Positions = []int{position}
	c.merged = append(c.merged, r)
}

// findDuplicateLocked returns the merged result r duplicates: same page,
// same template and, for image results, the same image source.
func (c *Container) findDuplicateLocked(r *result.Result) *result.Result {
	for _, m := range c.merged {
		if m.ParsedURL == nil {
			continue
		}
		if !result.Equivalent(r.ParsedURL, m.ParsedURL) || r.Template != m.Template {
			continue
		}
		if r.Template != result.TemplateImages || r.ImgSrc == m.ImgSrc {
			return m
		}
	}
	return nil
}

// mergeDuplicate folds src into dst.
func mergeDuplicate(dst, src *result.Result, position int) {
	if result.ContentLen(src.Content) > result.ContentLen(dst.Content) {
		dst.Content = src.Content
	}
	if result.ContentLen(src.Title) > result.ContentLen(dst.Title) {
		dst.Title = src.Title
	}
	copyMissing(dst, src)

	dst.Positions = append(dst.Positions, position)
	dst.Engines.Add(src.Engine)

	if dst.ParsedURL.Scheme != "https" && src.ParsedURL.Scheme == "https" {
		dst.URL = src.URL
		dst.ParsedURL = src.ParsedURL
	}
}

// copyMissing copies every field set on src but empty on dst.
func copyMissing(dst, src *result.Result) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Content == "" {
		dst.Content = src.Content
	}
	if dst.ImgSrc == "" {
		dst.ImgSrc = src.ImgSrc
	}
	if dst.Thumbnail == "" {
		dst.Thumbnail = src.Thumbnail
	}
	if dst.Author == "" {
		dst.Author = src.Author
	}
	if dst.PublishedDate.IsZero() {
		dst.PublishedDate = src.PublishedDate
	}
	if dst.Priority == result.PriorityNone {
		dst.Priority = src.Priority
	}
	for k, v := range src.Extra {
		if result.Truthy(dst.Extra[k]) {
			continue
		}
		if dst.Extra == nil {
			dst.Extra = make(map[string]any, len(src.Extra))
		}
		dst.Extra[k] = v
	}
}

// insertInfoboxLocked merges ib into the first infobox with an equivalent
// ID, or appends it. Infoboxes without an ID are never merged.
func (c *Container) insertInfoboxLocked(ib *result.Infobox) {
	ib.Engines = result.NewEngineSet(ib.Engine)
	if ib.ID != "" {
		if id, err := url.Parse(ib.ID); err == nil {
			for _, existing := range c.infoboxes {
				if existing.ID == "" {
					continue
				}
				other, err := url.Parse(existing.ID)
				if err != nil || !result.Equivalent(other, id) {
					continue
				}
				mergeInfoboxes(existing, ib, c.registry.Weight(existing.Engine), c.registry.Weight(ib.Engine))
				return
			}
		}
	}
	c.infoboxes = append(c.infoboxes, ib)
}

// Close scores, sorts and groups the merged results. Only the first call
// has an effect.
func (c *Container) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Container) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true

	for _, r := range c.merged {
		r.Score = score(r, r.Priority, c.registry.Weight)
		r.Content = strings.TrimSpace(r.Content)
		r.Title = strings.Join(strings.Fields(r.Title), " ")
		for _, name := range r.Engines.Sorted() {
			c.telemetry.RecordScore(name, r.Score)
		}
	}

	sorted := slices.Clone(c.merged)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	for _, r := range sorted {
		if r.URL == "" {
			continue
		}
		if e, ok := c.registry.Lookup(r.Engine); ok {
			r.Category = e.PrimaryCategory()
		}
	}

	c.merged = groupResults(sorted, categoryKey)
}

// OrderedResults closes the container if needed and returns the final
// result sequence.
func (c *Container) OrderedResults() []*result.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return slices.Clone(c.merged)
}

// ResultsLength returns the number of merged results.
func (c *Container) ResultsLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.merged)
}

// NumberOfResults returns the average of the engines' self-reported totals.
// It is 0 before Close, when no engine reported a total, or when the
// average is below the number of results actually shown.
func (c *Container) NumberOfResults() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.logger.Error("call to Container.NumberOfResults before Container.Close")
		return 0
	}
	if len(c.counts) == 0 {
		return 0
	}
	var sum int64
	for _, n := range c.counts {
		sum += n
	}
	if sum == 0 {
		return 0
	}
	avg := sum / int64(len(c.counts))
	if avg < int64(len(c.merged)) {
		return 0
	}
	return avg
}

// AddUnresponsiveEngine records an engine that failed to answer. Engines
// that do not display error messages are not recorded.
func (c *Container) AddUnresponsiveEngine(engineName, errorType string, suspended bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Error("call to Container.AddUnresponsiveEngine after Container.Close",
			zap.String("engine", engineName))
		return
	}
	if e, ok := c.registry.Lookup(engineName); !ok || !e.DisplayErrorMessages {
		return
	}
	c.unresponsive[result.UnresponsiveEngine{
		Engine:    engineName,
		ErrorType: errorType,
		Suspended: suspended,
	}] = struct{}{}
}

// AddTiming records how long an engine took.
func (c *Container) AddTiming(engineName string, total, load time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Error("call to Container.AddTiming after Container.Close",
			zap.String("engine", engineName))
		return
	}
	c.timings = append(c.timings, result.Timing{Engine: engineName, Total: total, Load: load})
}

// Timings returns the recorded timings. It is empty before Close.
func (c *Container) Timings() []result.Timing {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.logger.Error("call to Container.Timings before Container.Close")
		return nil
	}
	return slices.Clone(c.timings)
}

// SetRedirectURL records a URL the client should be sent to instead of a result page.
func (c *Container) SetRedirectURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Error("call to Container.SetRedirectURL after Container.Close")
		return
	}
	c.redirectURL = u
}

// RedirectURL returns the redirect URL, if any.
func (c *Container) RedirectURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redirectURL
}

// Infoboxes returns the merged infoboxes.
func (c *Container) Infoboxes() []*result.Infobox {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.infoboxes)
}

// Suggestions returns the distinct suggestions in arrival order.
func (c *Container) Suggestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suggestions.Values()
}

// Corrections returns the distinct corrections in arrival order.
func (c *Container) Corrections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.corrections.Values()
}

// Answers returns the distinct answers in arrival order.
func (c *Container) Answers() []result.Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Values()
}

// UnresponsiveEngines returns the recorded failures ordered by engine name.
func (c *Container) UnresponsiveEngines() []result.UnresponsiveEngine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]result.UnresponsiveEngine, 0, len(c.unresponsive))
	for u := range c.unresponsive {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Engine != out[j].Engine {
			return out[i].Engine < out[j].Engine
		}
		return out[i].ErrorType < out[j].ErrorType
	})
	return out
}

// Paging reports whether any engine that contributed results supports paging.
func (c *Container) Paging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paging
}

// EngineData returns a copy of the per-engine key/value data.
func (c *Container) EngineData() map[string]map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]map[string]string, len(c.engineData))
	for name, kv := range c.engineData {
		cp := make(map[string]string, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		out[name] = cp
	}
	return out
}

func (c *Container) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
