// Package filter provides result filters for the aggregator.
package filter

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

// Hostnames rejects standard results whose host matches a blocked pattern.
type Hostnames struct {
	blocked []*regexp.Regexp
}

// NewHostnames compiles the block-list. Patterns are regular expressions
// matched against the result host without port.
func NewHostnames(patterns []string) (*Hostnames, error) {
	h := &Hostnames{blocked: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile hostname pattern %q: %w", p, err)
		}
		h.blocked = append(h.blocked, re)
	}
	return h, nil
}

// Accept reports whether e may enter the aggregation. Entries other than
// standard results are always accepted.
func (h *Hostnames) Accept(e result.Entry) bool {
	r, ok := e.(*result.Result)
	if !ok || r.ParsedURL == nil {
		return true
	}
	host := r.ParsedURL.Hostname()
	for _, re := range h.blocked {
		if re.MatchString(host) {
			return false
		}
	}
	return true
}
