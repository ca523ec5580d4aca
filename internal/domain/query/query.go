// Package query holds the user-facing search request.
package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/metasearch/internal/domain"
)

// MaxTextLength bounds the query text in runes.
const MaxTextLength = 512

// Query is one search request.
type Query struct {
	Text    string   `json:"q"`
	Page    int      `json:"page"`
	Engines []string `json:"engines,omitempty"` // empty = every configured engine
	// Fresh skips the snapshot cache and drops the stored snapshot.
	Fresh bool `json:"fresh,omitempty"`
}

// New builds a query with trimmed text. A page below 1 becomes 1.
func New(text string, page int, engines ...string) Query {
	if page < 1 {
		page = 1
	}
	return Query{Text: strings.TrimSpace(text), Page: page, Engines: engines}
}

// Validate checks the query. Errors wrap domain.ErrInvalidQuery.
func (q Query) Validate() error {
	switch {
	case strings.TrimSpace(q.Text) == "":
		return fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	case len([]rune(q.Text)) > MaxTextLength:
		return fmt.Errorf("%w: query text longer than %d characters", domain.ErrInvalidQuery, MaxTextLength)
	case q.Page < 1:
		return fmt.Errorf("%w: page must be >= 1, got %d", domain.ErrInvalidQuery, q.Page)
	}
	for _, e := range q.Engines {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("%w: empty engine name", domain.ErrInvalidQuery)
		}
	}
	return nil
}
