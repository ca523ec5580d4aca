package httpengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

// payload is the JSON search answer. Every list is optional.
type payload struct {
	Results         []map[string]any `json:"results"`
	Answers         []any            `json:"answers"`
	Suggestions     []string         `json:"suggestions"`
	Corrections     []string         `json:"corrections"`
	Infoboxes       []map[string]any `json:"infoboxes"`
	NumberOfResults json.Number      `json:"number_of_results"`
	RedirectURL     string           `json:"redirect_url"`
}

// decode turns the payload into untyped entries and the optional redirect;
// the aggregator classifies the entries.
func (e *Engine) decode(body []byte) ([]result.Entry, string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}

	entries := make([]result.Entry, 0, len(p.Results)+len(p.Answers)+len(p.Suggestions)+len(p.Corrections)+len(p.Infoboxes)+1)
	for _, r := range p.Results {
		if e.htmlContent {
			stripField(r, "title")
			stripField(r, "content")
		}
		entries = append(entries, result.Legacy(r))
	}
	for _, a := range p.Answers {
		switch v := a.(type) {
		case string:
			entries = append(entries, result.Legacy{"answer": v})
		case map[string]any:
			entries = append(entries, result.Legacy(v))
		}
	}
	for _, s := range p.Suggestions {
		entries = append(entries, result.Legacy{"suggestion": s})
	}
	for _, c := range p.Corrections {
		entries = append(entries, result.Legacy{"correction": c})
	}
	for _, ib := range p.Infoboxes {
		if e.htmlContent {
			stripField(ib, "content")
		}
		entries = append(entries, result.Legacy(ib))
	}
	if p.NumberOfResults != "" {
		entries = append(entries, result.Legacy{"number_of_results": p.NumberOfResults})
	}
	return entries, p.RedirectURL, nil
}

func stripField(m map[string]any, key string) {
	if s, ok := m[key].(string); ok {
		m[key] = StripHTML(s)
	}
}

// StripHTML returns the text of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
