package result

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// Template tags identify the rendering shape of a result.
const (
	TemplateDefault = "default"
	TemplateImages  = "images"
)

// Priority overrides rank-decay scoring for a result.
type Priority string

// Priority values.
const (
	PriorityNone Priority = ""
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

// Result is a link result. With a URL it is a standard result, without one a
// no-url result. The aggregator mutates it in place while merging.
type Result struct {
	Engine        string         `json:"engine"`
	URL           string         `json:"url,omitempty"`
	ParsedURL     *url.URL       `json:"-"`
	Title         string         `json:"title"`
	Content       string         `json:"content,omitempty"`
	Template      string         `json:"template,omitempty"`
	ImgSrc        string         `json:"img_src,omitempty"`
	Thumbnail     string         `json:"thumbnail,omitempty"`
	Author        string         `json:"author,omitempty"`
	PublishedDate time.Time      `json:"published_date,omitzero"`
	Priority      Priority       `json:"priority,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`

	Engines   EngineSet `json:"engines"`
	Positions []int     `json:"positions"`
	Score     float64   `json:"score"`
	Category  string    `json:"category,omitempty"`
}

// Kind implements Entry.
func (r *Result) Kind() Kind {
	if r.URL != "" {
		return KindStandard
	}
	return KindNoURL
}

// HasImage reports whether the result carries an image or thumbnail reference.
func (r *Result) HasImage() bool {
	return r.ImgSrc != "" || r.Thumbnail != ""
}

// Normalize parses URL into ParsedURL, defaulting a missing scheme to http
// (a scheme-less URL starts with its host), and rewrites URL from the parsed
// form. An empty template becomes
// TemplateDefault.
func (r *Result) Normalize() error {
	if r.Template == "" {
		r.Template = TemplateDefault
	}
	if r.URL == "" {
		return nil
	}
	if r.ParsedURL == nil {
		u, err := url.Parse(strings.TrimSpace(r.URL))
		if err != nil {
			return fmt.Errorf("parse url: %w", err)
		}
		r.ParsedURL = u
	}
	if r.ParsedURL.Scheme == "" {
		// "example.com/page" parses as a bare path; reparse it as a host
		raw := r.ParsedURL.String()
		if r.ParsedURL.Host == "" && !strings.HasPrefix(raw, "/") {
			raw = "//" + raw
		}
		u, err := url.Parse("http:" + raw)
		if err != nil {
			return fmt.Errorf("parse url: %w", err)
		}
		r.ParsedURL = u
	}
	r.URL = r.ParsedURL.String()
	return nil
}

// Truthy reports whether v carries a value: nil, zero numbers, empty
// strings, false and empty containers are all falsy.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return !rv.IsZero()
	}
}
