package result

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Legacy is an untyped entry as decoded from a backend's JSON payload. Its
// kind is decided by which fields are present.
type Legacy map[string]any

// Kind implements Entry.
func (Legacy) Kind() Kind { return KindLegacy }

// InvalidFieldError reports a field of a link entry that is not text.
type InvalidFieldError struct {
	Field string
}

func (e *InvalidFieldError) Error() string { return "invalid " + e.Field }

// keys consumed by the link-result conversion; everything else lands in Extra.
var linkKeys = map[string]struct{}{
	"engine": {}, "url": {}, "title": {}, "content": {}, "template": {},
	"img_src": {}, "thumbnail": {}, "thumbnail_src": {}, "author": {},
	"publishedDate": {}, "published_date": {}, "priority": {},
}

// Classify converts the entry into its typed variant. The first present
// field wins in this order: suggestion, answer, correction, infobox,
// number_of_results, engine_data, url. Entries with none of them are
// no-url results. Link entries whose url, title or content is not text
// are rejected with an *InvalidFieldError.
func (l Legacy) Classify(engine string) (Entry, error) {
	if e := l.str("engine"); e != "" {
		engine = e
	}

	switch {
	case l.has("suggestion"):
		return Suggestion{Engine: engine, Text: l.str("suggestion")}, nil
	case l.has("answer"):
		return Answer{Engine: engine, Text: l.str("answer"), URL: l.str("url")}, nil
	case l.has("correction"):
		return Correction{Engine: engine, Text: l.str("correction")}, nil
	case l.has("infobox"):
		return l.infobox(engine), nil
	case l.has("number_of_results"):
		n, ok := toInt64(l["number_of_results"])
		if !ok {
			return nil, &InvalidFieldError{Field: "number_of_results"}
		}
		return ResultCount{Engine: engine, Count: n}, nil
	case l.has("engine_data"):
		return EngineData{Engine: engine, Key: l.str("key"), Value: l.str("engine_data")}, nil
	}
	return l.link(engine)
}

func (l Legacy) link(engine string) (Entry, error) {
	if Truthy(l["url"]) {
		if err := l.validateLink(); err != nil {
			return nil, err
		}
	}

	// a falsy url of any type means no url
	u, _ := l["url"].(string)
	r := &Result{
		Engine:    engine,
		URL:       u,
		Title:     l.str("title"),
		Content:   l.str("content"),
		Template:  l.str("template"),
		ImgSrc:    l.str("img_src"),
		Thumbnail: l.str("thumbnail"),
		Author:    l.str("author"),
		Priority:  Priority(l.str("priority")),
	}
	if r.Thumbnail == "" {
		r.Thumbnail = l.str("thumbnail_src")
	}
	r.PublishedDate, r.Extra = l.publishedDate()
	for k, v := range l {
		if _, known := linkKeys[k]; known {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[k] = v
	}
	return r, nil
}

// dateLayouts are tried in order on publishedDate values.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// publishedDate parses the first date key present. A value no layout
// accepts is returned in extra under its own key.
func (l Legacy) publishedDate() (time.Time, map[string]any) {
	for _, k := range []string{"publishedDate", "published_date"} {
		v, ok := l[k]
		if !ok || !Truthy(v) {
			continue
		}
		if s, isStr := v.(string); isStr {
			s = strings.TrimSpace(s)
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
		}
		return time.Time{}, map[string]any{k: v}
	}
	return time.Time{}, nil
}

func (l Legacy) validateLink() error {
	if _, ok := l["url"].(string); !ok {
		return &InvalidFieldError{Field: "URL"}
	}
	for _, field := range []string{"title", "content"} {
		if v, ok := l[field]; ok {
			if _, isStr := v.(string); !isStr {
				return &InvalidFieldError{Field: field}
			}
		}
	}
	return nil
}

func (l Legacy) infobox(engine string) *Infobox {
	ib := &Infobox{
		Engine:  engine,
		Name:    l.str("infobox"),
		ID:      l.str("id"),
		Content: l.str("content"),
		ImgSrc:  l.str("img_src"),
	}
	for _, item := range maps(l["urls"]) {
		ib.URLs = append(ib.URLs, InfoboxURL{
			Title:  item.str("title"),
			URL:    item.str("url"),
			Entity: item.str("entity"),
		})
	}
	for _, item := range maps(l["attributes"]) {
		ib.Attributes = append(ib.Attributes, InfoboxAttribute{
			Label:  item.str("label"),
			Value:  item.str("value"),
			Entity: item.str("entity"),
		})
	}
	return ib
}

func (l Legacy) has(key string) bool {
	_, ok := l[key]
	return ok
}

// str returns the field as text. Non-string scalars are formatted.
func (l Legacy) str(key string) string {
	switch v := l[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func maps(v any) []Legacy {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Legacy, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, Legacy(m))
		}
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	default:
		return 0, false
	}
}
