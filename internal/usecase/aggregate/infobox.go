package aggregate

import (
	"net/url"

	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

// mergeInfoboxes folds src into dst in place. w1 and w2 are the weights of
// the engines behind dst and src; the heavier side wins the engine label
// and the image.
func mergeInfoboxes(dst, src *result.Infobox, w1, w2 float64) {
	if w2 > w1 {
		dst.Engine = src.Engine
	}

	if dst.Engines == nil {
		dst.Engines = result.NewEngineSet()
	}
	dst.Engines.Union(src.Engines)

	for _, u := range src.URLs {
		if !hasInfoboxURL(dst.URLs, u) {
			dst.URLs = append(dst.URLs, u)
		}
	}

	if src.ImgSrc != "" && (dst.ImgSrc == "" || w2 > w1) {
		dst.ImgSrc = src.ImgSrc
	}

	// Empty labels and entities count too: an existing attribute without an
	// entity blocks every incoming attribute without one.
	known := make(map[string]struct{}, 2*len(dst.Attributes))
	for _, a := range dst.Attributes {
		known[a.Label] = struct{}{}
		known[a.Entity] = struct{}{}
	}
	for _, a := range src.Attributes {
		_, labelSeen := known[a.Label]
		_, entitySeen := known[a.Entity]
		if !labelSeen && !entitySeen {
			dst.Attributes = append(dst.Attributes, a)
		}
	}

	if src.Content != "" && (dst.Content == "" || result.ContentLen(src.Content) > result.ContentLen(dst.Content)) {
		dst.Content = src.Content
	}
}

// hasInfoboxURL reports whether urls already holds u, either by entity or
// by an equivalent link.
func hasInfoboxURL(urls []result.InfoboxURL, u result.InfoboxURL) bool {
	parsed, err := url.Parse(u.URL)
	for _, existing := range urls {
		if u.Entity != "" && existing.Entity == u.Entity {
			return true
		}
		if err != nil {
			continue
		}
		if other, perr := url.Parse(existing.URL); perr == nil && result.Equivalent(other, parsed) {
			return true
		}
	}
	return false
}
