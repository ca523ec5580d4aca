package aggregate

import (
	"slices"

	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

const (
	// groupSlots is how many results may join a category group before it is closed.
	groupSlots = 8
	// groupWindow is how far back (in output positions) a group can still be joined.
	groupWindow = 20
)

type categoryPosition struct {
	index int // insertion point for the next member of the group
	count int // remaining slots
}

// categoryKey is the grouping key: category, template and image presence.
func categoryKey(r *result.Result) string {
	img := ""
	if r.HasImage() {
		img = "img_src"
	}
	return r.Category + ":" + r.Template + ":" + img
}

// groupResults interleaves score-sorted results so that results of one
// category are pulled together, at most groupSlots at a time and only
// within groupWindow positions. Results without a URL are dropped. The
// input slice is not modified.
func groupResults(sorted []*result.Result, keyOf func(*result.Result) string) []*result.Result {
	out := make([]*result.Result, 0, len(sorted))
	positions := make(map[string]*categoryPosition)

	for _, r := range sorted {
		if r.URL == "" {
			continue
		}
		key := keyOf(r)
		cur := positions[key]

		if cur != nil && cur.count > 0 && len(out)-cur.index < groupWindow {
			idx := cur.index
			out = slices.Insert(out, idx, r)
			for _, p := range positions {
				if p.index >= idx {
					p.index++
				}
			}
			cur.count--
			continue
		}

		out = append(out, r)
		positions[key] = &categoryPosition{index: len(out), count: groupSlots}
	}
	return out
}
