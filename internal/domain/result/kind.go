// Package result defines the entries a search backend contributes to a request
// and the merged result shapes the aggregator produces from them.
package result

// Kind discriminates the entry variants a backend can emit.
type Kind int

// Entry kinds.
const (
	KindLegacy Kind = iota
	KindAnswer
	KindSuggestion
	KindCorrection
	KindInfobox
	KindStandard
	KindNoURL
	KindEngineData
	KindResultCount
)

var kindNames = map[Kind]string{
	KindLegacy:      "legacy",
	KindAnswer:      "answer",
	KindSuggestion:  "suggestion",
	KindCorrection:  "correction",
	KindInfobox:     "infobox",
	KindStandard:    "standard",
	KindNoURL:       "no_url",
	KindEngineData:  "engine_data",
	KindResultCount: "number_of_results",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Entry is a single item of a backend batch.
type Entry interface {
	Kind() Kind
}

// Answer is a direct answer to the query.
type Answer struct {
	Engine string `json:"engine"`
	Text   string `json:"answer"`
	URL    string `json:"url,omitempty"`
}

// Kind implements Entry.
func (Answer) Kind() Kind { return KindAnswer }

// Suggestion is an alternative query proposed by a backend.
type Suggestion struct {
	Engine string
	Text   string
}

// Kind implements Entry.
func (Suggestion) Kind() Kind { return KindSuggestion }

// Correction is a spelling correction of the query.
type Correction struct {
	Engine string
	Text   string
}

// Kind implements Entry.
func (Correction) Kind() Kind { return KindCorrection }

// EngineData is an opaque key/value a backend keeps between requests (e.g. a next-page token).
type EngineData struct {
	Engine string
	Key    string
	Value  string
}

// Kind implements Entry.
func (EngineData) Kind() Kind { return KindEngineData }

// ResultCount is a backend's self-reported total number of hits.
type ResultCount struct {
	Engine string
	Count  int64
}

// Kind implements Entry.
func (ResultCount) Kind() Kind { return KindResultCount }
