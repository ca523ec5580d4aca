package result

import (
	"encoding/json"
	"sort"
)

// EngineSet is the set of engines that contributed to a merged entry.
type EngineSet map[string]struct{}

// NewEngineSet creates a set holding the given names.
func NewEngineSet(names ...string) EngineSet {
	s := make(EngineSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts a name.
func (s EngineSet) Add(name string) { s[name] = struct{}{} }

// Has reports membership.
func (s EngineSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Union adds every name of other to s.
func (s EngineSet) Union(other EngineSet) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// Sorted returns the names in lexical order.
func (s EngineSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s EngineSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of names.
func (s *EngineSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err //nolint:wrapcheck // decoding delegate
	}
	*s = NewEngineSet(names...)
	return nil
}

// StringSet is a set of strings that remembers insertion order.
type StringSet struct {
	seen  map[string]struct{}
	items []string
}

// Add inserts v unless already present.
func (s *StringSet) Add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

// Len returns the number of elements.
func (s *StringSet) Len() int { return len(s.items) }

// Values returns a copy of the elements in insertion order.
func (s *StringSet) Values() []string {
	return append([]string(nil), s.items...)
}

// AnswerSet holds answers deduplicated on text and URL.
type AnswerSet struct {
	seen  map[answerKey]struct{}
	items []Answer
}

type answerKey struct {
	text string
	url  string
}

// Add inserts a unless an equal answer is already present.
func (s *AnswerSet) Add(a Answer) {
	if s.seen == nil {
		s.seen = make(map[answerKey]struct{})
	}
	k := answerKey{text: a.Text, url: a.URL}
	if _, ok := s.seen[k]; ok {
		return
	}
	s.seen[k] = struct{}{}
	s.items = append(s.items, a)
}

// Len returns the number of answers.
func (s *AnswerSet) Len() int { return len(s.items) }

// Values returns a copy of the answers in insertion order.
func (s *AnswerSet) Values() []Answer {
	return append([]Answer(nil), s.items...)
}
