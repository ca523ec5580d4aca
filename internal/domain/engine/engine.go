// Package engine describes the search backends known to the service.
package engine

import "sort"

// DefaultWeight applies to engines that declare no weight.
const DefaultWeight = 1.0

// Engine is the static descriptor of a search backend.
type Engine struct {
	Name                 string
	Weight               float64 // 0 = not declared
	Categories           []string
	Paging               bool
	DisplayErrorMessages bool
}

// EffectiveWeight returns the declared weight or DefaultWeight.
func (e Engine) EffectiveWeight() float64 {
	if e.Weight == 0 {
		return DefaultWeight
	}
	return e.Weight
}

// PrimaryCategory returns the first category, or "" when there is none.
func (e Engine) PrimaryCategory() string {
	if len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0]
}

// Registry is a read-only lookup of engine descriptors by name.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry builds a registry. Later descriptors with a duplicate name win.
func NewRegistry(engines ...Engine) *Registry {
	m := make(map[string]Engine, len(engines))
	for _, e := range engines {
		m[e.Name] = e
	}
	return &Registry{engines: m}
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}

// Weight returns the effective weight of name; unknown engines weigh DefaultWeight.
func (r *Registry) Weight(name string) float64 {
	if e, ok := r.engines[name]; ok {
		return e.EffectiveWeight()
	}
	return DefaultWeight
}

// Names returns all registered names in lexical order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.engines))
	for n := range r.engines {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
