package circuit

import (
	"fmt"
	"slices"
)

// NewGraph registers the descriptors in the given order and validates that
// ids are unique and non-empty, that every deps/next reference exists, and
// that explicit next lists agree with the deps of the referenced circuits.
// Missing next lists are derived. Cycles are not rejected here; ResolveOrder
// reports them.
func NewGraph(descs ...Descriptor) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*Descriptor, len(descs))}

	for i := range descs {
		d := descs[i]
		if d.ID == "" {
			return nil, fmt.Errorf("circuit at position %d has an empty id", i)
		}
		if _, dup := g.nodes[d.ID]; dup {
			return nil, fmt.Errorf("duplicate circuit id '%s'", d.ID)
		}
		d.Deps = slices.Clone(d.Deps)
		d.Next = slices.Clone(d.Next)
		g.nodes[d.ID] = &d
		g.order = append(g.order, d.ID)
	}

	for _, id := range g.order {
		d := g.nodes[id]
		for _, dep := range d.Deps {
			if dep == id {
				return nil, &CycleError{Path: []string{id, id}}
			}
			if _, ok := g.nodes[dep]; !ok {
				return nil, &UnknownCircuitError{ID: dep, Referrer: id}
			}
		}
		for _, next := range d.Next {
			if _, ok := g.nodes[next]; !ok {
				return nil, &UnknownCircuitError{ID: next, Referrer: id}
			}
		}
	}

	// Derive or check successor lists against the dependency edges.
	for _, id := range g.order {
		d := g.nodes[id]
		var derived []string
		for _, other := range g.order {
			if slices.Contains(g.nodes[other].Deps, id) {
				derived = append(derived, other)
			}
		}
		if d.Next == nil {
			d.Next = derived
			continue
		}
		for _, next := range d.Next {
			if !slices.Contains(derived, next) {
				return nil, fmt.Errorf("circuit '%s' lists '%s' as next, but '%s' does not depend on it", id, next, next)
			}
		}
		for _, dependent := range derived {
			if !slices.Contains(d.Next, dependent) {
				return nil, fmt.Errorf("circuit '%s' depends on '%s', but is missing from its next list", dependent, id)
			}
		}
	}

	return g, nil
}

// IDs returns the circuit ids in registration order.
func (g *Graph) IDs() []string {
	return slices.Clone(g.order)
}

// Len returns the number of registered circuits.
func (g *Graph) Len() int {
	return len(g.order)
}

// Has reports whether id is registered.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Get returns a copy of the descriptor for id.
func (g *Graph) Get(id string) (Descriptor, error) {
	d, ok := g.nodes[id]
	if !ok {
		return Descriptor{}, &UnknownCircuitError{ID: id}
	}
	out := *d
	out.Deps = slices.Clone(d.Deps)
	out.Next = slices.Clone(d.Next)
	return out, nil
}

// MustGet is Get for ids the caller has already validated.
func (g *Graph) MustGet(id string) Descriptor {
	d, err := g.Get(id)
	if err != nil {
		panic(err)
	}
	return d
}

// DefaultSelection returns the ids marked as selected by default, in
// registration order.
func (g *Graph) DefaultSelection() []string {
	var ids []string
	for _, id := range g.order {
		if g.nodes[id].DefaultSelected {
			ids = append(ids, id)
		}
	}
	return ids
}

// Sort returns ids reordered to registration order. Unknown ids are reported.
func (g *Graph) Sort(ids []string) ([]string, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !g.Has(id) {
			return nil, &UnknownCircuitError{ID: id}
		}
		want[id] = struct{}{}
	}
	out := make([]string, 0, len(want))
	for _, id := range g.order {
		if _, ok := want[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}
