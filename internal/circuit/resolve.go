package circuit

import (
	"slices"
)

// visitState tracks a node's progress through the depth-first traversal.
type visitState uint8

const (
	unvisited visitState = iota
	// visiting nodes are on the current recursion stack.
	visiting
	// done nodes have been appended to the order.
	done
)

// ResolveOrder returns every circuit id such that each id appears strictly
// after all of its transitive dependencies. The traversal is a depth-first
// post-order over ids in registration order, recursing into deps in their
// declared order, so the result is deterministic. A dependency cycle yields a
// *CycleError instead of an order.
func ResolveOrder(g *Graph) ([]string, error) {
	return resolve(g, g.order, nil)
}

// ResolveSubset is ResolveOrder restricted to ids. Dependencies outside the
// subset are ignored, so the result contains exactly the given ids.
func ResolveSubset(g *Graph, ids []string) ([]string, error) {
	sorted, err := g.Sort(ids)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(sorted))
	for _, id := range sorted {
		allowed[id] = true
	}
	return resolve(g, sorted, allowed)
}

func resolve(g *Graph, roots []string, allowed map[string]bool) ([]string, error) {
	state := make(map[string]visitState, len(g.order))
	order := make([]string, 0, len(roots))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			start := slices.Index(stack, id)
			path := append(slices.Clone(stack[start:]), id)
			return &CycleError{Path: path}
		}

		state[id] = visiting
		stack = append(stack, id)
		for _, dep := range g.nodes[id].Deps {
			if allowed != nil && !allowed[dep] {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		order = append(order, id)
		return nil
	}

	for _, id := range roots {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Levels groups the resolved order of ids into dependency depths. Every
// circuit in level n depends only on circuits in levels below n (counting
// only dependencies inside ids). Within a level, ids keep resolved order.
func Levels(g *Graph, ids []string) ([][]string, error) {
	order, err := ResolveSubset(g, ids)
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(order))
	var levels [][]string
	for _, id := range order {
		d := 0
		for _, dep := range g.nodes[id].Deps {
			if dd, ok := depth[dep]; ok && dd+1 > d {
				d = dd + 1
			}
		}
		depth[id] = d
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}
	return levels, nil
}

// WithDependencies returns ids plus all of their transitive dependencies,
// in resolved order.
func WithDependencies(g *Graph, ids []string) ([]string, error) {
	closure := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if closure[id] {
			return
		}
		closure[id] = true
		for _, dep := range g.nodes[id].Deps {
			walk(dep)
		}
	}
	for _, id := range ids {
		if !g.Has(id) {
			return nil, &UnknownCircuitError{ID: id}
		}
		walk(id)
	}

	all := make([]string, 0, len(closure))
	for id := range closure {
		all = append(all, id)
	}
	return ResolveSubset(g, all)
}
