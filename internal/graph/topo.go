package graph

import "slices"

// Sort returns node indices so that every node comes after its dependencies.
// Among nodes that are ready at the same time the earlier definition goes
// first, so an already ordered input is returned unchanged.
func (g *Graph) Sort() ([]int, error) {
	indeg := make([]int, len(g.Nodes))
	for i := range g.Nodes {
		indeg[i] = len(g.deps[i])
	}

	ready := make([]int, 0, len(g.Nodes))
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.Nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		changed := false
		for _, to := range g.dependent[id] {
			indeg[to]--
			if indeg[to] == 0 {
				ready = append(ready, to)
				changed = true
			}
		}
		if changed {
			slices.Sort(ready)
		}
	}

	if len(order) != len(g.Nodes) {
		cycle := &CycleError{}
		for i, d := range indeg {
			if d > 0 {
				cycle.Nodes = append(cycle.Nodes, i)
				cycle.Names = append(cycle.Names, g.Nodes[i].Name)
			}
		}
		return nil, cycle
	}
	return order, nil
}
