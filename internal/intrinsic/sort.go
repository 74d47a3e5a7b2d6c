package intrinsic

import "natvis/internal/graph"

// Sort orders intrinsics so that each one follows the definitions it calls.
// A call binds to the nearest earlier definition of the name, which keeps
// redefinitions such as A, B(A), A(B) acyclic.
func Sort(defs []*Intrinsic) ([]*Intrinsic, error) {
	nodes := make([]graph.Node, len(defs))
	for i, in := range defs {
		nodes[i] = graph.Node{Name: in.Name, Deps: in.Dependencies}
	}
	order, err := graph.NewGraph(nodes).Sort()
	if err != nil {
		return nil, err
	}
	sorted := make([]*Intrinsic, len(order))
	for i, id := range order {
		sorted[i] = defs[id]
	}
	return sorted, nil
}
