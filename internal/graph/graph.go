package graph

// Node is one definition in the dependency graph.
type Node struct {
	Name string   // name the definition is bound to
	Deps []string // names the definition refers to
}

// Edge is a directed relationship from a definition to the definition it depends on.
type Edge struct {
	From int // dependent node index
	To   int // dependency node index
	Kind ResolutionKind
}

// Graph links distinct definitions, not names. A name may be bound by
// several nodes; each reference resolves to exactly one of them.
type Graph struct {
	Nodes []Node
	Edges []Edge

	// Index for name resolution: Name -> node indices in definition order.
	nameIndex map[string][]int
	deps      [][]int
	dependent [][]int
}

// NewGraph builds the graph for nodes given in definition order and links
// every reference with LinkRelations.
func NewGraph(nodes []Node) *Graph {
	g := &Graph{
		Nodes:     nodes,
		nameIndex: make(map[string][]int),
	}
	for i, n := range nodes {
		g.nameIndex[n.Name] = append(g.nameIndex[n.Name], i)
	}
	g.LinkRelations()
	return g
}

// LinkRelations resolves each referenced name to the nearest preceding
// definition of that name. A name with no earlier definition resolves to its
// first later definition. Self references never produce an edge.
func (g *Graph) LinkRelations() {
	g.Edges = []Edge{}
	g.deps = make([][]int, len(g.Nodes))
	g.dependent = make([][]int, len(g.Nodes))

	for from, node := range g.Nodes {
		seen := make(map[int]bool)
		for _, name := range node.Deps {
			to, kind, ok := g.resolveTarget(name, from)
			if !ok || seen[to] {
				continue
			}
			seen[to] = true
			g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: kind})
			g.deps[from] = append(g.deps[from], to)
			g.dependent[to] = append(g.dependent[to], from)
		}
	}
}

func (g *Graph) resolveTarget(name string, from int) (int, ResolutionKind, bool) {
	ids, ok := g.nameIndex[name]
	if !ok {
		return 0, "", false
	}
	preceding := -1
	for _, id := range ids {
		if id >= from {
			break
		}
		preceding = id
	}
	if preceding >= 0 {
		return preceding, ResolvedPreceding, true
	}
	for _, id := range ids {
		if id > from {
			return id, ResolvedForward, true
		}
	}
	return 0, "", false
}

// GetDependencies returns the indices of the nodes that node id depends on.
func (g *Graph) GetDependencies(id int) []int {
	return g.deps[id]
}

// GetDependents returns the indices of the nodes that depend on node id.
func (g *Graph) GetDependents(id int) []int {
	return g.dependent[id]
}
