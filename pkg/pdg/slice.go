package pdg

import (
	"container/list"
	"sort"
)

// DependencyInfo contains the control and data dependencies of one node.
type DependencyInfo struct {
	ControlIn  []Edge // Control edges into the node
	ControlOut []Edge // Control edges out of the node
	DataIn     []Edge // Data edges into the node
	DataOut    []Edge // Data edges out of the node
}

// buildEdgeMaps creates incoming and outgoing edge maps for traversal.
// incoming[id] holds every edge pointing TO id, outgoing[id] every edge FROM id.
func buildEdgeMaps(g *Graph) (incoming map[int][]Edge, outgoing map[int][]Edge) {
	incoming = make(map[int][]Edge)
	outgoing = make(map[int][]Edge)

	for _, edge := range g.Edges {
		outgoing[edge.Src] = append(outgoing[edge.Src], edge)
		incoming[edge.Dst] = append(incoming[edge.Dst], edge)
	}
	return
}

// NodesAt returns the ids of all nodes whose span contains offset, in id
// order. Nested statements make this a chain from outermost to innermost.
func NodesAt(g *Graph, offset int) []int {
	if g == nil {
		return nil
	}
	var ids []int
	for _, n := range g.Nodes {
		if offset >= n.Start && offset < n.End {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// BackwardSlice returns the nodes that may affect node id, id included,
// sorted. If variable is set, data edges are only followed when they carry
// that name; control edges are always followed.
func BackwardSlice(g *Graph, id int, variable *string) []int {
	if g == nil || g.NodeByID(id) == nil {
		return nil
	}
	incoming, _ := buildEdgeMaps(g)
	return traverse(id, variable, func(n int) []Edge { return incoming[n] }, func(e Edge) int { return e.Src })
}

// ForwardSlice returns the nodes that node id may affect, id included,
// sorted. The variable filter works as in BackwardSlice.
func ForwardSlice(g *Graph, id int, variable *string) []int {
	if g == nil || g.NodeByID(id) == nil {
		return nil
	}
	_, outgoing := buildEdgeMaps(g)
	return traverse(id, variable, func(n int) []Edge { return outgoing[n] }, func(e Edge) int { return e.Dst })
}

// traverse runs a BFS from start over the edges returned by next.
func traverse(start int, variable *string, next func(int) []Edge, other func(Edge) int) []int {
	visited := map[int]bool{start: true}
	queue := list.New()
	queue.PushBack(start)

	result := make([]int, 0)
	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(int)
		result = append(result, current)

		for _, edge := range next(current) {
			if variable != nil && edge.Kind == DepTypeData && edge.Name != *variable {
				continue
			}
			n := other(edge)
			if visited[n] {
				continue
			}
			visited[n] = true
			queue.PushBack(n)
		}
	}

	sort.Ints(result)
	return result
}

// Dependencies returns the edges touching node id, split by kind and
// direction. Duplicate edges are reported once.
func Dependencies(g *Graph, id int) DependencyInfo {
	if g == nil || g.NodeByID(id) == nil {
		return DependencyInfo{}
	}
	incoming, outgoing := buildEdgeMaps(g)

	var info DependencyInfo
	seen := make(map[Edge]bool)
	add := func(edges []Edge, control, data *[]Edge) {
		for _, edge := range edges {
			if seen[edge] {
				continue
			}
			seen[edge] = true
			if edge.Kind == DepTypeControl {
				*control = append(*control, edge)
			} else {
				*data = append(*data, edge)
			}
		}
	}
	add(incoming[id], &info.ControlIn, &info.DataIn)
	add(outgoing[id], &info.ControlOut, &info.DataOut)

	sortEdges := func(edges []Edge) {
		sort.SliceStable(edges, func(i, j int) bool {
			if edges[i].Src != edges[j].Src {
				return edges[i].Src < edges[j].Src
			}
			return edges[i].Dst < edges[j].Dst
		})
	}
	sortEdges(info.ControlIn)
	sortEdges(info.ControlOut)
	sortEdges(info.DataIn)
	sortEdges(info.DataOut)
	return info
}

// VariableNames returns the sorted set of names carried by data edges.
func VariableNames(g *Graph) []string {
	if g == nil {
		return nil
	}
	set := make(map[string]bool)
	for _, edge := range g.Edges {
		if edge.Kind == DepTypeData && edge.Name != "" {
			set[edge.Name] = true
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
