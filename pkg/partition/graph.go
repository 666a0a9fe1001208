package partition

import (
	"sort"

	"github.com/l3aro/jspdg/pkg/pdg"
)

// wgraph is an undirected weighted graph over dense indices. Self-loops
// only arise from aggregation and are kept apart from adj.
type wgraph struct {
	adj   []map[int]float64
	loops []float64
}

func newWGraph(n int) *wgraph {
	g := &wgraph{adj: make([]map[int]float64, n), loops: make([]float64, n)}
	for i := range g.adj {
		g.adj[i] = make(map[int]float64)
	}
	return g
}

func (g *wgraph) len() int { return len(g.adj) }

// addEdge accumulates w on the edge between i and j.
func (g *wgraph) addEdge(i, j int, w float64) {
	if i == j {
		g.loops[i] += w
		return
	}
	g.adj[i][j] += w
	g.adj[j][i] += w
}

// neighbors returns the neighbors of i in ascending order.
func (g *wgraph) neighbors(i int) []int {
	out := make([]int, 0, len(g.adj[i]))
	for j := range g.adj[i] {
		out = append(out, j)
	}
	sort.Ints(out)
	return out
}

// degree counts a self-loop twice.
func (g *wgraph) degree(i int) float64 {
	d := 2 * g.loops[i]
	for _, j := range g.neighbors(i) {
		d += g.adj[i][j]
	}
	return d
}

func (g *wgraph) totalWeight() float64 {
	var m float64
	for i := range g.adj {
		m += g.loops[i]
		for _, j := range g.neighbors(i) {
			if j > i {
				m += g.adj[i][j]
			}
		}
	}
	return m
}

// subgraph returns the graph induced by members, indexed by position in
// members.
func (g *wgraph) subgraph(members []int) *wgraph {
	pos := make(map[int]int, len(members))
	for p, i := range members {
		pos[i] = p
	}
	sub := newWGraph(len(members))
	for p, i := range members {
		sub.loops[p] = g.loops[i]
		for _, j := range g.neighbors(i) {
			if q, ok := pos[j]; ok && q > p {
				sub.addEdge(p, q, g.adj[i][j])
			}
		}
	}
	return sub
}

// components returns connected components in order of their smallest
// member; members are ascending.
func (g *wgraph) components() [][]int {
	seen := make([]bool, g.len())
	var out [][]int
	for start := range g.adj {
		if seen[start] {
			continue
		}
		seen[start] = true
		comp := []int{start}
		for q := 0; q < len(comp); q++ {
			for _, j := range g.neighbors(comp[q]) {
				if !seen[j] {
					seen[j] = true
					comp = append(comp, j)
				}
			}
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	return out
}

// build converts a dependence graph into an undirected weighted graph over
// node positions. Self-edges, edges to unknown nodes and edges whose weight
// is not positive are skipped; parallel edges accumulate.
func build(g *pdg.Graph, opts Options) *wgraph {
	index := make(map[int]int, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n.ID] = i
	}

	wg := newWGraph(len(g.Nodes))
	for _, e := range g.Edges {
		if e.Src == e.Dst {
			continue
		}
		s, ok := index[e.Src]
		if !ok {
			continue
		}
		d, ok := index[e.Dst]
		if !ok {
			continue
		}
		w := opts.WData
		if e.Kind == pdg.DepTypeControl {
			w = opts.WControl
		}
		if !(w > 0) {
			continue
		}
		wg.addEdge(s, d, w)
	}
	return wg
}
