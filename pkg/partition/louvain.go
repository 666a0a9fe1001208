package partition

import "sort"

// minGain is the smallest modularity increase that counts as progress.
const minGain = 1e-7

// louvain returns a community label per node of g. Labels are dense and
// numbered in order of each community's smallest node. Nodes are visited
// in index order and ties keep the lowest community, so the result is
// deterministic.
func louvain(g *wgraph, resolution float64) []int {
	membership := identity(g.len())
	m := g.totalWeight()
	if m == 0 {
		return membership
	}

	cur := g
	comm := cur.oneLevel(resolution, m)
	compose(membership, comm)
	mod := cur.modularity(comm, resolution, m)
	cur = cur.aggregate(comm)

	for {
		comm = cur.oneLevel(resolution, m)
		next := cur.modularity(comm, resolution, m)
		if next-mod < minGain {
			break
		}
		compose(membership, comm)
		mod = next
		cur = cur.aggregate(comm)
	}
	return membership
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// compose relabels membership through the next level's labels.
func compose(membership, comm []int) {
	for i, c := range membership {
		membership[i] = comm[c]
	}
}

// renumber maps labels to 0..k-1 in order of first appearance.
func renumber(comm []int) []int {
	ids := make(map[int]int)
	out := make([]int, len(comm))
	for i, c := range comm {
		id, ok := ids[c]
		if !ok {
			id = len(ids)
			ids[c] = id
		}
		out[i] = id
	}
	return out
}

// oneLevel moves single nodes between communities until no move raises
// modularity. m is the total edge weight of the original graph.
func (g *wgraph) oneLevel(resolution, m float64) []int {
	n := g.len()
	comm := identity(n)
	degrees := make([]float64, n)
	tot := make([]float64, n)
	for i := range degrees {
		degrees[i] = g.degree(i)
		tot[i] = degrees[i]
	}

	m2 := 2 * m
	mod := g.modularity(comm, resolution, m)
	for {
		moved := false
		for i := 0; i < n; i++ {
			ci, ki := comm[i], degrees[i]

			links := make(map[int]float64)
			for _, j := range g.neighbors(i) {
				links[comm[j]] += g.adj[i][j]
			}
			tot[ci] -= ki

			best, bestGain := ci, links[ci]-resolution*tot[ci]*ki/m2
			candidates := make([]int, 0, len(links))
			for c := range links {
				candidates = append(candidates, c)
			}
			sort.Ints(candidates)
			for _, c := range candidates {
				if gain := links[c] - resolution*tot[c]*ki/m2; gain > bestGain {
					best, bestGain = c, gain
				}
			}

			tot[best] += ki
			if best != ci {
				comm[i] = best
				moved = true
			}
		}
		if !moved {
			break
		}
		next := g.modularity(comm, resolution, m)
		if next-mod < minGain {
			break
		}
		mod = next
	}
	return renumber(comm)
}

// modularity of the labelling comm, with total weight m.
func (g *wgraph) modularity(comm []int, resolution, m float64) float64 {
	internal := make(map[int]float64)
	tot := make(map[int]float64)
	for i := range g.adj {
		c := comm[i]
		tot[c] += g.degree(i)
		internal[c] += g.loops[i]
		for _, j := range g.neighbors(i) {
			if j > i && comm[j] == c {
				internal[c] += g.adj[i][j]
			}
		}
	}

	labels := make([]int, 0, len(tot))
	for c := range tot {
		labels = append(labels, c)
	}
	sort.Ints(labels)

	var q float64
	for _, c := range labels {
		share := tot[c] / (2 * m)
		q += internal[c]/m - resolution*share*share
	}
	return q
}

// aggregate collapses each community into one node. Internal weight
// becomes a self-loop.
func (g *wgraph) aggregate(comm []int) *wgraph {
	k := 0
	for _, c := range comm {
		if c+1 > k {
			k = c + 1
		}
	}
	out := newWGraph(k)
	for i := range g.adj {
		out.loops[comm[i]] += g.loops[i]
		for _, j := range g.neighbors(i) {
			if j > i {
				out.addEdge(comm[i], comm[j], g.adj[i][j])
			}
		}
	}
	return out
}
