// Package partition splits a dependence graph into code regions small
// enough to serve as analysis units. Control edges bind statements more
// tightly than data edges; each connected component is split by repeated
// Louvain community detection until every part is under an AST budget.
package partition

import (
	"context"
	"sort"
	"strings"

	"github.com/l3aro/jspdg/pkg/pdg"
)

// Defaults.
const (
	DefaultThetaAST   = 120
	DefaultWControl   = 3.0
	DefaultWData      = 1.0
	DefaultMaxDepth   = 20
	DefaultResolution = 1.0
	DefaultSnippetLen = 120
)

// Options controls partitioning. Edge weights that are not positive drop
// that edge type from the graph.
type Options struct {
	ThetaAST   int     `yaml:"theta_ast" json:"theta_ast"`   // Stop splitting at or below this ast_size sum
	WControl   float64 `yaml:"w_control" json:"w_control"`   // Weight of a control edge
	WData      float64 `yaml:"w_data" json:"w_data"`         // Weight of a data edge
	MaxDepth   int     `yaml:"max_depth" json:"max_depth"`   // Recursion bound
	Resolution float64 `yaml:"resolution" json:"resolution"` // Louvain resolution
	SnippetLen int     `yaml:"snippet_len" json:"snippet_len"`
}

// DefaultOptions returns the default partitioning options.
func DefaultOptions() Options {
	return Options{
		ThetaAST:   DefaultThetaAST,
		WControl:   DefaultWControl,
		WData:      DefaultWData,
		MaxDepth:   DefaultMaxDepth,
		Resolution: DefaultResolution,
		SnippetLen: DefaultSnippetLen,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Resolution <= 0 {
		o.Resolution = DefaultResolution
	}
	if o.SnippetLen <= 0 {
		o.SnippetLen = DefaultSnippetLen
	}
	return o
}

// Part is one region of the graph.
type Part struct {
	PartID  int    `json:"part_id" msgpack:"part_id"`
	Nodes   []int  `json:"nodes" msgpack:"nodes"` // Node ids, ascending
	ASTSize int    `json:"ast_size" msgpack:"ast_size"`
	Snippet string `json:"snippet" msgpack:"snippet"` // Member snippets joined by " ; "
}

// Partition splits g into parts. Every node belongs to exactly one part.
// Parts are numbered in order of discovery: components by smallest node,
// then communities by smallest node.
func Partition(ctx context.Context, g *pdg.Graph, opts Options) ([]Part, error) {
	opts = opts.withDefaults()
	wg := build(g, opts)

	var groups [][]int
	for _, comp := range wg.components() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		groups = append(groups, split(wg, comp, g, opts, 0)...)
	}

	parts := make([]Part, 0, len(groups))
	for i, members := range groups {
		parts = append(parts, makePart(i, members, g, opts.SnippetLen))
	}
	return parts, nil
}

// split recursively divides members, indices into g.Nodes.
func split(wg *wgraph, members []int, g *pdg.Graph, opts Options, depth int) [][]int {
	if depth >= opts.MaxDepth || len(members) <= 1 {
		return [][]int{members}
	}
	if astSum(members, g) <= opts.ThetaAST {
		return [][]int{members}
	}

	labels := louvain(wg.subgraph(members), opts.Resolution)
	var comms [][]int
	for p, c := range labels {
		for c >= len(comms) {
			comms = append(comms, nil)
		}
		comms[c] = append(comms[c], members[p])
	}
	if len(comms) <= 1 {
		return [][]int{members}
	}

	var out [][]int
	for _, comm := range comms {
		out = append(out, split(wg, comm, g, opts, depth+1)...)
	}
	return out
}

func astSum(members []int, g *pdg.Graph) int {
	total := 0
	for _, i := range members {
		total += g.Nodes[i].Size
	}
	return total
}

func makePart(id int, members []int, g *pdg.Graph, snippetLen int) Part {
	nodes := make([]pdg.Node, 0, len(members))
	for _, i := range members {
		nodes = append(nodes, g.Nodes[i])
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	p := Part{PartID: id, Nodes: make([]int, 0, len(nodes))}
	snippets := make([]string, 0, len(nodes))
	for _, n := range nodes {
		p.Nodes = append(p.Nodes, n.ID)
		p.ASTSize += n.Size
		snippets = append(snippets, truncate(n.Snippet, snippetLen))
	}
	p.Snippet = strings.Join(snippets, " ; ")
	return p
}

// truncate keeps at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
