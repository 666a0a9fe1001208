// Package pdg builds Program Dependence Graphs for JavaScript sources.
// Nodes are statement-level program points; edges carry control sequencing
// and definition-to-use data flow between them.
package pdg

// DepType represents the type of dependence in a PDG edge.
type DepType string

const (
	DepTypeControl DepType = "control" // Control dependence
	DepTypeData    DepType = "data"    // Data dependence
)

// Node is one statement-level program point. ID equals the node's index in
// Graph.Nodes. Start and End are byte offsets into the original source.
type Node struct {
	ID      int    `json:"id" msgpack:"id"`             // Dense, 0-based, in discovery order
	Kind    string `json:"type" msgpack:"type"`         // Construct label, e.g. "IfStatement"
	Start   int    `json:"start" msgpack:"start"`       // Span start in the original text
	End     int    `json:"end" msgpack:"end"`           // Span end (exclusive)
	Snippet string `json:"snippet" msgpack:"snippet"`   // Comment-free one-line preview
	Size    int    `json:"ast_size" msgpack:"ast_size"` // End - Start
}

// Edge is a directed dependence between two nodes. Name is set on data edges
// only and holds the variable that flows along the edge.
type Edge struct {
	Src  int     `json:"src" msgpack:"src"`
	Dst  int     `json:"dst" msgpack:"dst"`
	Kind DepType `json:"type" msgpack:"type"`
	Name string  `json:"name,omitempty" msgpack:"name,omitempty"`
}

// Graph is the result of one extraction: nodes in id order and edges in
// creation order.
type Graph struct {
	Nodes []Node `json:"nodes" msgpack:"nodes"`
	Edges []Edge `json:"edges" msgpack:"edges"`

	// Fallback reports that the original text was parsed after the
	// normalized text failed.
	Fallback bool `json:"-" msgpack:"fallback"`
	// Truncated reports that a node or edge cap was reached.
	Truncated bool `json:"-" msgpack:"truncated"`
}

// Limits bounds the size of a graph. Reaching a limit truncates output
// silently; it is never an error.
type Limits struct {
	MaxNodes   int `yaml:"max_nodes" json:"max_nodes"`
	MaxEdges   int `yaml:"max_edges" json:"max_edges"`
	MaxSnippet int `yaml:"max_snippet" json:"max_snippet"`
	MaxUses    int `yaml:"max_uses" json:"max_uses"`
}

// Default caps.
const (
	DefaultMaxNodes   = 20000
	DefaultMaxEdges   = 50000
	DefaultMaxSnippet = 160
	DefaultMaxUses    = 2000
)

// DefaultLimits returns the default caps.
func DefaultLimits() Limits {
	return Limits{
		MaxNodes:   DefaultMaxNodes,
		MaxEdges:   DefaultMaxEdges,
		MaxSnippet: DefaultMaxSnippet,
		MaxUses:    DefaultMaxUses,
	}
}

// withDefaults fills zero or negative fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxNodes <= 0 {
		l.MaxNodes = d.MaxNodes
	}
	if l.MaxEdges <= 0 {
		l.MaxEdges = d.MaxEdges
	}
	if l.MaxSnippet <= 0 {
		l.MaxSnippet = d.MaxSnippet
	}
	if l.MaxUses <= 0 {
		l.MaxUses = d.MaxUses
	}
	return l
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id int) *Node {
	if g == nil || id < 0 || id >= len(g.Nodes) {
		return nil
	}
	return &g.Nodes[id]
}
