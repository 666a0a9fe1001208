package pdg

import "github.com/l3aro/jspdg/pkg/jsast"

// index allocates one node per statement-level construct in pre-order and
// records the association from AST node ID to graph node ID. Literal
// containers are not entered.
func (b *builder) index(n jsast.Node) {
	kind := n.Kind()
	if kind.IsAtomic() {
		return
	}
	if kind.IsStatement() {
		if id, ok := b.addNode(n, string(kind)); ok {
			b.stmtID[n.ID()] = id
		}
	}
	for _, child := range n.Children() {
		b.index(child)
	}
}

// addNode appends a node spanning n, mapped back to the original text. It
// reports false once the node cap is reached.
func (b *builder) addNode(n jsast.Node, label string) (int, bool) {
	if len(b.graph.Nodes) >= b.limits.MaxNodes {
		b.graph.Truncated = true
		return 0, false
	}

	span := n.Span()
	start, end := b.pmap.MapRange(span.Start, span.End)
	id := len(b.graph.Nodes)
	b.graph.Nodes = append(b.graph.Nodes, Node{
		ID:      id,
		Kind:    label,
		Start:   start,
		End:     end,
		Snippet: snippet(b.text, start, end, b.limits.MaxSnippet),
		Size:    max(0, end-start),
	})
	return id, true
}
