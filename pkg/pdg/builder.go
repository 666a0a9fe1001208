package pdg

import (
	"github.com/l3aro/jspdg/pkg/jsast"
	"github.com/l3aro/jspdg/pkg/source"
)

// builder owns all state of one extraction. Nothing in it outlives the run.
type builder struct {
	text   string
	pmap   source.PositionMap
	limits Limits
	// sequenceAll extends sequencing edges to the program body and switch
	// cases in addition to blocks.
	sequenceAll bool

	graph  *Graph
	stmtID map[int]int // AST node ID -> graph node ID
	scopes scopeStack
	uses   *useCollector
	// path holds the ancestors of the node being visited, itself included.
	path []jsast.Node
}

func newBuilder(text string, pmap source.PositionMap, opts Options) *builder {
	return &builder{
		text:        text,
		pmap:        pmap,
		limits:      opts.Limits,
		sequenceAll: opts.SequenceTopLevel,
		graph: &Graph{
			Nodes: make([]Node, 0),
			Edges: make([]Edge, 0),
		},
		stmtID: make(map[int]int),
		uses:   newUseCollector(opts.Limits.MaxUses),
	}
}

// addEdge appends an edge unless the edge cap is reached.
func (b *builder) addEdge(src, dst int, kind DepType, name string) {
	if len(b.graph.Edges) >= b.limits.MaxEdges {
		b.graph.Truncated = true
		return
	}
	b.graph.Edges = append(b.graph.Edges, Edge{Src: src, Dst: dst, Kind: kind, Name: name})
}

// link adds a data edge into owner for every name used under expr. An
// unresolved name yields a self edge on owner.
func (b *builder) link(owner int, expr jsast.Node) {
	for _, name := range b.uses.collect(expr) {
		src, ok := b.scopes.resolve(name)
		if !ok {
			src = owner
		}
		b.addEdge(src, owner, DepTypeData, name)
	}
}

func (b *builder) define(target jsast.Node, owner int) {
	for _, name := range bindingNames(target, nil) {
		b.scopes.define(name, owner)
	}
}

// walk is the edge pass: pre-order over the tree, scopes pushed on the
// program and on every function.
func (b *builder) walk(n jsast.Node) {
	kind := n.Kind()
	if kind.IsAtomic() {
		return
	}

	opensScope := kind == jsast.KindProgram || kind.IsFunction()
	if opensScope {
		b.scopes.push()
	}
	b.path = append(b.path, n)

	b.visit(n)
	for _, child := range n.Children() {
		b.walk(child)
	}

	b.path = b.path[:len(b.path)-1]
	if opensScope {
		b.scopes.pop()
	}
}

func (b *builder) visit(n jsast.Node) {
	switch v := n.(type) {
	case *jsast.Program:
		if b.sequenceAll {
			b.sequence(v.Body)
		}
	case *jsast.SwitchCase:
		if b.sequenceAll {
			b.sequence(v.Consequent)
		}
	case *jsast.BlockStatement:
		b.sequence(v.Body)
	case *jsast.IfStatement:
		b.branch(v, v.Consequent)
		b.branch(v, v.Alternate)
	case *jsast.ForStatement:
		b.branch(v, v.Body)
	case *jsast.ForEachStatement:
		b.branch(v, v.Body)
	case *jsast.WhileStatement:
		b.branch(v, v.Body)
	case *jsast.VariableDeclaration:
		b.declaration(v)
	case *jsast.AssignmentExpression:
		b.assignment(v)
	case *jsast.ExpressionStatement:
		if owner, ok := b.stmtID[v.ID()]; ok {
			b.link(owner, v.Expression)
		}
	case *jsast.ArgumentStatement:
		if owner, ok := b.stmtID[v.ID()]; ok && v.Argument != nil {
			b.link(owner, v.Argument)
		}
	case *jsast.Function:
		b.parameters(v)
	}
}

// sequence links each statement of a list to the next one.
func (b *builder) sequence(list []jsast.Node) {
	prev, havePrev := 0, false
	for _, stmt := range list {
		if !stmt.Kind().IsStatement() {
			continue
		}
		id, ok := b.stmtID[stmt.ID()]
		if ok && havePrev {
			b.addEdge(prev, id, DepTypeControl, "")
		}
		prev, havePrev = id, ok
	}
}

// branch adds a control edge from stmt to the first statement of body.
// An empty body adds nothing.
func (b *builder) branch(stmt, body jsast.Node) {
	from, ok := b.stmtID[stmt.ID()]
	if !ok {
		return
	}
	first := firstStatement(body)
	if first == nil {
		return
	}
	if to, ok := b.stmtID[first.ID()]; ok {
		b.addEdge(from, to, DepTypeControl, "")
	}
}

// firstStatement returns body itself when it is a statement, or the first
// statement of a block.
func firstStatement(body jsast.Node) jsast.Node {
	switch v := body.(type) {
	case nil:
		return nil
	case *jsast.BlockStatement:
		for _, stmt := range v.Body {
			if stmt.Kind().IsStatement() {
				return stmt
			}
		}
		return nil
	}
	if body.Kind().IsStatement() {
		return body
	}
	return nil
}

// declaration defines every declarator's names against the declaration,
// then links the uses of its initializer.
func (b *builder) declaration(decl *jsast.VariableDeclaration) {
	owner, ok := b.stmtID[decl.ID()]
	if !ok {
		return
	}
	for _, d := range decl.Declarations {
		b.define(d.Target, owner)
		if d.Init != nil {
			b.link(owner, d.Init)
		}
	}
}

// assignment attributes an assignment to the nearest enclosing statement,
// or to a synthetic "AssignOwner" node spanning its parent when there is
// none.
func (b *builder) assignment(a *jsast.AssignmentExpression) {
	owner, ok := b.enclosingStatement()
	if !ok {
		parent := jsast.Node(a)
		if len(b.path) >= 2 {
			parent = b.path[len(b.path)-2]
		}
		if owner, ok = b.addNode(parent, "AssignOwner"); !ok {
			return
		}
	}
	b.define(a.Left, owner)
	if a.Right != nil {
		b.link(owner, a.Right)
	}
}

// enclosingStatement returns the node of the innermost statement on the
// current path that has one.
func (b *builder) enclosingStatement() (int, bool) {
	for i := len(b.path) - 1; i >= 0; i-- {
		n := b.path[i]
		if !n.Kind().IsStatement() {
			continue
		}
		if id, ok := b.stmtID[n.ID()]; ok {
			return id, true
		}
	}
	return 0, false
}

// parameters defines a function's parameter names against the function's
// node. Function and arrow expressions are not statements, so they get a
// node here.
func (b *builder) parameters(fn *jsast.Function) {
	owner, ok := b.stmtID[fn.ID()]
	if !ok {
		if owner, ok = b.addNode(fn, string(fn.Kind())); !ok {
			return
		}
	}
	for _, p := range fn.Params {
		b.define(p, owner)
	}
}
