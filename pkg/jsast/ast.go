// Package jsast defines a closed syntax tree for JavaScript programs and the
// parser adapter that produces it from tree-sitter parses.
//
// Only the constructs the dependence-graph builder reads have dedicated
// variants: statements, declarations, functions, binding patterns, assignments
// and the literal containers that are treated as atomic. Every other
// expression is carried by Expression (labelled, with ordered operands) and
// anything the grammar produces that has no ESTree counterpart by Opaque.
package jsast

import "strings"

// Kind is the ESTree construct label of a node, e.g. "IfStatement".
type Kind string

const (
	KindProgram                 Kind = "Program"
	KindExpressionStatement     Kind = "ExpressionStatement"
	KindBlockStatement          Kind = "BlockStatement"
	KindEmptyStatement          Kind = "EmptyStatement"
	KindIfStatement             Kind = "IfStatement"
	KindForStatement            Kind = "ForStatement"
	KindForInStatement          Kind = "ForInStatement"
	KindForOfStatement          Kind = "ForOfStatement"
	KindWhileStatement          Kind = "WhileStatement"
	KindDoWhileStatement        Kind = "DoWhileStatement"
	KindReturnStatement         Kind = "ReturnStatement"
	KindThrowStatement          Kind = "ThrowStatement"
	KindBreakStatement          Kind = "BreakStatement"
	KindContinueStatement       Kind = "ContinueStatement"
	KindTryStatement            Kind = "TryStatement"
	KindCatchClause             Kind = "CatchClause"
	KindSwitchStatement         Kind = "SwitchStatement"
	KindSwitchCase              Kind = "SwitchCase"
	KindLabeledStatement        Kind = "LabeledStatement"
	KindDebuggerStatement       Kind = "DebuggerStatement"
	KindWithStatement           Kind = "WithStatement"
	KindVariableDeclaration     Kind = "VariableDeclaration"
	KindVariableDeclarator      Kind = "VariableDeclarator"
	KindFunctionDeclaration     Kind = "FunctionDeclaration"
	KindFunctionExpression      Kind = "FunctionExpression"
	KindArrowFunctionExpression Kind = "ArrowFunctionExpression"
	KindClassDeclaration        Kind = "ClassDeclaration"
	KindClassExpression         Kind = "ClassExpression"
	KindMethodDefinition        Kind = "MethodDefinition"
	KindPropertyDefinition      Kind = "PropertyDefinition"
	KindIdentifier              Kind = "Identifier"
	KindLiteral                 Kind = "Literal"
	KindTemplateLiteral         Kind = "TemplateLiteral"
	KindRegExpLiteral           Kind = "RegExpLiteral"
	KindArrayExpression         Kind = "ArrayExpression"
	KindObjectExpression        Kind = "ObjectExpression"
	KindProperty                Kind = "Property"
	KindAssignmentExpression    Kind = "AssignmentExpression"
	KindArrayPattern            Kind = "ArrayPattern"
	KindObjectPattern           Kind = "ObjectPattern"
	KindRestElement             Kind = "RestElement"
	KindAssignmentPattern       Kind = "AssignmentPattern"
	KindError                   Kind = "Error"
)

// IsStatement reports whether nodes of this kind are statement-level program
// points: any "...Statement", plus function and variable declarations.
func (k Kind) IsStatement() bool {
	return strings.HasSuffix(string(k), "Statement") ||
		k == KindFunctionDeclaration ||
		k == KindVariableDeclaration
}

// IsAtomic reports whether traversal treats nodes of this kind as leaves.
// Literal containers never contribute statements or uses.
func (k Kind) IsAtomic() bool {
	switch k {
	case KindArrayExpression, KindObjectExpression, KindLiteral, KindTemplateLiteral, KindRegExpLiteral:
		return true
	}
	return false
}

// IsFunction reports whether the kind opens a new lexical scope.
func (k Kind) IsFunction() bool {
	switch k {
	case KindFunctionDeclaration, KindFunctionExpression, KindArrowFunctionExpression:
		return true
	}
	return false
}

// Range is a half-open byte range [Start, End) in the parsed text.
type Range struct {
	Start int
	End   int
}

// Node is implemented by every syntax tree variant. The set of variants is
// closed: only types in this package satisfy it.
type Node interface {
	// ID is unique within one parse and assigned in pre-order.
	ID() int
	Kind() Kind
	Span() Range
	// Children returns direct descendants in source order, skipping absent ones.
	Children() []Node
	sealed()
}

type base struct {
	id   int
	span Range
}

func (b *base) ID() int { return b.id }
func (b *base) Span() Range { return b.span }
func (b *base) sealed() {}

// nodes filters nil entries, which stand for optional parts that are absent.
func nodes(ns ...Node) []Node {
	out := make([]Node, 0, len(ns))
	for _, n := range ns {
		if n != nil && !isNilNode(n) {
			out = append(out, n)
		}
	}
	return out
}

// isNilNode catches typed nil pointers stored in a Node.
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Identifier:
		return v == nil
	case *BlockStatement:
		return v == nil
	case *CatchClause:
		return v == nil
	}
	return false
}

// Program is the root of every parse.
type Program struct {
	base
	Body []Node
}

func (n *Program) Kind() Kind { return KindProgram }
func (n *Program) Children() []Node { return nodes(n.Body...) }

// ExpressionStatement wraps an expression evaluated for its effect.
type ExpressionStatement struct {
	base
	Expression Node
}

func (n *ExpressionStatement) Kind() Kind { return KindExpressionStatement }
func (n *ExpressionStatement) Children() []Node { return nodes(n.Expression) }

// BlockStatement is a braced statement list.
type BlockStatement struct {
	base
	Body []Node
}

func (n *BlockStatement) Kind() Kind { return KindBlockStatement }
func (n *BlockStatement) Children() []Node { return nodes(n.Body...) }

// SimpleStatement covers statements without parts the graph builder reads:
// empty, debugger, break and continue.
type SimpleStatement struct {
	base
	Label Kind
	// Target is the jump label of break/continue, if any.
	Target *Identifier
}

func (n *SimpleStatement) Kind() Kind { return n.Label }
func (n *SimpleStatement) Children() []Node { return nodes(n.Target) }

// IfStatement is a two-way conditional.
type IfStatement struct {
	base
	Test       Node
	Consequent Node
	Alternate  Node
}

func (n *IfStatement) Kind() Kind { return KindIfStatement }
func (n *IfStatement) Children() []Node { return nodes(n.Test, n.Consequent, n.Alternate) }

// ForStatement is the three-clause for loop.
type ForStatement struct {
	base
	Init   Node
	Test   Node
	Update Node
	Body   Node
}

func (n *ForStatement) Kind() Kind { return KindForStatement }
func (n *ForStatement) Children() []Node { return nodes(n.Init, n.Test, n.Update, n.Body) }

// ForEachStatement is a for-in or for-of loop.
type ForEachStatement struct {
	base
	Of    bool
	Left  Node
	Right Node
	Body  Node
}

func (n *ForEachStatement) Kind() Kind {
	if n.Of {
		return KindForOfStatement
	}
	return KindForInStatement
}
func (n *ForEachStatement) Children() []Node { return nodes(n.Left, n.Right, n.Body) }

// WhileStatement is a while or do-while loop.
type WhileStatement struct {
	base
	DoWhile bool
	Test    Node
	Body    Node
}

func (n *WhileStatement) Kind() Kind {
	if n.DoWhile {
		return KindDoWhileStatement
	}
	return KindWhileStatement
}

func (n *WhileStatement) Children() []Node {
	if n.DoWhile {
		return nodes(n.Body, n.Test)
	}
	return nodes(n.Test, n.Body)
}

// ArgumentStatement is a return or throw with an optional operand.
type ArgumentStatement struct {
	base
	Label    Kind
	Argument Node
}

func (n *ArgumentStatement) Kind() Kind { return n.Label }
func (n *ArgumentStatement) Children() []Node { return nodes(n.Argument) }

// TryStatement is try/catch/finally.
type TryStatement struct {
	base
	Block     *BlockStatement
	Handler   *CatchClause
	Finalizer *BlockStatement
}

func (n *TryStatement) Kind() Kind { return KindTryStatement }
func (n *TryStatement) Children() []Node {
	return nodes(n.Block, n.Handler, n.Finalizer)
}

// CatchClause is the handler of a try statement.
type CatchClause struct {
	base
	Param Node
	Body  *BlockStatement
}

func (n *CatchClause) Kind() Kind { return KindCatchClause }
func (n *CatchClause) Children() []Node { return nodes(n.Param, n.Body) }

// SwitchStatement dispatches on a discriminant.
type SwitchStatement struct {
	base
	Discriminant Node
	Cases        []*SwitchCase
}

func (n *SwitchStatement) Kind() Kind { return KindSwitchStatement }
func (n *SwitchStatement) Children() []Node {
	out := nodes(n.Discriminant)
	for _, c := range n.Cases {
		out = append(out, c)
	}
	return out
}

// SwitchCase is one case (Test nil for default).
type SwitchCase struct {
	base
	Test       Node
	Consequent []Node
}

func (n *SwitchCase) Kind() Kind { return KindSwitchCase }
func (n *SwitchCase) Children() []Node {
	return append(nodes(n.Test), nodes(n.Consequent...)...)
}

// LabeledStatement attaches a label to a statement.
type LabeledStatement struct {
	base
	Label *Identifier
	Body  Node
}

func (n *LabeledStatement) Kind() Kind { return KindLabeledStatement }
func (n *LabeledStatement) Children() []Node { return nodes(n.Label, n.Body) }

// WithStatement extends the scope chain with an object.
type WithStatement struct {
	base
	Object Node
	Body   Node
}

func (n *WithStatement) Kind() Kind { return KindWithStatement }
func (n *WithStatement) Children() []Node { return nodes(n.Object, n.Body) }

// VariableDeclaration is a var, let or const declaration.
type VariableDeclaration struct {
	base
	DeclKind     string
	Declarations []*VariableDeclarator
}

func (n *VariableDeclaration) Kind() Kind { return KindVariableDeclaration }
func (n *VariableDeclaration) Children() []Node {
	out := make([]Node, 0, len(n.Declarations))
	for _, d := range n.Declarations {
		out = append(out, d)
	}
	return out
}

// VariableDeclarator binds a pattern to an optional initializer.
type VariableDeclarator struct {
	base
	Target Node
	Init   Node
}

func (n *VariableDeclarator) Kind() Kind { return KindVariableDeclarator }
func (n *VariableDeclarator) Children() []Node { return nodes(n.Target, n.Init) }

// Function carries the parts shared by declarations, expressions and arrows.
type Function struct {
	base
	Label  Kind
	Name   *Identifier
	Params []Node
	Body   Node
}

func (n *Function) Kind() Kind { return n.Label }
func (n *Function) Children() []Node {
	out := nodes(n.Name)
	out = append(out, nodes(n.Params...)...)
	return append(out, nodes(n.Body)...)
}

// Class is a class declaration or expression.
type Class struct {
	base
	Label      Kind
	Name       *Identifier
	SuperClass Node
	Members    []Node
}

func (n *Class) Kind() Kind { return n.Label }
func (n *Class) Children() []Node {
	out := nodes(n.Name, n.SuperClass)
	return append(out, nodes(n.Members...)...)
}

// ClassMember is a method or field definition.
type ClassMember struct {
	base
	Label Kind
	Key   Node
	Value Node
}

func (n *ClassMember) Kind() Kind { return n.Label }
func (n *ClassMember) Children() []Node { return nodes(n.Key, n.Value) }

// Identifier is any name reference or binding.
type Identifier struct {
	base
	Name string
}

func (n *Identifier) Kind() Kind { return KindIdentifier }
func (n *Identifier) Children() []Node { return nil }

// Literal is a string, number, boolean or null literal, or a regular
// expression when Label is KindRegExpLiteral.
type Literal struct {
	base
	Label Kind
	Raw   string
}

func (n *Literal) Kind() Kind { return n.Label }
func (n *Literal) Children() []Node { return nil }

// Container is an array literal, object literal or template string. Its
// elements are kept for completeness although traversal treats it as atomic.
type Container struct {
	base
	Label    Kind
	Elements []Node
}

func (n *Container) Kind() Kind { return n.Label }
func (n *Container) Children() []Node { return nodes(n.Elements...) }

// Property is a key/value entry of an object pattern or object literal.
type Property struct {
	base
	Key   Node
	Value Node
}

func (n *Property) Kind() Kind { return KindProperty }
func (n *Property) Children() []Node { return nodes(n.Key, n.Value) }

// AssignmentExpression covers plain and compound assignment.
type AssignmentExpression struct {
	base
	Operator string
	Left     Node
	Right    Node
}

func (n *AssignmentExpression) Kind() Kind { return KindAssignmentExpression }
func (n *AssignmentExpression) Children() []Node { return nodes(n.Left, n.Right) }

// ArrayPattern destructures by position. Holes are omitted.
type ArrayPattern struct {
	base
	Elements []Node
}

func (n *ArrayPattern) Kind() Kind { return KindArrayPattern }
func (n *ArrayPattern) Children() []Node { return nodes(n.Elements...) }

// ObjectPattern destructures by key; entries are *Property or *RestElement.
type ObjectPattern struct {
	base
	Properties []Node
}

func (n *ObjectPattern) Kind() Kind { return KindObjectPattern }
func (n *ObjectPattern) Children() []Node { return nodes(n.Properties...) }

// RestElement collects remaining elements into Argument.
type RestElement struct {
	base
	Argument Node
}

func (n *RestElement) Kind() Kind { return KindRestElement }
func (n *RestElement) Children() []Node { return nodes(n.Argument) }

// AssignmentPattern is a binding with a default value.
type AssignmentPattern struct {
	base
	Left  Node
	Right Node
}

func (n *AssignmentPattern) Kind() Kind { return KindAssignmentPattern }
func (n *AssignmentPattern) Children() []Node { return nodes(n.Left, n.Right) }

// Expression is any other expression, e.g. CallExpression or MemberExpression.
// Operands are in source order.
type Expression struct {
	base
	Label    Kind
	Operands []Node
}

func (n *Expression) Kind() Kind { return n.Label }
func (n *Expression) Children() []Node { return nodes(n.Operands...) }

// Opaque holds constructs without a dedicated variant, including syntax
// error regions recovered by the parser.
type Opaque struct {
	base
	Label Kind
	Parts []Node
}

func (n *Opaque) Kind() Kind { return n.Label }
func (n *Opaque) Children() []Node { return nodes(n.Parts...) }
