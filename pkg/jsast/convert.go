package jsast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// converter lowers a tree-sitter JavaScript parse into the closed node set.
// IDs are handed out in pre-order: a node's ID is taken before any of its
// descendants are converted.
type converter struct {
	src    []byte
	nextID int
}

func newConverter(src []byte) *converter {
	return &converter{src: src}
}

func (c *converter) baseOf(n *sitter.Node) base {
	return c.baseRange(n.StartByte(), n.EndByte())
}

func (c *converter) baseRange(start, end uint32) base {
	b := base{id: c.nextID, span: Range{Start: int(start), End: int(end)}}
	c.nextID++
	return b
}

// isTrivia reports grammar extras that carry no program semantics.
func isTrivia(t string) bool {
	switch t {
	case "comment", "hash_bang_line", "html_comment":
		return true
	}
	return false
}

// namedChildren returns the named, non-trivia children of n.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || isTrivia(child.Type()) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	children := namedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// field returns the named child stored under name, or nil.
func field(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	child := n.ChildByFieldName(name)
	if child == nil || !child.IsNamed() || isTrivia(child.Type()) {
		return nil
	}
	return child
}

// hasToken reports whether n has an anonymous child of the given type.
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Type() == tok {
			return true
		}
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() &&
		a.EndByte() == b.EndByte() &&
		a.Type() == b.Type()
}

func (c *converter) program(root *sitter.Node) *Program {
	p := &Program{base: c.baseOf(root)}
	p.Body = c.list(namedChildren(root))
	return p
}

func (c *converter) list(children []*sitter.Node) []Node {
	out := make([]Node, 0, len(children))
	for _, child := range children {
		if n := c.convert(child); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// convert dispatches on the grammar node type. It returns nil for trivia
// and for absent nodes.
func (c *converter) convert(n *sitter.Node) Node {
	if n == nil || !n.IsNamed() || isTrivia(n.Type()) {
		return nil
	}

	switch n.Type() {
	case "program":
		return c.program(n)
	case "expression_statement":
		s := &ExpressionStatement{base: c.baseOf(n)}
		s.Expression = c.convert(firstNamed(n))
		return s
	case "statement_block":
		return c.block(n)
	case "empty_statement":
		return &SimpleStatement{base: c.baseOf(n), Label: KindEmptyStatement}
	case "debugger_statement":
		return &SimpleStatement{base: c.baseOf(n), Label: KindDebuggerStatement}
	case "break_statement", "continue_statement":
		label := KindBreakStatement
		if n.Type() == "continue_statement" {
			label = KindContinueStatement
		}
		s := &SimpleStatement{base: c.baseOf(n), Label: label}
		s.Target = c.ident(field(n, "label"))
		return s
	case "if_statement":
		s := &IfStatement{base: c.baseOf(n)}
		s.Test = c.convert(field(n, "condition"))
		s.Consequent = c.convert(field(n, "consequence"))
		if alt := field(n, "alternative"); alt != nil {
			s.Alternate = c.convert(firstNamed(alt))
		}
		return s
	case "for_statement":
		s := &ForStatement{base: c.baseOf(n)}
		s.Init = c.clause(field(n, "initializer"))
		s.Test = c.clause(field(n, "condition"))
		s.Update = c.clause(field(n, "increment"))
		s.Body = c.convert(field(n, "body"))
		return s
	case "for_in_statement":
		return c.forEach(n)
	case "while_statement":
		s := &WhileStatement{base: c.baseOf(n)}
		s.Test = c.convert(field(n, "condition"))
		s.Body = c.convert(field(n, "body"))
		return s
	case "do_statement":
		s := &WhileStatement{base: c.baseOf(n), DoWhile: true}
		s.Body = c.convert(field(n, "body"))
		s.Test = c.convert(field(n, "condition"))
		return s
	case "return_statement", "throw_statement":
		label := KindReturnStatement
		if n.Type() == "throw_statement" {
			label = KindThrowStatement
		}
		s := &ArgumentStatement{base: c.baseOf(n), Label: label}
		s.Argument = c.convert(firstNamed(n))
		return s
	case "try_statement":
		return c.try(n)
	case "switch_statement":
		return c.switchStmt(n)
	case "labeled_statement":
		s := &LabeledStatement{base: c.baseOf(n)}
		s.Label = c.ident(field(n, "label"))
		s.Body = c.convert(field(n, "body"))
		return s
	case "with_statement":
		s := &WithStatement{base: c.baseOf(n)}
		s.Object = c.convert(field(n, "object"))
		s.Body = c.convert(field(n, "body"))
		return s
	case "variable_declaration":
		return c.declaration(n, "var")
	case "lexical_declaration":
		kind := "let"
		if k := n.ChildByFieldName("kind"); k != nil {
			kind = k.Type()
		} else if n.ChildCount() > 0 {
			kind = n.Child(0).Type()
		}
		return c.declaration(n, kind)
	case "function_declaration", "generator_function_declaration":
		return c.function(n, KindFunctionDeclaration)
	case "function", "function_expression", "generator_function":
		return c.function(n, KindFunctionExpression)
	case "arrow_function":
		return c.arrow(n)
	case "class_declaration":
		return c.class(n, KindClassDeclaration)
	case "class":
		return c.class(n, KindClassExpression)
	case "method_definition":
		return c.method(n)
	case "field_definition":
		m := &ClassMember{base: c.baseOf(n), Label: KindPropertyDefinition}
		m.Key = c.convert(field(n, "property"))
		m.Value = c.convert(field(n, "value"))
		return m
	case "class_static_block":
		o := &Opaque{base: c.baseOf(n), Label: "StaticBlock"}
		o.Parts = c.list(namedChildren(field(n, "body")))
		return o
	case "identifier", "property_identifier", "shorthand_property_identifier",
		"shorthand_property_identifier_pattern", "private_property_identifier",
		"statement_identifier", "undefined":
		return c.ident(n)
	case "string", "number", "true", "false", "null":
		return &Literal{base: c.baseOf(n), Label: KindLiteral, Raw: n.Content(c.src)}
	case "regex":
		return &Literal{base: c.baseOf(n), Label: KindRegExpLiteral, Raw: n.Content(c.src)}
	case "template_string":
		t := &Container{base: c.baseOf(n), Label: KindTemplateLiteral}
		for _, sub := range namedChildren(n) {
			if sub.Type() == "template_substitution" {
				t.Elements = append(t.Elements, c.list(namedChildren(sub))...)
			}
		}
		return t
	case "array":
		a := &Container{base: c.baseOf(n), Label: KindArrayExpression}
		a.Elements = c.list(namedChildren(n))
		return a
	case "object":
		o := &Container{base: c.baseOf(n), Label: KindObjectExpression}
		o.Elements = c.list(namedChildren(n))
		return o
	case "pair":
		p := &Property{base: c.baseOf(n)}
		p.Key = c.convert(field(n, "key"))
		p.Value = c.convert(field(n, "value"))
		return p
	case "parenthesized_expression":
		return c.convert(firstNamed(n))
	case "assignment_expression", "augmented_assignment_expression":
		a := &AssignmentExpression{base: c.baseOf(n), Operator: "="}
		if op := n.ChildByFieldName("operator"); op != nil {
			a.Operator = op.Type()
		}
		a.Left = c.convert(field(n, "left"))
		a.Right = c.convert(field(n, "right"))
		return a
	case "array_pattern":
		p := &ArrayPattern{base: c.baseOf(n)}
		p.Elements = c.list(namedChildren(n))
		return p
	case "object_pattern":
		return c.objectPattern(n)
	case "assignment_pattern":
		p := &AssignmentPattern{base: c.baseOf(n)}
		p.Left = c.convert(field(n, "left"))
		p.Right = c.convert(field(n, "right"))
		return p
	case "rest_pattern", "rest_parameter", "rest_element":
		r := &RestElement{base: c.baseOf(n)}
		r.Argument = c.convert(firstNamed(n))
		return r
	case "binary_expression":
		label := Kind("BinaryExpression")
		if op := n.ChildByFieldName("operator"); op != nil {
			switch op.Type() {
			case "&&", "||", "??":
				label = "LogicalExpression"
			}
		}
		return c.expression(n, label)
	case "call_expression":
		label := Kind("CallExpression")
		if args := n.ChildByFieldName("arguments"); args != nil && args.Type() == "template_string" {
			label = "TaggedTemplateExpression"
		}
		return c.expression(n, label)
	case "member_expression", "subscript_expression":
		return c.expression(n, "MemberExpression")
	case "ternary_expression":
		return c.expression(n, "ConditionalExpression")
	case "this":
		return c.expression(n, "ThisExpression")
	case "import_statement":
		return c.opaque(n, "ImportDeclaration")
	case "export_statement":
		if hasToken(n, "default") {
			return c.opaque(n, "ExportDefaultDeclaration")
		}
		return c.opaque(n, "ExportNamedDeclaration")
	case "ERROR":
		return c.opaque(n, KindError)
	}

	return c.expression(n, Kind(camel(n.Type())))
}

// clause converts a for-loop header part; an expression_statement wrapper
// there is grammar detail, not a statement of the program.
func (c *converter) clause(n *sitter.Node) Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "empty_statement":
		return nil
	case "expression_statement":
		return c.convert(firstNamed(n))
	}
	return c.convert(n)
}

func (c *converter) block(n *sitter.Node) *BlockStatement {
	if n == nil {
		return nil
	}
	b := &BlockStatement{base: c.baseOf(n)}
	b.Body = c.list(namedChildren(n))
	return b
}

func (c *converter) ident(n *sitter.Node) *Identifier {
	if n == nil {
		return nil
	}
	return &Identifier{base: c.baseOf(n), Name: n.Content(c.src)}
}

func (c *converter) opaque(n *sitter.Node, label Kind) *Opaque {
	o := &Opaque{base: c.baseOf(n), Label: label}
	o.Parts = c.list(namedChildren(n))
	return o
}

// expression builds a generic expression. Call arguments are flattened into
// the operand list the way ESTree stores them.
func (c *converter) expression(n *sitter.Node, label Kind) *Expression {
	e := &Expression{base: c.baseOf(n), Label: label}
	for _, child := range namedChildren(n) {
		if child.Type() == "arguments" {
			e.Operands = append(e.Operands, c.list(namedChildren(child))...)
			continue
		}
		if op := c.convert(child); op != nil {
			e.Operands = append(e.Operands, op)
		}
	}
	return e
}

func (c *converter) declaration(n *sitter.Node, kind string) *VariableDeclaration {
	d := &VariableDeclaration{base: c.baseOf(n), DeclKind: kind}
	for _, child := range namedChildren(n) {
		if child.Type() != "variable_declarator" {
			continue
		}
		v := &VariableDeclarator{base: c.baseOf(child)}
		v.Target = c.convert(field(child, "name"))
		v.Init = c.convert(field(child, "value"))
		d.Declarations = append(d.Declarations, v)
	}
	return d
}

// forEach converts for-in and for-of. A declaration in the header
// ("for (const k of ks)") has no node of its own in the grammar, so one is
// synthesized spanning the keyword through the binding.
func (c *converter) forEach(n *sitter.Node) *ForEachStatement {
	s := &ForEachStatement{base: c.baseOf(n)}

	var kindTok *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		switch child.Type() {
		case "var", "let", "const":
			if kindTok == nil {
				kindTok = child
			}
		case "of":
			s.Of = true
		}
	}

	left := field(n, "left")
	if kindTok != nil && left != nil {
		decl := &VariableDeclaration{
			base:     c.baseRange(kindTok.StartByte(), left.EndByte()),
			DeclKind: kindTok.Type(),
		}
		v := &VariableDeclarator{base: c.baseOf(left)}
		v.Target = c.convert(left)
		decl.Declarations = []*VariableDeclarator{v}
		s.Left = decl
	} else {
		s.Left = c.convert(left)
	}
	s.Right = c.convert(field(n, "right"))
	s.Body = c.convert(field(n, "body"))
	return s
}

func (c *converter) try(n *sitter.Node) *TryStatement {
	s := &TryStatement{base: c.baseOf(n)}
	s.Block = c.block(field(n, "body"))
	if h := field(n, "handler"); h != nil {
		cc := &CatchClause{base: c.baseOf(h)}
		cc.Param = c.convert(field(h, "parameter"))
		cc.Body = c.block(field(h, "body"))
		s.Handler = cc
	}
	if f := field(n, "finalizer"); f != nil {
		s.Finalizer = c.block(field(f, "body"))
	}
	return s
}

func (c *converter) switchStmt(n *sitter.Node) *SwitchStatement {
	s := &SwitchStatement{base: c.baseOf(n)}
	s.Discriminant = c.convert(field(n, "value"))
	for _, child := range namedChildren(field(n, "body")) {
		if child.Type() != "switch_case" && child.Type() != "switch_default" {
			continue
		}
		sc := &SwitchCase{base: c.baseOf(child)}
		value := field(child, "value")
		sc.Test = c.convert(value)
		for _, stmt := range namedChildren(child) {
			if sameNode(stmt, value) {
				continue
			}
			if conv := c.convert(stmt); conv != nil {
				sc.Consequent = append(sc.Consequent, conv)
			}
		}
		s.Cases = append(s.Cases, sc)
	}
	return s
}

func (c *converter) params(n *sitter.Node) []Node {
	if n == nil {
		return nil
	}
	return c.list(namedChildren(n))
}

func (c *converter) function(n *sitter.Node, label Kind) *Function {
	f := &Function{base: c.baseOf(n), Label: label}
	f.Name = c.ident(field(n, "name"))
	f.Params = c.params(field(n, "parameters"))
	f.Body = c.convert(field(n, "body"))
	return f
}

func (c *converter) arrow(n *sitter.Node) *Function {
	f := &Function{base: c.baseOf(n), Label: KindArrowFunctionExpression}
	if p := field(n, "parameter"); p != nil {
		f.Params = c.list([]*sitter.Node{p})
	} else {
		f.Params = c.params(field(n, "parameters"))
	}
	f.Body = c.convert(field(n, "body"))
	return f
}

func (c *converter) class(n *sitter.Node, label Kind) *Class {
	cl := &Class{base: c.baseOf(n), Label: label}
	cl.Name = c.ident(field(n, "name"))
	for _, child := range namedChildren(n) {
		if child.Type() == "class_heritage" {
			cl.SuperClass = c.convert(firstNamed(child))
		}
	}
	cl.Members = c.list(namedChildren(field(n, "body")))
	return cl
}

// method converts a method definition; its value is a function expression
// spanning the parameter list through the body, as in ESTree.
func (c *converter) method(n *sitter.Node) *ClassMember {
	m := &ClassMember{base: c.baseOf(n), Label: KindMethodDefinition}
	m.Key = c.convert(field(n, "name"))

	params, body := field(n, "parameters"), field(n, "body")
	fb := c.baseOf(n)
	if params != nil && body != nil {
		fb.span = Range{Start: int(params.StartByte()), End: int(body.EndByte())}
	}
	f := &Function{base: fb, Label: KindFunctionExpression}
	f.Params = c.params(params)
	f.Body = c.convert(body)
	m.Value = f
	return m
}

func (c *converter) objectPattern(n *sitter.Node) *ObjectPattern {
	p := &ObjectPattern{base: c.baseOf(n)}
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "pair_pattern":
			prop := &Property{base: c.baseOf(child)}
			prop.Key = c.convert(field(child, "key"))
			prop.Value = c.convert(field(child, "value"))
			p.Properties = append(p.Properties, prop)
		case "shorthand_property_identifier_pattern", "identifier":
			prop := &Property{base: c.baseOf(child)}
			prop.Key = c.ident(child)
			prop.Value = c.ident(child)
			p.Properties = append(p.Properties, prop)
		case "object_assignment_pattern":
			prop := &Property{base: c.baseOf(child)}
			left := field(child, "left")
			prop.Key = c.ident(left)
			ap := &AssignmentPattern{base: c.baseOf(child)}
			ap.Left = c.convert(left)
			ap.Right = c.convert(field(child, "right"))
			prop.Value = ap
			p.Properties = append(p.Properties, prop)
		default:
			if conv := c.convert(child); conv != nil {
				p.Properties = append(p.Properties, conv)
			}
		}
	}
	return p
}

// camel turns a grammar type such as "update_expression" into the ESTree
// style label "UpdateExpression".
func camel(t string) string {
	parts := strings.Split(t, "_")
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}
