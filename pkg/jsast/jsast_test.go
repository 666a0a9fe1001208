package jsast

import (
	"context"
	"errors"
	"testing"

	"github.com/l3aro/jspdg/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Parse(context.Background(), source.Normalize(src), src, Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Program)
	return res
}

func kinds(ns []Node) []Kind {
	out := make([]Kind, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Kind())
	}
	return out
}

func TestParseStatementKinds(t *testing.T) {
	src := `var a = 1;
let b;
if (a) { b = a; } else b = 0;
for (;;) {}
while (a) a--;
do {} while (b);
try { f(); } catch (e) {} finally {}
switch (a) { case 1: break; default: }
out: for (const k in o) continue out;
function g(x, ...rest) { return x; }
throw a;
debugger;
;
with (o) {}
`
	res := parse(t, src)
	assert.False(t, res.Fallback)

	assert.Equal(t, []Kind{
		KindVariableDeclaration,
		KindVariableDeclaration,
		KindIfStatement,
		KindForStatement,
		KindWhileStatement,
		KindDoWhileStatement,
		KindTryStatement,
		KindSwitchStatement,
		KindLabeledStatement,
		KindFunctionDeclaration,
		KindThrowStatement,
		KindDebuggerStatement,
		KindEmptyStatement,
		KindWithStatement,
	}, kinds(res.Program.Body))
}

func TestParseIDsArePreOrder(t *testing.T) {
	res := parse(t, "function f(a, {b, c: [d]}) { const x = a ? b : d; return () => x; }")

	seen := make(map[int]bool)
	var check func(n Node)
	check = func(n Node) {
		require.False(t, seen[n.ID()], "duplicate id %d", n.ID())
		seen[n.ID()] = true
		for _, c := range n.Children() {
			assert.Greater(t, c.ID(), n.ID())
			check(c)
		}
	}
	check(res.Program)

	assert.Equal(t, 0, res.Program.ID())
	assert.Equal(t, len(seen), res.Count)
}

func TestParseSpansAreOrdered(t *testing.T) {
	src := "let x = [1, 2];\nx.push(3);"
	res := parse(t, src)

	var check func(n Node)
	check = func(n Node) {
		span := n.Span()
		assert.LessOrEqual(t, span.Start, span.End)
		for _, c := range n.Children() {
			cs := c.Span()
			assert.GreaterOrEqual(t, cs.Start, span.Start)
			assert.LessOrEqual(t, cs.End, span.End)
			check(c)
		}
	}
	check(res.Program)
}

func TestParseForOfDeclaration(t *testing.T) {
	res := parse(t, "for (const [k, v] of entries) use(k, v);")
	require.Len(t, res.Program.Body, 1)

	loop, ok := res.Program.Body[0].(*ForEachStatement)
	require.True(t, ok)
	assert.True(t, loop.Of)
	assert.Equal(t, KindForOfStatement, loop.Kind())

	decl, ok := loop.Left.(*VariableDeclaration)
	require.True(t, ok)
	assert.Equal(t, "const", decl.DeclKind)
	require.Len(t, decl.Declarations, 1)
	_, ok = decl.Declarations[0].Target.(*ArrayPattern)
	assert.True(t, ok)
	assert.Equal(t, KindExpressionStatement, loop.Body.Kind())
}

func TestParseBindingPatterns(t *testing.T) {
	res := parse(t, "const {a, b: [c], d = 1, ...e} = o;")
	decl := res.Program.Body[0].(*VariableDeclaration)
	pattern, ok := decl.Declarations[0].Target.(*ObjectPattern)
	require.True(t, ok)
	require.Len(t, pattern.Properties, 4)

	assert.Equal(t, "a", pattern.Properties[0].(*Property).Value.(*Identifier).Name)
	_, ok = pattern.Properties[1].(*Property).Value.(*ArrayPattern)
	assert.True(t, ok)
	_, ok = pattern.Properties[2].(*Property).Value.(*AssignmentPattern)
	assert.True(t, ok)
	_, ok = pattern.Properties[3].(*RestElement)
	assert.True(t, ok)
}

func TestParseAssignmentOperators(t *testing.T) {
	res := parse(t, "x = 1; y += x;")
	require.Len(t, res.Program.Body, 2)

	plain := res.Program.Body[0].(*ExpressionStatement).Expression.(*AssignmentExpression)
	assert.Equal(t, "=", plain.Operator)
	compound := res.Program.Body[1].(*ExpressionStatement).Expression.(*AssignmentExpression)
	assert.Equal(t, "+=", compound.Operator)
}

func TestParseExpressionLabels(t *testing.T) {
	tests := []struct {
		src  string
		want Kind
	}{
		{src: "a && b;", want: "LogicalExpression"},
		{src: "a + b;", want: "BinaryExpression"},
		{src: "f(a);", want: "CallExpression"},
		{src: "a.b;", want: "MemberExpression"},
		{src: "a[0];", want: "MemberExpression"},
		{src: "a ? b : c;", want: "ConditionalExpression"},
		{src: "new A();", want: "NewExpression"},
		{src: "!a;", want: "UnaryExpression"},
		{src: "a++;", want: "UpdateExpression"},
		{src: "/x;/;", want: KindRegExpLiteral},
		{src: "'s';", want: KindLiteral},
		{src: "(a);", want: KindIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			res, err := Parse(context.Background(), &source.Normalized{Text: tt.src, Map: source.IdentityMap(len(tt.src))}, tt.src, Options{})
			require.NoError(t, err)
			stmt := res.Program.Body[0].(*ExpressionStatement)
			assert.Equal(t, tt.want, stmt.Expression.Kind())
		})
	}
}

func TestParseFallback(t *testing.T) {
	src := "s = \"a;b\";"
	res := parse(t, src)

	assert.True(t, res.Fallback)
	assert.False(t, res.Recovered)
	assert.Equal(t, source.IdentityMap(len(src)), res.Map)
}

func TestParseRecoveredFallback(t *testing.T) {
	src := "let a = 1;\n)\nlet b = a;"
	res := parse(t, src)

	assert.True(t, res.Fallback)
	assert.True(t, res.Recovered)
	assert.NotEmpty(t, res.Program.Body)
}

func TestParseUnparseable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, source.Normalize("a;"), "a;", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparseable))
}

func TestKindClassification(t *testing.T) {
	tests := []struct {
		kind      Kind
		statement bool
		atomic    bool
		function  bool
	}{
		{kind: KindIfStatement, statement: true},
		{kind: KindBlockStatement, statement: true},
		{kind: KindVariableDeclaration, statement: true},
		{kind: KindFunctionDeclaration, statement: true, function: true},
		{kind: KindFunctionExpression, function: true},
		{kind: KindArrowFunctionExpression, function: true},
		{kind: KindClassDeclaration},
		{kind: KindArrayExpression, atomic: true},
		{kind: KindTemplateLiteral, atomic: true},
		{kind: KindRegExpLiteral, atomic: true},
		{kind: KindIdentifier},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.statement, tt.kind.IsStatement())
			assert.Equal(t, tt.atomic, tt.kind.IsAtomic())
			assert.Equal(t, tt.function, tt.kind.IsFunction())
		})
	}
}

func TestCamel(t *testing.T) {
	assert.Equal(t, "UpdateExpression", camel("update_expression"))
	assert.Equal(t, "JsxElement", camel("jsx_element"))
	assert.Equal(t, "Import", camel("import"))
}
