package pdg

import (
	"context"
	"testing"

	"github.com/l3aro/jspdg/pkg/jsast"
	"github.com/l3aro/jspdg/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstExpression parses src and returns the expression of its first
// statement, which must be an expression statement.
func firstExpression(t *testing.T, src string) jsast.Node {
	t.Helper()
	res, err := jsast.Parse(context.Background(), source.Normalize(src), src, jsast.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Program.Body)
	stmt, ok := res.Program.Body[0].(*jsast.ExpressionStatement)
	require.True(t, ok, "first statement is %T", res.Program.Body[0])
	return stmt.Expression
}

func TestUseCollectorMemoizes(t *testing.T) {
	expr := firstExpression(t, "a + b * c;")
	u := newUseCollector(DefaultMaxUses)

	first := u.collect(expr)
	require.Equal(t, []string{"a", "b", "c"}, first)

	second := u.collect(expr)
	require.Len(t, second, len(first))
	assert.True(t, &first[0] == &second[0], "second call returns the stored slice")
}

func TestUseCollectorReadsMemoBeforeWalking(t *testing.T) {
	expr := firstExpression(t, "a + b;")
	u := newUseCollector(DefaultMaxUses)
	u.memo[expr.ID()] = []string{"seeded"}

	assert.Equal(t, []string{"seeded"}, u.collect(expr))
}

func TestUseCollectorSkipsLiteralContainers(t *testing.T) {
	src := "f([x], {k: y}, `${z}`, w);"

	t.Run("collector", func(t *testing.T) {
		u := newUseCollector(DefaultMaxUses)
		assert.Equal(t, []string{"f", "w"}, u.collect(firstExpression(t, src)))
	})

	t.Run("graph", func(t *testing.T) {
		g := extract(t, src, DefaultOptions())
		require.Len(t, g.Nodes, 1)

		var names []string
		for _, e := range g.Edges {
			require.Equal(t, DepTypeData, e.Kind)
			assert.Equal(t, g.Nodes[0].ID, e.Src)
			assert.Equal(t, g.Nodes[0].ID, e.Dst)
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"f", "w"}, names)
	})
}

func TestUseCollectorLimit(t *testing.T) {
	u := newUseCollector(2)
	assert.Equal(t, []string{"a", "b"}, u.collect(firstExpression(t, "a(b, c, d);")))
}
