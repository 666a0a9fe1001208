package partition

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id, size int, snippet string) pdg.Node {
	return pdg.Node{ID: id, Kind: "ExpressionStatement", Start: id * 10, End: id*10 + size, Snippet: snippet, Size: size}
}

func ctrl(s, d int) pdg.Edge { return pdg.Edge{Src: s, Dst: d, Kind: pdg.DepTypeControl} }
func data(s, d int) pdg.Edge { return pdg.Edge{Src: s, Dst: d, Kind: pdg.DepTypeData, Name: "v"} }

// twoTriangles has two tightly bound statement groups joined by one data edge.
func twoTriangles(size int) *pdg.Graph {
	g := &pdg.Graph{}
	for i := 0; i < 6; i++ {
		g.Nodes = append(g.Nodes, node(i, size, "s"+string(rune('0'+i))))
	}
	g.Edges = []pdg.Edge{
		ctrl(0, 1), ctrl(1, 2), ctrl(0, 2),
		ctrl(3, 4), ctrl(4, 5), ctrl(3, 5),
		data(2, 3),
	}
	return g
}

func nodeSets(parts []Part) [][]int {
	out := make([][]int, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.Nodes)
	}
	return out
}

func TestPartitionSplitsCommunities(t *testing.T) {
	parts, err := Partition(context.Background(), twoTriangles(50), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}}, nodeSets(parts))
	assert.Equal(t, 0, parts[0].PartID)
	assert.Equal(t, 1, parts[1].PartID)
	assert.Equal(t, 150, parts[0].ASTSize)
	assert.Equal(t, "s0 ; s1 ; s2", parts[0].Snippet)
}

func TestPartitionUnderBudget(t *testing.T) {
	parts, err := Partition(context.Background(), twoTriangles(10), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4, 5}}, nodeSets(parts))
	assert.Equal(t, 60, parts[0].ASTSize)
}

func TestPartitionComponents(t *testing.T) {
	g := &pdg.Graph{
		Nodes: []pdg.Node{node(0, 5, "a"), node(1, 5, "b"), node(2, 5, "c"), node(3, 5, "d")},
		Edges: []pdg.Edge{
			data(0, 0), // self edges never connect
			ctrl(1, 3),
			data(3, 1),
		},
	}
	parts, err := Partition(context.Background(), g, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0}, {1, 3}, {2}}, nodeSets(parts))
}

func TestPartitionWeights(t *testing.T) {
	opts := DefaultOptions()
	opts.WData = 0

	// With data edges dropped the triangles are separate components even
	// under budget.
	parts, err := Partition(context.Background(), twoTriangles(10), opts)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}}, nodeSets(parts))
}

func TestPartitionMaxDepth(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 1

	// Depth one allows a single split; the triangles stay whole.
	parts, err := Partition(context.Background(), twoTriangles(500), opts)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}}, nodeSets(parts))
}

func TestPartitionSnippetTruncation(t *testing.T) {
	long := strings.Repeat("é", 200)
	g := &pdg.Graph{Nodes: []pdg.Node{node(0, 1, long)}}

	parts, err := Partition(context.Background(), g, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, strings.Repeat("é", DefaultSnippetLen), parts[0].Snippet)
}

func TestPartitionEmptyAndCancelled(t *testing.T) {
	parts, err := Partition(context.Background(), &pdg.Graph{}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, parts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Partition(ctx, twoTriangles(50), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPartitionExtractedFixture(t *testing.T) {
	src, err := os.ReadFile("../../testdata/js/sample.js")
	require.NoError(t, err)
	g, err := pdg.Extract(context.Background(), src, pdg.DefaultOptions())
	require.NoError(t, err)

	first, err := Partition(context.Background(), g, DefaultOptions())
	require.NoError(t, err)
	second, err := Partition(context.Background(), g, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	seen := make(map[int]bool)
	for _, p := range first {
		for _, id := range p.Nodes {
			assert.False(t, seen[id], "node %d in two parts", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, len(g.Nodes))
}

func TestLouvainModularityNeverDrops(t *testing.T) {
	g := build(twoTriangles(1), DefaultOptions())
	m := g.totalWeight()
	assert.Equal(t, 19.0, m)

	labels := louvain(g, 1.0)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, labels)
	assert.Greater(t, g.modularity(labels, 1.0, m), g.modularity(identity(6), 1.0, m))
}
