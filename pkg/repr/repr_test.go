package repr

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/l3aro/jspdg/pkg/partition"
	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphOf(spans ...[2]int) *pdg.Graph {
	g := &pdg.Graph{}
	for i, s := range spans {
		g.Nodes = append(g.Nodes, pdg.Node{ID: i, Kind: "ExpressionStatement", Start: s[0], End: s[1], Size: s[1] - s[0]})
	}
	return g
}

func TestBuildOrdersBySpan(t *testing.T) {
	src := "a();\nb();\nc();"
	g := graphOf([2]int{10, 14}, [2]int{0, 4}, [2]int{5, 9}, [2]int{3, 3})
	parts := []partition.Part{{PartID: 7, Nodes: []int{0, 1, 2, 3}}}

	slices := Build("dir/app.js", src, g, parts, Options{Label: "no"})
	require.Len(t, slices, 1)

	s := slices[0]
	assert.Equal(t, "app-p7", s.ID)
	assert.Equal(t, 7, s.PartID)
	assert.Equal(t, "no", s.Label)
	assert.Equal(t, "a();"+Separator+"b();"+Separator+"c();", s.Text)
	assert.Equal(t, []int{1, 2, 0}, s.Nodes)
	assert.Equal(t, [][2]int{{0, 4}, {5, 9}, {10, 14}}, s.Ranges)
	assert.Equal(t, Meta{File: "app.js", MaxChars: DefaultMaxChars}, s.Meta)
}

func TestBuildBudget(t *testing.T) {
	src := strings.Repeat("x", 40) + strings.Repeat("é", 40)
	g := graphOf([2]int{0, 40}, [2]int{40, 120})
	parts := []partition.Part{{PartID: 0, Nodes: []int{0, 1}}}

	sepLen := len([]rune(Separator))
	budget := 40 + sepLen + 10

	slices := Build("a.js", src, g, parts, Options{MaxChars: budget})
	require.Len(t, slices, 1)
	s := slices[0]

	assert.Equal(t, strings.Repeat("x", 40)+Separator+strings.Repeat("é", 10), s.Text)
	assert.Equal(t, [][2]int{{0, 40}, {40, 60}}, s.Ranges)
	assert.Equal(t, []int{0, 1}, s.Nodes)

	// A budget smaller than the first fragment still yields its prefix.
	slices = Build("a.js", src, g, parts, Options{MaxChars: 5})
	require.Len(t, slices, 1)
	assert.Equal(t, "xxxxx", slices[0].Text)
}

func TestBuildSkipsEmptyParts(t *testing.T) {
	g := graphOf([2]int{2, 2})
	parts := []partition.Part{{PartID: 0, Nodes: []int{0}}, {PartID: 1, Nodes: []int{42}}}

	assert.Empty(t, Build("a.js", "abc", g, parts, Options{}))
}

func TestBuildStripComments(t *testing.T) {
	src := "a(); // one\nb(); /* two */"
	g := graphOf([2]int{0, 11}, [2]int{12, len(src)})
	parts := []partition.Part{{PartID: 0, Nodes: []int{0, 1}}}

	s := Build("a.js", src, g, parts, Options{StripComments: true})[0]
	assert.NotContains(t, s.Text, "one")
	assert.NotContains(t, s.Text, "two")
	assert.True(t, strings.HasPrefix(s.Text, "a();"))
	assert.True(t, s.Meta.StripComments)
}

func TestWriteJSONL(t *testing.T) {
	src := "let a = 1;\nif (a) { a = 2; }\nconsole.log(a < 3);"
	g, err := pdg.Extract(context.Background(), []byte(src), pdg.DefaultOptions())
	require.NoError(t, err)
	parts, err := partition.Partition(context.Background(), g, partition.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, Build("t.js", src, g, parts, Options{Label: "yes"})))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		for _, key := range []string{"id", "part_id", "label", "text", "nodes", "ranges", "meta"} {
			assert.Contains(t, rec, key)
		}
		assert.Equal(t, "yes", rec["label"])
	}
	assert.Contains(t, buf.String(), "a < 3")
}

func TestBuildSkipsDirectiveLine(t *testing.T) {
	src := "#!/usr/bin/env node\nlet x = 1;\nx;\n"
	stripped := "let x = 1;\nx;\n"
	g, err := pdg.Extract(context.Background(), []byte(src), pdg.DefaultOptions())
	require.NoError(t, err)
	parts, err := partition.Partition(context.Background(), g, partition.DefaultOptions())
	require.NoError(t, err)

	slices := Build("cli.js", src, g, parts, Options{})
	require.NotEmpty(t, slices)

	var texts []string
	for _, s := range slices {
		assert.NotContains(t, s.Text, "#!")
		for i, r := range s.Ranges {
			assert.Equal(t, stripped[r[0]:r[1]], strings.Split(s.Text, Separator)[i])
		}
		texts = append(texts, s.Text)
	}
	all := strings.Join(texts, Separator)
	assert.Contains(t, all, "let x = 1;")
	assert.Contains(t, all, "x;")
}

func TestDefaultPaths(t *testing.T) {
	assert.Equal(t, Paths{
		Graph: "src/app.pdg.json",
		Parts: "src/app.part.json",
		Out:   "src/app.slices.jsonl",
	}, DefaultPaths("src/app.js"))
}
