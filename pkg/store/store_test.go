package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite/sqlitex"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graphs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func extract(t *testing.T, src string) *pdg.Graph {
	t.Helper()
	g, err := pdg.Extract(context.Background(), []byte(src), pdg.DefaultOptions())
	require.NoError(t, err)
	return g
}

func TestWriteReadGraph(t *testing.T) {
	s := openStore(t)
	g := extract(t, "let x = 1;\nfunction f(a) { return a + x; }\nf(x);")

	require.NoError(t, s.WriteGraph("src/a.js", g))

	got, err := s.ReadGraph("src/a.js")
	require.NoError(t, err)
	assert.Equal(t, g.Nodes, got.Nodes)
	assert.Equal(t, g.Edges, got.Edges)

	_, err = s.ReadGraph("missing.js")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteGraphReplaces(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.WriteGraph("a.js", extract(t, "a; b; c;")))
	replacement := extract(t, "y;")
	require.NoError(t, s.WriteGraph("a.js", replacement))
	require.NoError(t, s.WriteGraph("b.js", extract(t, "z;")))

	got, err := s.ReadGraph("a.js")
	require.NoError(t, err)
	assert.Equal(t, replacement.Nodes, got.Nodes)

	files, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "b.js"}, files)

	report, err := s.Validate()
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, int64(2), report.Files)
	assert.Equal(t, int64(2), report.Nodes)
	assert.Equal(t, int64(2), report.Edges)
	assert.Equal(t, int64(2), report.NodesByType["ExpressionStatement"])
	assert.Equal(t, int64(2), report.EdgesByType["data"])
}

func TestValidateFindsOrphans(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.WriteGraph("a.js", extract(t, "y;")))

	require.NoError(t, sqlitex.Execute(s.conn,
		"INSERT INTO edges (file_id, seq, src, dst, type) VALUES (1, 99, 0, 42, 'control')", nil))

	report, err := s.Validate()
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.OrphanEdges)
	assert.False(t, report.OK())
}

func TestWriteGraphsAndDelete(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.WriteGraphs(map[string]*pdg.Graph{
		"b.js": extract(t, "b;"),
		"a.js": extract(t, "let a = 1; a;"),
	}))
	files, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "b.js"}, files)

	require.NoError(t, s.DeleteGraph("a.js"))
	require.NoError(t, s.DeleteGraph("never-stored.js"))

	_, err = s.ReadGraph("a.js")
	assert.ErrorIs(t, err, ErrNotFound)

	report, err := s.Validate()
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Files)
	assert.True(t, report.OK())
}
