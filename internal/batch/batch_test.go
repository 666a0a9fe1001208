package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/l3aro/jspdg/internal/scanner"
	"github.com/l3aro/jspdg/pkg/cache"
	"github.com/l3aro/jspdg/pkg/emit"
	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/l3aro/jspdg/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.js":                "let a = 1;\nlet b = a + 1;\n",
		"lib/b.js":            "function f(x) { if (x) { return x; } }\nf(2);\n",
		"node_modules/dep.js": "var dep = 1;",
		"notes.txt":           "not a script",
	})
	return root
}

func testOptions() Options {
	return Options{
		PDG:     pdg.DefaultOptions(),
		Format:  emit.FormatJSON,
		Workers: 4,
		Scanner: scanner.DefaultOptions(),
	}
}

func TestRunWritesNextToSources(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := newTree(t)
	var calls []int
	opts := testOptions()
	opts.Progress = func(done, total int) {
		assert.Equal(t, 2, total)
		calls = append(calls, done)
	}

	report, err := Run(context.Background(), root, opts)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.Built())
	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, []int{1, 2}, calls)

	assert.Equal(t, "a.js", report.Results[0].Path)
	assert.Equal(t, "lib/b.js", report.Results[1].Path)

	for _, res := range report.Results {
		assert.Empty(t, res.Err)
		assert.Positive(t, res.Nodes)

		f, err := os.Open(res.Output)
		require.NoError(t, err)
		g, err := emit.Decode(f, emit.FormatJSON)
		f.Close()
		require.NoError(t, err)
		assert.Len(t, g.Nodes, res.Nodes)
		assert.Len(t, g.Edges, res.Edges)
	}

	assert.FileExists(t, filepath.Join(root, "a.pdg.json"))
	assert.FileExists(t, filepath.Join(root, "lib", "b.pdg.json"))
	assert.NoFileExists(t, filepath.Join(root, "node_modules", "dep.pdg.json"))
}

func TestRunOutDir(t *testing.T) {
	root := newTree(t)
	out := t.TempDir()

	opts := testOptions()
	opts.Format = emit.FormatMsgpack
	opts.OutDir = out

	_, err := Run(context.Background(), root, opts)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "a.pdg.msgpack"))
	assert.FileExists(t, filepath.Join(out, "lib", "b.pdg.msgpack"))
	assert.NoFileExists(t, filepath.Join(root, "a.pdg.msgpack"))
}

func TestRunUsesCache(t *testing.T) {
	root := newTree(t)
	opts := testOptions()
	opts.Cache = cache.New(cache.Options{MaxSize: 10})

	first, err := Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits())

	second, err := Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheHits())
	for i := range second.Results {
		assert.Equal(t, first.Results[i].Nodes, second.Results[i].Nodes)
		assert.Equal(t, first.Results[i].Edges, second.Results[i].Edges)
	}

	// A different cap is a different key.
	opts.PDG.Limits.MaxNodes = 1
	third, err := Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, third.CacheHits())
}

func TestRunIntoStore(t *testing.T) {
	root := newTree(t)
	s, err := store.Open(filepath.Join(t.TempDir(), "graphs.db"))
	require.NoError(t, err)
	defer s.Close()

	opts := testOptions()
	opts.Store = s

	report, err := Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Built())
	assert.NoFileExists(t, filepath.Join(root, "a.pdg.json"))

	files, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "lib/b.js"}, files)

	g, err := s.ReadGraph("a.js")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, report.Results[0].Nodes)

	v, err := s.Validate()
	require.NoError(t, err)
	assert.True(t, v.OK())
}

func TestBuildRecordsFailures(t *testing.T) {
	root := newTree(t)
	files := []scanner.FileInfo{
		{Path: "a.js", FullPath: filepath.Join(root, "a.js")},
		{Path: "gone.js", FullPath: filepath.Join(root, "gone.js")},
	}

	report, err := Build(context.Background(), files, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Built())
	assert.Equal(t, 1, report.Failed())
	assert.NotEmpty(t, report.Results[1].Err)
	assert.Empty(t, report.Results[1].Output)
}

func TestBuildAllFailed(t *testing.T) {
	files := []scanner.FileInfo{
		{Path: "gone.js", FullPath: filepath.Join(t.TempDir(), "gone.js")},
	}
	report, err := Build(context.Background(), files, testOptions())
	assert.True(t, errors.Is(err, ErrAllFailed))
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Failed())
}

func TestBuildEmpty(t *testing.T) {
	report, err := Build(context.Background(), nil, testOptions())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestBuildCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := newTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, root, testOptions())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunRejectsFile(t *testing.T) {
	root := newTree(t)
	_, err := Run(context.Background(), filepath.Join(root, "a.js"), testOptions())
	assert.Error(t, err)
}
