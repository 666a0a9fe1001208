package dirty

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTrackerObserve(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.js", "let a = 1;")
	tracker := New("")

	pending, err := tracker.Observe(file)
	require.NoError(t, err)
	assert.True(t, pending, "new file is pending")
	assert.Equal(t, []string{file}, tracker.Pending())

	tracker.Settle([]string{file})
	assert.Empty(t, tracker.Pending())

	pending, err = tracker.Observe(file)
	require.NoError(t, err)
	assert.False(t, pending, "unchanged file stays settled")

	writeFile(t, dir, "a.js", "let a = 2;")
	pending, err = tracker.Observe(file)
	require.NoError(t, err)
	assert.True(t, pending, "edited file is pending again")

	_, err = tracker.Observe(filepath.Join(dir, "missing.js"))
	assert.Error(t, err)
}

func TestTrackerPendingUntilSettled(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.js", "a;")
	b := writeFile(t, dir, "b.js", "b;")
	tracker := New("")
	for _, p := range []string{b, a} {
		_, err := tracker.Observe(p)
		require.NoError(t, err)
	}

	// Observing again before a rebuild keeps the mark.
	pending, err := tracker.Observe(a)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.Equal(t, []string{a, b}, tracker.Pending())

	tracker.Settle([]string{a, filepath.Join(dir, "unknown.js")})
	assert.Equal(t, []string{b}, tracker.Pending())
}

func TestTrackerForget(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "top.js", "t;")
	lib := filepath.Join(dir, "lib")
	x := writeFile(t, dir, "lib/x.js", "x;")
	y := writeFile(t, dir, "lib/deep/y.js", "y;")
	sibling := writeFile(t, dir, "library.js", "l;")

	tracker := New("")
	for _, p := range []string{top, x, y, sibling} {
		_, err := tracker.Observe(p)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		path   string
		covers bool
		gone   []string
	}{
		{name: "unknown", path: filepath.Join(dir, "nope"), covers: false},
		{name: "directory", path: lib, covers: true, gone: []string{y, x}},
		{name: "directory again", path: lib, covers: false},
		{name: "file", path: top, covers: true, gone: []string{top}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.covers, tracker.Covers(tc.path))
			assert.ElementsMatch(t, tc.gone, tracker.Forget(tc.path))
		})
	}

	assert.Equal(t, []string{sibling}, tracker.Pending(), "a name sharing the prefix survives")
}

func TestTrackerSaveLoad(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	a := writeFile(t, dir, "a.js", "a;")
	b := writeFile(t, dir, "b.js", "b;")

	tracker := New(cacheDir)
	for _, p := range []string{a, b} {
		_, err := tracker.Observe(p)
		require.NoError(t, err)
	}
	tracker.Settle([]string{a})
	require.NoError(t, tracker.Save())
	assert.FileExists(t, filepath.Join(cacheDir, StateFile))

	loaded := New(cacheDir)
	require.NoError(t, loaded.Load())
	assert.Equal(t, []string{b}, loaded.Pending())

	pending, err := loaded.Observe(a)
	require.NoError(t, err)
	assert.False(t, pending, "hash survives a restart")
}

func TestTrackerLoadEdgeCases(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, New(filepath.Join(dir, "nothing")).Load())
	assert.NoError(t, New("").Load())
	assert.NoError(t, New("").Save())

	writeFile(t, dir, "bad/"+StateFile, "not json")
	assert.Error(t, New(filepath.Join(dir, "bad")).Load())
}
