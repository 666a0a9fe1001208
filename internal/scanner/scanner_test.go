package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0644))
	}
}

func paths(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestScannerScan(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.js":                  "let a = 1;",
		"lib/helper.js":            "function h() {}",
		"README.md":                "# Test",
		"src/app.py":               "print('hello')",
		"src/index.JS":             "console.log('hi')",
		".hidden/file.js":          "x;",
		"node_modules/pkg/main.js": "module.exports = {}",
		".git/hooks/pre-commit.js": "y;",
	})

	results, err := Scan(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"lib/helper.js", "main.js", "src/index.JS"}, paths(results))
	for _, f := range results {
		assert.True(t, filepath.IsAbs(f.FullPath))
		assert.Positive(t, f.Size)
	}
}

func TestScannerWithIgnoreFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		IgnoreFileName:        "# Ignore test files\n*.test.js\n# Ignore build directory\nbuild/\nsecret.js\n!keep.test.js\n",
		"app.js":              "a;",
		"app.test.js":         "b;",
		"keep.test.js":        "c;",
		"build/output.js":     "d;",
		"secret.js":           "e;",
		"public/index.js":     "f;",
		"nested/.jspdgignore": "local.js\n",
		"nested/local.js":     "g;",
		"nested/other.js":     "h;",
	})

	results, err := Scan(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"app.js", "keep.test.js", "nested/other.js", "public/index.js"}, paths(results))
}

func TestScannerSkipHidden(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"visible.js":      "a;",
		".hidden/file.js": "b;",
		".eslintrc.js":    "c;",
	})

	opts := DefaultOptions()
	results, err := New(opts).Scan(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.js"}, paths(results))

	opts.SkipHidden = false
	results, err = New(opts).Scan(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{".eslintrc.js", ".hidden/file.js", "visible.js"}, paths(results))
}

func TestScannerIncludeExclude(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"src/a.js":         "a;",
		"src/a.min.js":     "b;",
		"src/deep/b.js":    "c;",
		"test/c.js":        "d;",
		"src/lib/data.mjs": "e;",
	})

	opts := DefaultOptions()
	opts.Include = []string{"src/**"}
	opts.Exclude = []string{"**/*.min.js"}
	s := New(opts)

	results, err := s.Scan(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.js", "src/deep/b.js"}, paths(results))

	assert.True(t, s.Accepts("src/x.js"))
	assert.False(t, s.Accepts("test/x.js"))
	assert.False(t, s.Accepts("src/x.min.js"))
	assert.False(t, s.Accepts("src/x.ts"))

	opts.Extensions = []string{".js", ".mjs"}
	results, err = New(opts).Scan(tmpDir)
	require.NoError(t, err)
	assert.Contains(t, paths(results), "src/lib/data.mjs")
}

func TestIgnorePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		match   bool
	}{
		// Simple patterns
		{"*.js", "file.js", true},
		{"*.js", "dir/file.js", true},
		{"*.js", "file.txt", false},
		{"build/", "build/file.js", true},
		{"build/", "other/build/file.js", true},
		{"build/", "builder.js", false},

		// Anchored patterns
		{"/build/", "build/file.js", true},
		{"/build/", "src/build/file.js", false},

		// Glob patterns
		{"*.test.js", "app.test.js", true},
		{"*.test.js", "deep/app.test.js", true},
		{"src/*.js", "src/app.js", true},
		{"src/*.js", "src/deep/app.js", false},

		// Double asterisk
		{"**/test/**", "test/file.js", true},
		{"**/test/**", "src/test/file.js", true},
		{"**/test/**", "src/deep/test/file.js", true},
		{"**/test/**", "testing/file.js", false},

		// Question mark
		{"file?.js", "file1.js", true},
		{"file?.js", "file12.js", false},

		// Negation still matches; the caller flips it
		{"!*.js", "file.js", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.match, ParseIgnorePattern(tt.pattern).Match(tt.path))
		})
	}
}

func TestScannerSkipDirAndAccepts(t *testing.T) {
	s := New(DefaultOptions())
	assert.True(t, s.SkipDir("node_modules"))
	assert.True(t, s.SkipDir(".cache"))
	assert.False(t, s.SkipDir("src"))

	assert.True(t, s.Accepts("src/app.js"))
	assert.False(t, s.Accepts("src/app.pdg.json"))
}
