package syntaxcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/l3aro/jspdg/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		valid bool
	}{
		{"declaration", "var a = 1;", true},
		{"function", "function f(x) { return x * 2; }\nf(3);", true},
		{"empty", "", true},
		{"unbalanced", "function f( {", false},
		{"stray token", "let a = ;", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(context.Background(), tt.src, 0)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrTimeout)
			}
		})
	}
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Check(ctx, "var a = 1;", 0)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestClean(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"good.js":               "var a = 1;",
		"lib/bad.js":            "function (",
		"notes.txt":             "not a script (",
		"node_modules/dep/x.js": "function (",
	})

	report, err := Clean(context.Background(), root, Options{Workers: 2, Scanner: scanner.DefaultOptions()})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Invalid, 1)
	assert.Equal(t, "lib/bad.js", report.Invalid[0].Path)
	assert.False(t, report.Invalid[0].Deleted)
	assert.FileExists(t, filepath.Join(root, "lib/bad.js"))

	report, err = Clean(context.Background(), root, Options{Delete: true, Scanner: scanner.DefaultOptions()})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted())
	assert.NoFileExists(t, filepath.Join(root, "lib/bad.js"))
	assert.FileExists(t, filepath.Join(root, "good.js"))
	assert.FileExists(t, filepath.Join(root, "node_modules/dep/x.js"))
}

func TestCleanNotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.js")
	require.NoError(t, os.WriteFile(file, []byte("x;"), 0644))

	_, err := Clean(context.Background(), file, Options{})
	assert.Error(t, err)

	_, err = Clean(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)
}
