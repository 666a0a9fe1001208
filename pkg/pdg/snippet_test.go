package pdg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line", "a = 1; // note", "a = 1; "},
		{"block", "a /* x */ = 1;", "a  = 1;"},
		{"multiline block", "a;/* one\ntwo */b;", "a;b;"},
		{"url kept", `u = "http://x.org";`, `u = "http://x.org";`},
		{"unterminated block", "a; /* cut", "a; "},
		{"line at start", "// lead\nx;", "\nx;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripComments(tt.in))
		})
	}
}

func TestBlankComments(t *testing.T) {
	in := "a; // c\n/* é\n */ b;"
	out := BlankComments(in)

	assert.Len(t, out, len(in))
	assert.Equal(t, "a;     \n     \n    b;", out)
	assert.Equal(t, "b;", out[len(out)-2:])
}

func TestSnippet(t *testing.T) {
	src := "let x = 1; /* c */\n  if (x) {\n    y(); // t\n  }"

	assert.Equal(t, "let x = 1;", snippet(src, 0, 10, 160))
	assert.Equal(t, "let x = 1; if (x) { y(); }", snippet(src, 0, len(src), 160))
	assert.Equal(t, "let", snippet(src, 0, len(src), 3))
	assert.Equal(t, "", snippet(src, 5, 5, 160))
	assert.Equal(t, "", snippet(src, len(src), len(src)+4, 160))

	// A cut inside a multi-byte rune backs off to its start.
	assert.Equal(t, "a", snippet("aé", 0, 3, 2))
}
