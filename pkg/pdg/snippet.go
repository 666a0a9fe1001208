package pdg

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	// A "//" preceded by ":" is kept so URLs survive; "///" is not a comment.
	lineComment = regexp.MustCompile(`(?m)(^|[^:])//(?:[^/\n][^\n]*)?$`)
)

// StripComments removes block and line comments from s. A block comment
// left open at the end of s, as happens when a preview is cut short, is
// dropped as well.
func StripComments(s string) string {
	s = blockComment.ReplaceAllString(s, "")
	if i := strings.Index(s, "/*"); i >= 0 {
		s = s[:i]
	}
	return lineComment.ReplaceAllString(s, "$1")
}

// BlankComments overwrites the comments in s with spaces, keeping line
// breaks, so byte offsets into s remain valid.
func BlankComments(s string) string {
	b := []byte(s)
	blank := func(from, to int) {
		for i := from; i < to; i++ {
			if b[i] != '\n' {
				b[i] = ' '
			}
		}
	}
	for _, m := range blockComment.FindAllStringIndex(s, -1) {
		blank(m[0], m[1])
	}
	for _, m := range lineComment.FindAllStringSubmatchIndex(string(b), -1) {
		blank(m[3], m[1])
	}
	return string(b)
}

// snippet returns a one-line preview of src[start:end], reading at most
// limit bytes, with comments removed and whitespace collapsed.
func snippet(src string, start, end, limit int) string {
	if start < 0 || start >= len(src) || end <= start {
		return ""
	}
	stop := end
	if stop > start+limit {
		stop = start + limit
	}
	if stop > len(src) {
		stop = len(src)
	}
	for stop > start && stop < len(src) && !utf8.RuneStart(src[stop]) {
		stop--
	}
	raw := StripComments(src[start:stop])
	return strings.Join(strings.Fields(raw), " ")
}
