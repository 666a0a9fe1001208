// Package source prepares script text for parsing.
// It strips interpreter directives, inserts synthetic statement separators
// to sidestep automatic-semicolon-insertion ambiguities, and keeps a position
// map so that every parsed range can be reported against the original text.
package source

import "strings"

// separators are the characters after which a synthetic newline is inserted
// when they are not already followed by one.
const separators = ";}"

// PositionMap maps offsets in transformed text to offsets in the original text.
// Entry i is the original offset of transformed byte i.
type PositionMap []int

// Normalized is the result of Normalize.
type Normalized struct {
	Text string      // Transformed text handed to the parser
	Map  PositionMap // Same length as Text
}

// StripDirective removes a leading "#!" interpreter line, including its newline.
// A directive without a trailing newline reduces the text to empty.
func StripDirective(src string) string {
	if !strings.HasPrefix(src, "#!") {
		return src
	}
	idx := strings.IndexByte(src, '\n')
	if idx == -1 {
		return ""
	}
	return src[idx+1:]
}

// Normalize inserts a synthetic newline after every ';' or '}' that is not
// immediately followed by a newline. The synthetic byte maps back onto the
// separator that precedes it. Normalize expects directive-free input.
func Normalize(src string) *Normalized {
	var sb strings.Builder
	sb.Grow(len(src) + len(src)/8)
	m := make(PositionMap, 0, len(src)+len(src)/8)

	for i := 0; i < len(src); i++ {
		ch := src[i]
		sb.WriteByte(ch)
		m = append(m, i)
		if strings.IndexByte(separators, ch) >= 0 && (i+1 >= len(src) || src[i+1] != '\n') {
			sb.WriteByte('\n')
			m = append(m, i)
		}
	}

	return &Normalized{Text: sb.String(), Map: m}
}

// IdentityMap returns a map of length n where every offset maps to itself.
func IdentityMap(n int) PositionMap {
	m := make(PositionMap, n)
	for i := range m {
		m[i] = i
	}
	return m
}

// MapRange translates a half-open range in transformed coordinates into
// original coordinates. Both ends are clamped into the map, so out-of-range
// input never panics. An empty map yields (0, 0).
func (m PositionMap) MapRange(start, end int) (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	s := clamp(start, 0, len(m)-1)
	e := clamp(end-1, 0, len(m)-1)
	origStart, origEnd := m[s], m[e]+1
	if origEnd < origStart {
		origEnd = origStart
	}
	return origStart, origEnd
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
