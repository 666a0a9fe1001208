package scanner

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnorePattern represents a single gitignore-style pattern compiled to a
// doublestar glob.
type IgnorePattern struct {
	pattern     string // Original pattern
	glob        string // Slash-separated glob matched against relative paths
	isNegation  bool   // True if pattern starts with !
	isDirectory bool   // True if pattern ends with /
}

// ParseIgnorePattern parses a gitignore-style pattern string. A pattern
// without an inner slash matches at any depth; a pattern with one is
// anchored to the directory holding the ignore file.
func ParseIgnorePattern(pattern string) IgnorePattern {
	p := IgnorePattern{pattern: pattern}

	if strings.HasPrefix(pattern, "!") {
		p.isNegation = true
		pattern = pattern[1:]
	}

	if strings.HasSuffix(pattern, "/") {
		p.isDirectory = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	anchored := strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if !anchored {
		pattern = "**/" + pattern
	}
	p.glob = pattern

	return p
}

// Match checks if the given path matches this ignore pattern. Negation is
// left to the caller.
func (p IgnorePattern) Match(path string) bool {
	path = filepath.ToSlash(path)

	// Everything below a matched directory is matched too.
	if ok, _ := doublestar.Match(p.glob+"/**", path); ok {
		return true
	}
	if p.isDirectory {
		return false
	}
	ok, _ := doublestar.Match(p.glob, path)
	return ok
}

// matchSelf matches the glob against path itself, used for directories.
func (p IgnorePattern) matchSelf(path string) bool {
	ok, _ := doublestar.Match(p.glob, filepath.ToSlash(path))
	return ok
}

// IsNegation returns true if this pattern is a negation pattern.
func (p IgnorePattern) IsNegation() bool {
	return p.isNegation
}

// String returns the pattern as written.
func (p IgnorePattern) String() string {
	return p.pattern
}

// matchAny reports whether path matches one of the doublestar globs.
// Malformed globs never match.
func matchAny(globs []string, path string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, path); err == nil && ok {
			return true
		}
	}
	return false
}
