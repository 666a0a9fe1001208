package scanner

import (
	"path/filepath"
	"strings"
)

// DefaultExtensions are the file extensions treated as scripts.
var DefaultExtensions = []string{".js"}

// hasExtension reports whether path ends in one of exts, ignoring case.
func hasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
