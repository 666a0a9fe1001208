// Package scanner walks a directory tree for script files. It respects
// .jspdgignore files with gitignore-style patterns and include/exclude
// globs.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IgnoreFileName is the default per-directory ignore file.
const IgnoreFileName = ".jspdgignore"

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path     string // Relative path from root, slash separated
	FullPath string // Absolute path
	Size     int64  // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	FollowSymlinks  bool     // Follow symlinks (within root only)
	DefaultExcludes []string // Directory names never entered
	IgnoreFileName  string   // Name of the ignore file (default: .jspdgignore)
	Extensions      []string // Accepted file extensions; empty accepts all
	Include         []string // Doublestar globs; when set a file must match one
	Exclude         []string // Doublestar globs; a matching file is skipped
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		FollowSymlinks: false,
		IgnoreFileName: IgnoreFileName,
		Extensions:     DefaultExtensions,
		DefaultExcludes: []string{
			"node_modules",
			".git",
			"__pycache__",
			".hg",
			".svn",
			"bower_components",
			"coverage",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
	root string
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = IgnoreFileName
	}
	return &Scanner{opts: opts}
}

// Scan recursively scans the directory at root and returns the matching
// files sorted by relative path.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	s.root = absRoot

	ignorePatterns, err := s.loadIgnorePatterns(absRoot, "")
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []FileInfo

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped.
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPathSlash := filepath.ToSlash(relPath)

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if s.isDefaultExcluded(d.Name()) || s.matchesIgnorePatterns(relPathSlash+"/", ignorePatterns) {
				return filepath.SkipDir
			}
			nested, err := s.loadIgnorePatterns(path, relPathSlash)
			if err == nil && len(nested) > 0 {
				ignorePatterns = append(ignorePatterns, nested...)
			}
			return nil
		}

		if !s.accepts(relPathSlash, ignorePatterns) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			info, err = s.resolveSymlink(path)
			if err != nil || info == nil {
				return nil
			}
		}

		files = append(files, FileInfo{
			Path:     relPathSlash,
			FullPath: path,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Accepts reports whether a root-relative path passes the extension and
// include/exclude filters. Ignore files are not consulted.
func (s *Scanner) Accepts(relPath string) bool {
	return s.accepts(filepath.ToSlash(relPath), nil)
}

func (s *Scanner) accepts(relPath string, patterns []IgnorePattern) bool {
	if len(s.opts.Extensions) > 0 && !hasExtension(relPath, s.opts.Extensions) {
		return false
	}
	if s.matchesIgnorePatterns(relPath, patterns) {
		return false
	}
	if matchAny(s.opts.Exclude, relPath) {
		return false
	}
	return len(s.opts.Include) == 0 || matchAny(s.opts.Include, relPath)
}

// resolveSymlink returns the target's info when the link may be followed:
// following is enabled, the target stays within root, and it is a file.
func (s *Scanner) resolveSymlink(path string) (os.FileInfo, error) {
	if !s.opts.FollowSymlinks {
		return nil, nil
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, err
	}
	realAbs, err := filepath.Abs(realPath)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(realAbs, s.root+string(filepath.Separator)) {
		return nil, nil
	}
	info, err := os.Stat(realAbs)
	if err != nil || info.IsDir() {
		return nil, err
	}
	return info, nil
}

// SkipDir reports whether a directory with this base name is never
// entered: it is hidden or default-excluded.
func (s *Scanner) SkipDir(name string) bool {
	return (s.opts.SkipHidden && strings.HasPrefix(name, ".")) || s.isDefaultExcluded(name)
}

// isDefaultExcluded checks if the name matches default exclusion patterns.
func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// loadIgnorePatterns loads the ignore file in dir. Patterns are rebased
// onto prefix, the directory's path relative to the scan root.
func (s *Scanner) loadIgnorePatterns(dir, prefix string) ([]IgnorePattern, error) {
	file, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []IgnorePattern
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := ParseIgnorePattern(line)
		if prefix != "" {
			p.glob = prefix + "/" + p.glob
		}
		patterns = append(patterns, p)
	}

	return patterns, scanner.Err()
}

// matchesIgnorePatterns applies gitignore semantics: patterns are checked
// in order and a later negation overrides an earlier match.
func (s *Scanner) matchesIgnorePatterns(relPath string, patterns []IgnorePattern) bool {
	dir := strings.HasSuffix(relPath, "/")
	relPath = strings.TrimSuffix(relPath, "/")

	ignored := false
	for _, pattern := range patterns {
		matched := pattern.Match(relPath)
		if dir && !matched {
			matched = pattern.matchSelf(relPath)
		}
		if matched {
			ignored = !pattern.IsNegation()
		}
	}
	return ignored
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
