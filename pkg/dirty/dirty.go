// Package dirty remembers the content hash of every watched script so a
// rebuild only touches files whose bytes changed.
package dirty

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// StateFile is the name of the persisted state inside the cache directory.
const StateFile = "dirty.json"

type entry struct {
	Sum     uint64 `json:"sum"`
	Pending bool   `json:"pending"`
}

// Tracker maps script paths to their last seen content hash. A script is
// pending from the moment its hash changes until Settle is called for it.
// Paths are used as given; callers pass absolute paths.
type Tracker struct {
	mu    sync.Mutex
	state string
	files map[string]entry
}

// New returns an empty tracker persisted under cacheDir. An empty cacheDir
// keeps the state in memory only.
func New(cacheDir string) *Tracker {
	t := &Tracker{files: make(map[string]entry)}
	if cacheDir != "" {
		t.state = filepath.Join(cacheDir, StateFile)
	}
	return t
}

// Observe hashes path and marks it pending when it is new or its content
// differs from the last observation. It reports whether path is pending.
func (t *Tracker) Observe(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", path, err)
	}
	sum := xxhash.Sum64(data)

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.files[path]
	if !ok || e.Sum != sum {
		e = entry{Sum: sum, Pending: true}
		t.files[path] = e
	}
	return e.Pending, nil
}

// Pending returns the scripts waiting for a rebuild, sorted.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for p, e := range t.files {
		if e.Pending {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Settle clears the pending mark of paths. Their hashes are kept.
func (t *Tracker) Settle(paths []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range paths {
		if e, ok := t.files[p]; ok {
			e.Pending = false
			t.files[p] = e
		}
	}
}

// Covers reports whether path is a tracked script or a directory holding one.
func (t *Tracker) Covers(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for p := range t.files {
		if within(p, path) {
			return true
		}
	}
	return false
}

// Forget drops path and, when path is a directory, every script below it.
// It returns the dropped scripts, sorted.
func (t *Tracker) Forget(path string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var gone []string
	for p := range t.files {
		if within(p, path) {
			gone = append(gone, p)
			delete(t.files, p)
		}
	}
	sort.Strings(gone)
	return gone
}

func within(p, path string) bool {
	if p == path {
		return true
	}
	dir := strings.TrimSuffix(path, string(filepath.Separator)) + string(filepath.Separator)
	return strings.HasPrefix(p, dir)
}

// Load replaces the tracked state with the persisted one. A missing state
// file leaves the tracker empty.
func (t *Tracker) Load() error {
	if t.state == "" {
		return nil
	}
	data, err := os.ReadFile(t.state)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read change state: %w", err)
	}

	files := make(map[string]entry)
	if err := json.Unmarshal(data, &files); err != nil {
		return fmt.Errorf("decode change state %s: %w", t.state, err)
	}

	t.mu.Lock()
	t.files = files
	t.mu.Unlock()
	return nil
}

// Save writes the tracked state, replacing the previous file atomically.
func (t *Tracker) Save() error {
	if t.state == "" {
		return nil
	}
	t.mu.Lock()
	data, err := json.MarshalIndent(t.files, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode change state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.state), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp := t.state + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write change state: %w", err)
	}
	return os.Rename(tmp, t.state)
}
