// Package watch keeps graphs up to date while a source tree is edited.
// File events are debounced, and only files whose content hash changed are
// rebuilt.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/l3aro/jspdg/internal/batch"
	"github.com/l3aro/jspdg/internal/log"
	"github.com/l3aro/jspdg/internal/scanner"
	"github.com/l3aro/jspdg/pkg/dirty"
)

// DefaultDebounce is the quiet period before pending changes are rebuilt.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Batch controls how changed files are built and where graphs go.
	// Batch.Scanner selects the watched files.
	Batch batch.Options
	// Tracker holds content hashes. Nil starts from an empty in-memory
	// tracker, so the first pass rebuilds everything.
	Tracker *dirty.Tracker
	Logger  log.Logger
	// OnRebuild is called after every rebuild, including the initial pass.
	OnRebuild func(*batch.Report)
}

// Watcher rebuilds graphs for changed files under a root directory.
type Watcher struct {
	root    string
	opts    Options
	scan    *scanner.Scanner
	fs      *fsnotify.Watcher
	tracker *dirty.Tracker
	pending map[string]struct{}
}

// New creates a watcher for root. Call Run to start it.
func New(root string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", root)
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = dirty.New("")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	return &Watcher{
		root:    abs,
		opts:    opts,
		scan:    scanner.New(opts.Batch.Scanner),
		fs:      fsw,
		tracker: tracker,
		pending: make(map[string]struct{}),
	}, nil
}

// Run builds every dirty file, then watches until ctx is done. It closes
// the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	if err := w.addWatches(w.root); err != nil {
		return err
	}

	files, err := w.scan.Scan(w.root)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for _, f := range files {
		if _, err := w.tracker.Observe(f.FullPath); err != nil {
			w.opts.Logger.Warn("hash failed", "path", f.Path, "error", err)
		}
	}
	if err := w.rebuild(ctx); err != nil {
		return err
	}
	w.opts.Logger.Info("watching", "root", w.root, "files", len(files))

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.handle(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("watcher error", "error", err)

		case <-timerC:
			timerC = nil
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
}

// addWatches watches dir and every directory below it that the scanner
// would enter.
func (w *Watcher) addWatches(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root && w.scan.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handle records an event and reports whether anything became pending.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if w.scan.SkipDir(info.Name()) {
				return false
			}
			if err := w.addWatches(ev.Name); err != nil {
				w.opts.Logger.Warn("cannot watch new directory", "path", ev.Name, "error", err)
			}
			// Files may land before the watch does.
			return w.queueTree(ev.Name)
		}
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		// A removed directory is not a script, but its scripts were.
		if w.tracker.Covers(ev.Name) {
			w.pending[ev.Name] = struct{}{}
			return true
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return w.queue(ev.Name)
}

func (w *Watcher) queue(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || !w.scan.Accepts(rel) {
		return false
	}
	w.pending[path] = struct{}{}
	return true
}

func (w *Watcher) queueTree(dir string) bool {
	files, err := w.scan.Scan(dir)
	if err != nil {
		return false
	}
	queued := false
	for _, f := range files {
		if w.queue(f.FullPath) {
			queued = true
		}
	}
	return queued
}

// flush hashes pending files, drops removed ones and rebuilds the rest.
func (w *Watcher) flush(ctx context.Context) error {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(paths)

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			w.forget(p)
			continue
		}
		if _, err := w.tracker.Observe(p); err != nil {
			w.opts.Logger.Warn("hash failed", "path", p, "error", err)
		}
	}
	return w.rebuild(ctx)
}

// forget drops the graphs of a deleted script, or of every script under a
// deleted directory.
func (w *Watcher) forget(path string) {
	for _, p := range w.tracker.Forget(path) {
		f := w.fileInfo(p)
		if w.opts.Batch.Store != nil {
			if err := w.opts.Batch.Store.DeleteGraph(f.Path); err != nil {
				w.opts.Logger.Warn("cannot delete graph", "path", f.Path, "error", err)
			}
		} else if err := os.Remove(w.opts.Batch.OutputPath(f)); err != nil && !os.IsNotExist(err) {
			w.opts.Logger.Warn("cannot delete graph", "path", f.Path, "error", err)
		}
		w.opts.Logger.Info("removed", "path", f.Path)
	}
}

// rebuild builds every dirty file. A file that fails to parse stays clean
// until its content changes again.
func (w *Watcher) rebuild(ctx context.Context) error {
	paths := w.tracker.Pending()
	if len(paths) == 0 {
		return nil
	}

	files := make([]scanner.FileInfo, 0, len(paths))
	for _, p := range paths {
		files = append(files, w.fileInfo(p))
	}

	report, err := batch.Build(ctx, files, w.opts.Batch)
	switch {
	case errors.Is(err, batch.ErrAllFailed):
		w.opts.Logger.Warn("no changed file could be parsed", "files", len(files))
	case err != nil:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("watch: %w", err)
	}
	w.tracker.Settle(paths)

	w.opts.Logger.Info("rebuilt", "files", len(files), "failed", report.Failed())
	if w.opts.OnRebuild != nil {
		w.opts.OnRebuild(report)
	}
	return nil
}

func (w *Watcher) fileInfo(path string) scanner.FileInfo {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return scanner.FileInfo{Path: filepath.ToSlash(rel), FullPath: path}
}
