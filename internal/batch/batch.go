// Package batch builds dependence graphs for every script under a
// directory with a bounded worker pool. Graphs are served from an optional
// content-keyed cache and written next to their sources or into a store.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/l3aro/jspdg/internal/log"
	"github.com/l3aro/jspdg/internal/scanner"
	"github.com/l3aro/jspdg/pkg/cache"
	"github.com/l3aro/jspdg/pkg/emit"
	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/l3aro/jspdg/pkg/store"
	"golang.org/x/sync/errgroup"
)

// ErrAllFailed is returned when files were found but none produced a graph.
var ErrAllFailed = errors.New("no file could be parsed")

// Options configures a batch run.
type Options struct {
	PDG     pdg.Options
	Format  emit.Format
	Workers int             // Concurrent builds; zero means 1
	Scanner scanner.Options // File selection
	Cache   *cache.LRUCache // Nil disables caching
	Store   *store.Store    // When set, graphs go to the store instead of files
	OutDir  string          // Mirror outputs under OutDir; empty writes next to sources
	Logger  log.Logger      // Nil disables logging
	// Progress is called after each file with the count finished so far.
	// Calls are serialized.
	Progress func(done, total int)
}

// Result is the outcome for one file.
type Result struct {
	Path      string        `json:"path"`
	Output    string        `json:"output,omitempty"`
	Nodes     int           `json:"nodes"`
	Edges     int           `json:"edges"`
	Fallback  bool          `json:"fallback,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Cached    bool          `json:"cached,omitempty"`
	Err       string        `json:"error,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Report summarizes a batch run. Results follow the scan order.
type Report struct {
	Results []Result      `json:"results"`
	Elapsed time.Duration `json:"elapsed"`
}

// Built returns the number of files that produced a graph.
func (r *Report) Built() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == "" {
			n++
		}
	}
	return n
}

// Failed returns the number of files that produced no graph.
func (r *Report) Failed() int {
	return len(r.Results) - r.Built()
}

// CacheHits returns the number of graphs served from the cache.
func (r *Report) CacheHits() int {
	n := 0
	for _, res := range r.Results {
		if res.Cached {
			n++
		}
	}
	return n
}

// Run scans root and builds a graph for every matched file.
func Run(ctx context.Context, root string, opts Options) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("batch: %s is not a directory", root)
	}

	files, err := scanner.New(opts.Scanner).Scan(root)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	return Build(ctx, files, opts)
}

// Build processes an explicit file list. A file that cannot be read or
// parsed is recorded in its Result; only cancellation, output failures and
// a run where every file failed are errors.
func Build(ctx context.Context, files []scanner.FileInfo, opts Options) (*Report, error) {
	start := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	if opts.Format == "" {
		opts.Format = emit.FormatJSON
	}

	results := make([]Result, len(files))
	var (
		mu   sync.Mutex
		done int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := buildOne(ctx, f, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = res
			done++
			if opts.Progress != nil {
				opts.Progress(done, len(files))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}

	report := &Report{Results: results, Elapsed: time.Since(start)}
	if opts.Logger != nil {
		opts.Logger.Info("batch complete",
			"files", len(files),
			"built", report.Built(),
			"failed", report.Failed(),
			"cached", report.CacheHits(),
			"elapsed", report.Elapsed.Round(time.Millisecond))
	}
	if len(files) > 0 && report.Built() == 0 {
		return report, ErrAllFailed
	}
	return report, nil
}

// buildOne extracts and writes one graph. Source problems land in the
// Result; the returned error is reserved for output failures.
func buildOne(ctx context.Context, f scanner.FileInfo, opts Options) (Result, error) {
	start := time.Now()
	res := Result{Path: f.Path}

	src, err := os.ReadFile(f.FullPath)
	if err != nil {
		res.Err = err.Error()
		return res, nil
	}

	g, cached, err := extract(ctx, src, opts)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Err = err.Error()
		res.Elapsed = time.Since(start)
		if opts.Logger != nil {
			opts.Logger.Warn("skipping file", "path", f.Path, "error", err)
		}
		return res, nil
	}

	res.Nodes = len(g.Nodes)
	res.Edges = len(g.Edges)
	res.Fallback = g.Fallback
	res.Truncated = g.Truncated
	res.Cached = cached

	if opts.Store != nil {
		if err := opts.Store.WriteGraph(f.Path, g); err != nil {
			return res, err
		}
		res.Output = opts.Store.Path()
	} else {
		out, err := writeGraph(f, g, opts)
		if err != nil {
			return res, err
		}
		res.Output = out
	}

	res.Elapsed = time.Since(start)
	if opts.Logger != nil {
		opts.Logger.Debug("built graph",
			"path", f.Path,
			"nodes", res.Nodes,
			"edges", res.Edges,
			"cached", cached,
			"elapsed", res.Elapsed.Round(time.Microsecond))
	}
	return res, nil
}

// extract consults the cache before running the pipeline.
func extract(ctx context.Context, src []byte, opts Options) (*pdg.Graph, bool, error) {
	var key string
	if opts.Cache != nil {
		key = cache.Key(src, opts.PDG)
		if g, ok := opts.Cache.Get(key); ok {
			return g, true, nil
		}
	}

	g, err := pdg.Extract(ctx, src, opts.PDG)
	if err != nil {
		return nil, false, err
	}
	if opts.Cache != nil {
		opts.Cache.Set(key, g)
	}
	return g, false, nil
}

// OutputPath returns where the graph of f is written.
func (o Options) OutputPath(f scanner.FileInfo) string {
	format := o.Format
	if format == "" {
		format = emit.FormatJSON
	}
	if o.OutDir != "" {
		return filepath.Join(o.OutDir, filepath.FromSlash(emit.OutputPath(f.Path, format)))
	}
	return emit.OutputPath(f.FullPath, format)
}

// writeGraph encodes g fully before touching the output file so a failed
// encode never leaves a partial graph behind.
func writeGraph(f scanner.FileInfo, g *pdg.Graph, opts Options) (string, error) {
	out := opts.OutputPath(f)
	if opts.OutDir != "" {
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := emit.Encode(&buf, g, opts.Format, f.Path); err != nil {
		return "", fmt.Errorf("encode %s: %w", f.Path, err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}
