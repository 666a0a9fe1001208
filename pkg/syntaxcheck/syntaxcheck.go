// Package syntaxcheck validates scripts with a strict parser and removes
// the ones that fail from a corpus directory.
package syntaxcheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/l3aro/jspdg/internal/log"
	"github.com/l3aro/jspdg/internal/scanner"
	"github.com/t14raptor/go-fast/parser"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds one strict parse.
const DefaultTimeout = 1500 * time.Millisecond

// ErrTimeout is returned when a parse does not finish in time. A timeout
// counts as invalid.
var ErrTimeout = errors.New("syntax check timed out")

// Check parses src as a script. It returns nil when src is valid, the
// parser's error when it is not, and ErrTimeout when parsing outlives
// timeout (zero means DefaultTimeout).
func Check(ctx context.Context, src string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The parser cannot be interrupted; an abandoned parse finishes in the
	// background and its result is dropped.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("parser panic: %v", r)
			}
		}()
		_, err := parser.ParseFile(src)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// Options configures Clean.
type Options struct {
	Timeout time.Duration   // Per-file parse bound
	Delete  bool            // Remove invalid files; otherwise only report
	Workers int             // Concurrent checks; zero means 1
	Scanner scanner.Options // File selection
	Logger  log.Logger      // Nil disables logging
}

// Invalid is one rejected file.
type Invalid struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Deleted bool   `json:"deleted"`
}

// Report summarizes a Clean run.
type Report struct {
	Checked int       `json:"checked"`
	Invalid []Invalid `json:"invalid"`
}

// Deleted returns the number of files removed.
func (r *Report) Deleted() int {
	n := 0
	for _, inv := range r.Invalid {
		if inv.Deleted {
			n++
		}
	}
	return n
}

// Clean checks every script under root. Unreadable files are invalid.
// Results in Report.Invalid follow the scan order.
func Clean(ctx context.Context, root string, opts Options) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("clean: %s is not a directory", root)
	}

	files, err := scanner.New(opts.Scanner).Scan(root)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	reasons := make([]string, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			reason, err := checkFile(ctx, f.FullPath, opts.Timeout)
			if err != nil {
				return err
			}
			mu.Lock()
			reasons[i] = reason
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	report := &Report{Checked: len(files), Invalid: make([]Invalid, 0)}
	for i, f := range files {
		if reasons[i] == "" {
			continue
		}
		inv := Invalid{Path: f.Path, Reason: reasons[i]}
		if opts.Delete {
			if err := os.Remove(f.FullPath); err != nil {
				return report, fmt.Errorf("delete %s: %w", f.Path, err)
			}
			inv.Deleted = true
		}
		if opts.Logger != nil {
			opts.Logger.Info("invalid script", "path", f.Path, "deleted", inv.Deleted, "reason", inv.Reason)
		}
		report.Invalid = append(report.Invalid, inv)
	}
	return report, nil
}

// checkFile returns a non-empty reason when path is not a valid script.
// Only cancellation of ctx is an error.
func checkFile(ctx context.Context, path string, timeout time.Duration) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "unreadable: " + err.Error(), nil
	}
	err = Check(ctx, string(src), timeout)
	switch {
	case err == nil:
		return "", nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	default:
		return err.Error(), nil
	}
}
