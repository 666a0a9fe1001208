package pdg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/l3aro/jspdg/internal/log"
	"github.com/l3aro/jspdg/pkg/jsast"
	"github.com/l3aro/jspdg/pkg/source"
)

// ErrNoInput is returned when no source path is given.
var ErrNoInput = errors.New("no input file")

// Options configures an extraction.
type Options struct {
	Limits Limits
	// SequenceTopLevel also links consecutive statements of the program body
	// and of switch cases. By default only braced blocks are sequenced.
	SequenceTopLevel bool
	// ParseTimeout bounds each parse attempt. Zero means no limit.
	ParseTimeout time.Duration
	// Logger receives fallback and truncation notices. Nil disables logging.
	Logger log.Logger
}

// DefaultOptions returns options with the default caps.
func DefaultOptions() Options {
	return Options{Limits: DefaultLimits()}
}

// Extract builds the dependence graph of one script. The only error is a
// source that cannot be parsed at all; caps truncate output silently.
func Extract(ctx context.Context, src []byte, opts Options) (*Graph, error) {
	opts.Limits = opts.Limits.withDefaults()

	text := source.StripDirective(string(src))
	norm := source.Normalize(text)

	res, err := jsast.Parse(ctx, norm, text, jsast.Options{Timeout: opts.ParseTimeout})
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	b := newBuilder(text, res.Map, opts)
	b.index(res.Program)
	b.walk(res.Program)

	g := b.graph
	g.Fallback = res.Fallback

	if opts.Logger != nil {
		if res.Fallback {
			opts.Logger.Warn("normalized text did not parse, used original text", "recovered", res.Recovered)
		}
		if g.Truncated {
			opts.Logger.Debug("graph truncated at cap", "nodes", len(g.Nodes), "edges", len(g.Edges))
		}
	}
	return g, nil
}

// ExtractFile reads path and extracts its graph.
func ExtractFile(ctx context.Context, path string, opts Options) (*Graph, error) {
	if path == "" {
		return nil, ErrNoInput
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	g, err := Extract(ctx, src, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
