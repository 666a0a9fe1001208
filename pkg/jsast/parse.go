package jsast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/l3aro/jspdg/pkg/source"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ErrUnparseable is returned when neither the normalized nor the original
// text yields a usable tree.
var ErrUnparseable = errors.New("source is unparseable")

var (
	errSyntax     = errors.New("tree contains syntax errors")
	errNoRecovery = errors.New("no statement could be recovered")
	errNoTree     = errors.New("parser returned no tree")
)

// Options controls a parse.
type Options struct {
	// Timeout bounds each parse attempt. Zero means no limit.
	Timeout time.Duration
}

// Result is a successful parse.
type Result struct {
	Program *Program
	// Map translates offsets in the parsed text back to the original text.
	Map source.PositionMap
	// Fallback is set when the original text had to be parsed because the
	// normalized text did not parse cleanly.
	Fallback bool
	// Recovered is set when the tree contains error regions the parser
	// tolerated.
	Recovered bool
	// Count is the number of nodes in Program.
	Count int
}

// attempt is the outcome of parsing one text.
type attempt struct {
	program   *Program
	count     int
	recovered bool
	err       error
}

// Parse parses the normalized text strictly, and on failure parses the
// original text once more with error recovery and an identity map.
func Parse(ctx context.Context, norm *source.Normalized, original string, opts Options) (*Result, error) {
	first := parseText(ctx, norm.Text, opts, false)
	if first.err == nil {
		return &Result{Program: first.program, Map: norm.Map, Count: first.count}, nil
	}

	second := parseText(ctx, original, opts, true)
	if second.err != nil {
		return nil, fmt.Errorf("%w: normalized: %v; original: %v", ErrUnparseable, first.err, second.err)
	}

	return &Result{
		Program:   second.program,
		Map:       source.IdentityMap(len(original)),
		Fallback:  true,
		Recovered: second.recovered,
		Count:     second.count,
	}, nil
}

func parseText(ctx context.Context, text string, opts Options, tolerant bool) attempt {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return attempt{err: err}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	content := []byte(text)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return attempt{err: fmt.Errorf("tree-sitter: %w", err)}
	}
	if tree == nil {
		return attempt{err: errNoTree}
	}
	defer tree.Close()

	root := tree.RootNode()
	broken := root.HasError()
	if broken && !tolerant {
		return attempt{err: errSyntax}
	}
	if broken && !recoverable(root) {
		return attempt{err: errNoRecovery}
	}

	c := newConverter(content)
	program := c.program(root)
	return attempt{program: program, count: c.nextID, recovered: broken}
}

// recoverable reports whether an erroneous tree still holds at least one
// construct outside an error region.
func recoverable(root *sitter.Node) bool {
	if root == nil || root.Type() == "ERROR" {
		return false
	}
	for _, child := range namedChildren(root) {
		if child.Type() != "ERROR" {
			return true
		}
	}
	return false
}
