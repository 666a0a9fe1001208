// Package repr turns graph partitions into text slices of the original
// source, one JSON-lines record per part, for training and review.
package repr

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/l3aro/jspdg/pkg/emit"
	"github.com/l3aro/jspdg/pkg/partition"
	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/l3aro/jspdg/pkg/source"
)

// Separator is placed between the source fragments of one slice.
const Separator = "\n/* ==== NEXT NODE ==== */\n"

// DefaultMaxChars bounds the text of one slice.
const DefaultMaxChars = 2000

// Options controls slice generation.
type Options struct {
	Label         string // Copied to every record, e.g. "yes" or "no"
	MaxChars      int    // Character budget per slice; zero means DefaultMaxChars
	StripComments bool   // Blank comments out of the source first
}

// Meta describes how a slice was produced.
type Meta struct {
	File          string `json:"file"`
	MaxChars      int    `json:"max_chars"`
	StripComments bool   `json:"strip_comments"`
}

// Slice is one part rendered as text.
type Slice struct {
	ID     string   `json:"id"`
	PartID int      `json:"part_id"`
	Label  string   `json:"label"`
	Text   string   `json:"text"`
	Nodes  []int    `json:"nodes"`  // Ids of the part's non-empty nodes, in text order
	Ranges [][2]int `json:"ranges"` // Byte ranges of the included fragments
	Meta   Meta     `json:"meta"`
}

type span struct {
	start, end, id int
}

// Build renders each part of g over src. file names the script; its base
// name becomes the record id prefix. src is the script as read; a leading
// "#!" line is dropped so node offsets line up. Parts whose nodes all have
// empty spans produce no slice.
func Build(file, src string, g *pdg.Graph, parts []partition.Part, opts Options) []Slice {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	src = source.StripDirective(src)
	if opts.StripComments {
		src = pdg.BlankComments(src)
	}

	byID := make(map[int]pdg.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}

	base := filepath.Base(file)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	meta := Meta{File: base, MaxChars: opts.MaxChars, StripComments: opts.StripComments}

	var out []Slice
	for _, p := range parts {
		spans := make([]span, 0, len(p.Nodes))
		for _, id := range p.Nodes {
			n, ok := byID[id]
			if !ok {
				continue
			}
			end := min(n.End, len(src))
			if end <= n.Start {
				continue
			}
			spans = append(spans, span{n.Start, end, id})
		}
		sort.SliceStable(spans, func(i, j int) bool {
			if spans[i].start != spans[j].start {
				return spans[i].start < spans[j].start
			}
			return spans[i].end < spans[j].end
		})

		chunks, ranges := fragments(src, spans, opts.MaxChars)
		if len(chunks) == 0 {
			continue
		}

		nodes := make([]int, 0, len(spans))
		for _, s := range spans {
			nodes = append(nodes, s.id)
		}
		out = append(out, Slice{
			ID:     fmt.Sprintf("%s-p%d", stem, p.PartID),
			PartID: p.PartID,
			Label:  opts.Label,
			Text:   strings.Join(chunks, Separator),
			Nodes:  nodes,
			Ranges: ranges,
			Meta:   meta,
		})
	}
	return out
}

// fragments cuts the spans out of src until the character budget is
// spent. Each fragment is charged its length plus one separator; the
// fragment that overflows is truncated to what remains.
func fragments(src string, spans []span, budget int) ([]string, [][2]int) {
	var chunks []string
	var ranges [][2]int
	sepLen := utf8.RuneCountInString(Separator)
	used := 0
	for _, s := range spans {
		frag := src[s.start:s.end]
		n := utf8.RuneCountInString(frag)
		if used+n+sepLen > budget {
			if remain := budget - used; remain > 0 {
				frag = prefix(frag, remain)
				chunks = append(chunks, frag)
				ranges = append(ranges, [2]int{s.start, s.start + len(frag)})
			}
			break
		}
		chunks = append(chunks, frag)
		ranges = append(ranges, [2]int{s.start, s.end})
		used += n + sepLen
	}
	return chunks, ranges
}

// prefix returns the first n characters of s.
func prefix(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// WriteJSONL writes one record per line.
func WriteJSONL(w io.Writer, slices []Slice) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, s := range slices {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("write slice %s: %w", s.ID, err)
		}
	}
	return nil
}

// Paths holds the files read and written for one script.
type Paths struct {
	Graph string
	Parts string
	Out   string
}

// DefaultPaths places the graph, parts and slices files next to the
// script: "a.js" uses "a.pdg.json", "a.part.json" and "a.slices.jsonl".
func DefaultPaths(code string) Paths {
	stem := strings.TrimSuffix(code, filepath.Ext(code))
	return Paths{
		Graph: emit.OutputPath(code, emit.FormatJSON),
		Parts: stem + ".part.json",
		Out:   stem + ".slices.jsonl",
	}
}
