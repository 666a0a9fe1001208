// Package emit serializes dependence graphs.
package emit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/vmihailenco/msgpack/v5"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON    Format = "json"    // Indented JSON object {nodes, edges}
	FormatMsgpack Format = "msgpack" // Binary msgpack of the same object
	FormatJSONL   Format = "jsonl"   // One compact record per line, tagged with its file
)

// ErrUnknownFormat is returned for an unrecognized format name.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatMsgpack, FormatJSONL:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Extension returns the file suffix used for graphs written in f.
func (f Format) Extension() string {
	switch f {
	case FormatMsgpack:
		return ".pdg.msgpack"
	case FormatJSONL:
		return ".pdg.jsonl"
	}
	return ".pdg.json"
}

// OutputPath returns the graph file written next to the script at src,
// e.g. "lib/a.js" becomes "lib/a.pdg.json".
func OutputPath(src string, f Format) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + f.Extension()
}

// Record is one line of JSON-lines output.
type Record struct {
	File  string     `json:"file"`
	Nodes []pdg.Node `json:"nodes"`
	Edges []pdg.Edge `json:"edges"`
}

// Encode writes g to w in format f. file is only used by FormatJSONL.
func Encode(w io.Writer, g *pdg.Graph, f Format, file string) error {
	switch f {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(g)
	case FormatJSONL:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(Record{File: file, Nodes: g.Nodes, Edges: g.Edges})
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Decode reads one graph written by Encode. For FormatJSONL it reads the
// first record.
func Decode(r io.Reader, f Format) (*pdg.Graph, error) {
	g := &pdg.Graph{}
	switch f {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(g); err != nil {
			return nil, fmt.Errorf("decode json graph: %w", err)
		}
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(g); err != nil {
			return nil, fmt.Errorf("decode msgpack graph: %w", err)
		}
	case FormatJSONL:
		records, err := DecodeRecords(r)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("decode jsonl graph: %w", io.ErrUnexpectedEOF)
		}
		g.Nodes, g.Edges = records[0].Nodes, records[0].Edges
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return g, nil
}

// DecodeRecords reads every record of a JSON-lines stream. Blank lines are
// skipped.
func DecodeRecords(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("decode jsonl line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return records, nil
}

// FormatOf guesses the format of a graph file from its name.
func FormatOf(path string) Format {
	switch {
	case strings.HasSuffix(path, ".msgpack"):
		return FormatMsgpack
	case strings.HasSuffix(path, ".jsonl"):
		return FormatJSONL
	}
	return FormatJSON
}
