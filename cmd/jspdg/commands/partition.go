package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/l3aro/jspdg/pkg/emit"
	"github.com/l3aro/jspdg/pkg/partition"
	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/spf13/cobra"
)

var partitionCmd = &cobra.Command{
	Use:   "partition <graph-file> [-o parts.json]",
	Short: "Split a graph into communities",
	Long: `Reads a graph written by "jspdg build" (json, msgpack or jsonl, by extension)
and splits it into parts: connected components, recursively divided with
Louvain community detection until each part's ast_size sum is at most
--theta-ast. Control edges weigh --w-control, data edges --w-data.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args[0])
		if err != nil {
			return err
		}

		opts := partitionOptions(cmd)
		parts, err := partition.Partition(cmd.Context(), g, opts)
		if err != nil {
			return err
		}
		logger.Debug("partitioned graph", "nodes", len(g.Nodes), "parts", len(parts), "theta_ast", opts.ThetaAST)

		out, _ := cmd.Flags().GetString("output")
		return writeParts(cmd, out, parts)
	},
}

// partitionOptions applies flag overrides to the configured options.
func partitionOptions(cmd *cobra.Command) partition.Options {
	opts := cfg.Partition
	if cmd.Flags().Changed("theta-ast") {
		opts.ThetaAST, _ = cmd.Flags().GetInt("theta-ast")
	}
	if cmd.Flags().Changed("w-control") {
		opts.WControl, _ = cmd.Flags().GetFloat64("w-control")
	}
	if cmd.Flags().Changed("w-data") {
		opts.WData, _ = cmd.Flags().GetFloat64("w-data")
	}
	return opts
}

// readGraph decodes a graph file in the format its extension names.
func readGraph(path string) (*pdg.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	defer f.Close()

	g, err := emit.Decode(f, emit.FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("decode graph %s: %w", path, err)
	}
	return g, nil
}

func readParts(path string) ([]partition.Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parts: %w", err)
	}
	var parts []partition.Part
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("decode parts %s: %w", path, err)
	}
	return parts, nil
}

// writeParts writes parts as indented JSON to path, or stdout when path
// is empty or "-".
func writeParts(cmd *cobra.Command, path string, parts []partition.Part) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(parts); err != nil {
		return fmt.Errorf("encoding parts: %w", err)
	}

	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing parts: %w", err)
	}
	logger.Info("parts written", "path", path, "parts", len(parts))
	return nil
}

func init() {
	partitionCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	partitionCmd.Flags().Int("theta-ast", partition.DefaultThetaAST, "Stop splitting parts at or below this ast_size sum")
	partitionCmd.Flags().Float64("w-control", partition.DefaultWControl, "Weight of control edges")
	partitionCmd.Flags().Float64("w-data", partition.DefaultWData, "Weight of data edges")
	RootCmd.AddCommand(partitionCmd)
}
