package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/l3aro/jspdg/pkg/emit"
	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/spf13/cobra"
)

// buildCmd extracts the graph of one script
var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Extract the dependence graph of one script",
	Long: `Parses a JavaScript file and prints its statement-level program dependence
graph: nodes for statements and edges for control and data dependencies.

The run fails only when no file is given, the file is missing, or the source
cannot be parsed at all. Caps reached during extraction truncate the graph.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return pdg.ErrNoInput
		}
		path := args[0]
		if err := requireFile(path); err != nil {
			return err
		}

		opts := cfg.PDGOptions()
		opts.Logger = logger
		if cmd.Flags().Changed("sequence-top-level") {
			opts.SequenceTopLevel, _ = cmd.Flags().GetBool("sequence-top-level")
		}

		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		g, err := pdg.ExtractFile(cmd.Context(), path, opts)
		if err != nil {
			return err
		}
		logger.Debug("extracted graph",
			"path", path,
			"nodes", len(g.Nodes),
			"edges", len(g.Edges),
			"fallback", g.Fallback,
			"truncated", g.Truncated)

		var buf bytes.Buffer
		if err := emit.Encode(&buf, g, format, path); err != nil {
			return fmt.Errorf("encoding graph: %w", err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "auto" {
			output = emit.OutputPath(path, format)
		}
		if output == "" || output == "-" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("writing graph: %w", err)
		}
		logger.Info("graph written", "path", output)
		return nil
	},
}

// formatFlag resolves --format, falling back to the configured format.
func formatFlag(cmd *cobra.Command) (emit.Format, error) {
	if !cmd.Flags().Changed("format") {
		return cfg.Format(), nil
	}
	name, _ := cmd.Flags().GetString("format")
	return emit.ParseFormat(name)
}

func init() {
	buildCmd.Flags().StringP("format", "f", "json", "Output format: json, msgpack or jsonl")
	buildCmd.Flags().StringP("output", "o", "", `Output file; "auto" writes <file>.pdg.<ext> next to the source (default: stdout)`)
	buildCmd.Flags().Bool("sequence-top-level", false, "Also sequence program-level and switch-case statements")
	RootCmd.AddCommand(buildCmd)
}
