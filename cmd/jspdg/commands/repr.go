package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/l3aro/jspdg/pkg/partition"
	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/l3aro/jspdg/pkg/repr"
	"github.com/spf13/cobra"
)

var reprCmd = &cobra.Command{
	Use:   "repr --code FILE --label yes|no [--pdg FILE] [--parts FILE] [--out FILE]",
	Short: "Render partitions as source text slices",
	Long: `Renders each part of a script's graph as one text slice: the source of the
part's statements in offset order, joined by a separator comment and capped
at --max-chars. Slices are written as JSON lines.

By default a.js reads a.pdg.json and a.part.json and writes a.slices.jsonl.
A missing graph or parts file is computed on the fly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")
		if code == "" {
			return pdg.ErrNoInput
		}
		if err := requireFile(code); err != nil {
			return err
		}

		label, _ := cmd.Flags().GetString("label")
		if label != "yes" && label != "no" {
			return fmt.Errorf("--label must be yes or no, got %q", label)
		}

		paths := repr.DefaultPaths(code)
		for flag, dst := range map[string]*string{"pdg": &paths.Graph, "parts": &paths.Parts, "out": &paths.Out} {
			if v, _ := cmd.Flags().GetString(flag); v != "" {
				*dst = v
			}
		}

		src, err := os.ReadFile(code)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}

		g, err := loadOrExtract(cmd, paths.Graph, src)
		if err != nil {
			return err
		}
		parts, err := loadOrPartition(cmd, paths.Parts, g)
		if err != nil {
			return err
		}

		opts := repr.Options{
			Label:         label,
			MaxChars:      cfg.Repr.MaxChars,
			StripComments: cfg.Repr.StripComments,
		}
		if cmd.Flags().Changed("max-chars") {
			opts.MaxChars, _ = cmd.Flags().GetInt("max-chars")
		}
		if cmd.Flags().Changed("strip-comments") {
			opts.StripComments, _ = cmd.Flags().GetBool("strip-comments")
		}

		slices := repr.Build(code, string(src), g, parts, opts)

		var buf bytes.Buffer
		if err := repr.WriteJSONL(&buf, slices); err != nil {
			return err
		}
		if paths.Out == "-" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := os.WriteFile(paths.Out, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("writing slices: %w", err)
		}
		logger.Info("slices written", "path", paths.Out, "slices", len(slices))
		return nil
	},
}

func loadOrExtract(cmd *cobra.Command, path string, src []byte) (*pdg.Graph, error) {
	if fileExists(path) {
		return readGraph(path)
	}
	logger.Debug("graph file missing, extracting", "path", path)
	opts := cfg.PDGOptions()
	opts.Logger = logger
	return pdg.Extract(cmd.Context(), src, opts)
}

func loadOrPartition(cmd *cobra.Command, path string, g *pdg.Graph) ([]partition.Part, error) {
	if fileExists(path) {
		return readParts(path)
	}
	logger.Debug("parts file missing, partitioning", "path", path)
	return partition.Partition(cmd.Context(), g, cfg.Partition)
}

func init() {
	reprCmd.Flags().String("code", "", "Source file (required)")
	reprCmd.Flags().String("label", "", "Label copied to every slice: yes or no (required)")
	reprCmd.Flags().String("pdg", "", "Graph file (default: <code>.pdg.json)")
	reprCmd.Flags().String("parts", "", "Parts file (default: <code>.part.json)")
	reprCmd.Flags().String("out", "", `Output file, "-" for stdout (default: <code>.slices.jsonl)`)
	reprCmd.Flags().Int("max-chars", repr.DefaultMaxChars, "Character budget per slice")
	reprCmd.Flags().Bool("strip-comments", false, "Blank out comments before slicing")
	_ = reprCmd.MarkFlagRequired("code")
	_ = reprCmd.MarkFlagRequired("label")
	RootCmd.AddCommand(reprCmd)
}
