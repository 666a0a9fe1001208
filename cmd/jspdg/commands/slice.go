package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/spf13/cobra"
)

var sliceCmd = &cobra.Command{
	Use:   "slice <file> [node-id] [--at OFFSET] [--forward] [--var NAME] [--json]",
	Short: "Perform backward or forward slice analysis from a statement",
	Long: `Extracts the graph of a file and slices it from one statement node.

Backward slice: all statements that may affect the node.
Forward slice: all statements the node may affect.

The node is given by id, or with --at as the innermost statement covering a
byte offset. --var restricts data edges to one variable name.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]
		if err := requireFile(filePath); err != nil {
			return err
		}

		opts := cfg.PDGOptions()
		opts.Logger = logger
		g, err := pdg.ExtractFile(cmd.Context(), filePath, opts)
		if err != nil {
			return err
		}

		id, err := sliceTarget(cmd, args, g)
		if err != nil {
			return err
		}

		forward, _ := cmd.Flags().GetBool("forward")
		var varFilter *string
		if cmd.Flags().Changed("var") {
			varName, _ := cmd.Flags().GetString("var")
			varFilter = &varName
		}

		var ids []int
		if forward {
			ids = pdg.ForwardSlice(g, id, varFilter)
		} else {
			ids = pdg.BackwardSlice(g, id, varFilter)
		}
		if ids == nil {
			ids = []int{}
		}

		direction := "backward"
		if forward {
			direction = "forward"
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			output := struct {
				File      string     `json:"file"`
				Node      int        `json:"node"`
				Direction string     `json:"direction"`
				Variable  string     `json:"variable,omitempty"`
				Nodes     []pdg.Node `json:"nodes"`
			}{
				File:      filePath,
				Node:      id,
				Direction: direction,
				Nodes:     make([]pdg.Node, 0, len(ids)),
			}
			if varFilter != nil {
				output.Variable = *varFilter
			}
			for _, n := range ids {
				output.Nodes = append(output.Nodes, *g.NodeByID(n))
			}

			data, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		printSlice(cmd, g, id, direction, varFilter, ids)
		return nil
	},
}

// sliceTarget picks the start node from the id argument or --at.
func sliceTarget(cmd *cobra.Command, args []string, g *pdg.Graph) (int, error) {
	if cmd.Flags().Changed("at") {
		offset, _ := cmd.Flags().GetInt("at")
		ids := pdg.NodesAt(g, offset)
		if len(ids) == 0 {
			return 0, fmt.Errorf("no statement covers offset %d", offset)
		}
		return ids[len(ids)-1], nil
	}
	if len(args) < 2 {
		return 0, fmt.Errorf("a node id or --at offset is required")
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", args[1])
	}
	if g.NodeByID(id) == nil {
		return 0, fmt.Errorf("node %d not found (graph has %d nodes)", id, len(g.Nodes))
	}
	return id, nil
}

func printSlice(cmd *cobra.Command, g *pdg.Graph, id int, direction string, varFilter *string, ids []int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== %s slice from node %d ===\n", direction, id)
	if varFilter != nil {
		fmt.Fprintf(out, "Variable: %s\n", *varFilter)
	}

	deps := pdg.Dependencies(g, id)
	fmt.Fprintf(out, "Control in: %d, out: %d; data in: %d, out: %d\n\n",
		len(deps.ControlIn), len(deps.ControlOut), len(deps.DataIn), len(deps.DataOut))

	for _, n := range ids {
		node := g.NodeByID(n)
		fmt.Fprintf(out, "  [%d] %-22s %d-%d  %s\n", node.ID, node.Kind, node.Start, node.End, node.Snippet)
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "  (empty)")
	}
}

func init() {
	sliceCmd.Flags().Int("at", 0, "Slice from the innermost statement covering this byte offset")
	sliceCmd.Flags().Bool("forward", false, "Forward slice (default: backward)")
	sliceCmd.Flags().String("var", "", "Only follow data edges carrying this variable")
	sliceCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(sliceCmd)
}
