package commands

import (
	"encoding/json"
	"fmt"

	"github.com/l3aro/jspdg/pkg/syntaxcheck"
	"github.com/spf13/cobra"
)

// cleanCmd validates a corpus with the strict parser
var cleanCmd = &cobra.Command{
	Use:   "clean <dir>",
	Short: "Validate scripts with a strict parser",
	Long: `Parses every JavaScript file under a directory with a strict parser and
reports the files that fail, including files that cannot be read and parses
that exceed the timeout. With --delete the failing files are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		if err := requireDir(root); err != nil {
			return err
		}

		timeout := cfg.CleanTimeout
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetDuration("timeout")
		}
		del, _ := cmd.Flags().GetBool("delete")

		report, err := syntaxcheck.Clean(cmd.Context(), root, syntaxcheck.Options{
			Timeout: timeout,
			Delete:  del,
			Workers: cfg.Workers,
			Scanner: cfg.ScannerOptions(),
			Logger:  logger,
		})
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		out := cmd.OutOrStdout()
		for _, inv := range report.Invalid {
			mark := "✗"
			if inv.Deleted {
				mark = "deleted"
			}
			fmt.Fprintf(out, "%s %s: %s\n", mark, inv.Path, inv.Reason)
		}
		fmt.Fprintf(out, "Checked %d files: %d invalid, %d deleted\n",
			report.Checked, len(report.Invalid), report.Deleted())
		return nil
	},
}

func init() {
	cleanCmd.Flags().Bool("delete", false, "Delete files that fail the check")
	cleanCmd.Flags().Duration("timeout", 0, "Per-file parse timeout (default from config)")
	cleanCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(cleanCmd)
}
