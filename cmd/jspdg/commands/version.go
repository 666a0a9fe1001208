package commands

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildTime    = ""
)

// SetBuildInfo records the values stamped into the binary at link time.
func SetBuildInfo(version, time string) {
	buildVersion = version
	buildTime = time
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// No config needed to print a version.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(map[string]string{
				"version":    buildVersion,
				"build_time": buildTime,
				"go":         runtime.Version(),
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "jspdg version %s\n", buildVersion)
		if buildTime != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", buildTime)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Go: %s\n", runtime.Version())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(versionCmd)
}
