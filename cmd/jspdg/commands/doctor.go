package commands

import (
	"fmt"
	"io"

	"github.com/l3aro/jspdg/internal/healthcheck"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration and toolchain",
	Long: `Checks the configuration and verifies that both parsers, the cache
directory and the SQLite store work on this machine.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationConfig: configOptional},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := effectiveConfigPath()
		if configErr != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ config         %v\n", configErr)
			return fmt.Errorf("health check failed: config cannot be loaded")
		}

		result, err := healthcheck.Check(cmd.Context(), cfg, configPath, configPath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(cmd.OutOrStdout(), result)

		if !result.OK() {
			return fmt.Errorf("health check failed: one or more components are not working")
		}
		return nil
	},
}

func displayDoctorResult(w io.Writer, result *healthcheck.HealthCheckResult) {
	if result.EffectivePath == "" {
		fmt.Fprintln(w, "Using config: defaults (no config file found)")
	} else {
		fmt.Fprintf(w, "Using config: %s (%s)\n", result.EffectivePath, result.EffectiveScope)
	}
	fmt.Fprintln(w)

	for _, c := range result.Components {
		fmt.Fprintf(w, "%s %-14s %s\n", formatStatusIcon(c.Status), c.Name, c.Detail)
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusReady:
		return "✓"
	case healthcheck.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
