// Package commands provides the CLI commands for jspdg.
package commands

import (
	"fmt"
	"os"

	"github.com/l3aro/jspdg/internal/config"
	"github.com/l3aro/jspdg/internal/log"
	"github.com/spf13/cobra"
)

// Commands annotated with configOptional run on defaults when the config
// cannot be loaded.
const (
	annotationConfig = "config"
	configOptional   = "optional"
)

var (
	// cfg and logger are set by the root command before any subcommand runs.
	cfg    *config.Config
	logger log.Logger
	// configErr is why the config could not be loaded, when a command
	// proceeded on defaults anyway.
	configErr error

	configFlag  string
	verboseFlag bool
	logJSONFlag bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "jspdg",
	Short: "jspdg - JavaScript program dependence graphs",
	Long: `jspdg extracts statement-level program dependence graphs from JavaScript.

Commands:
  build       Extract the graph of one script
  batch       Extract graphs for every script under a directory
  watch       Keep graphs up to date while a directory changes
  slice       Backward or forward slice from a statement
  partition   Split a graph into communities
  repr        Render partitions as source text slices
  clean       Validate scripts with a strict parser, optionally deleting bad ones
  init        Create a configuration file interactively
  doctor      Check configuration and toolchain health

Use "jspdg [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := setup()
		configErr = err
		if err != nil && cmd.Annotations[annotationConfig] == configOptional {
			cfg = config.DefaultConfig()
			logger = log.New(log.LoggerConfig{Level: log.InfoLevel, Stderr: os.Stderr})
			logger.Warn("ignoring unusable config", "error", err)
			return nil
		}
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: project, then global)")
	RootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Debug logging")
	RootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "Log JSON lines to stderr")
}

// setup loads configuration and builds the logger.
func setup() error {
	var err error
	if configFlag != "" {
		cfg, err = config.LoadFromFile(configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := log.InfoLevel
	if verboseFlag || cfg.Verbose {
		level = log.DebugLevel
	}
	logger = log.New(log.LoggerConfig{
		Level:      level,
		JSONOutput: logJSONFlag || cfg.LogJSON,
		Stderr:     os.Stderr,
	})
	return nil
}

// effectiveConfigPath returns the config file in use, or "" when only
// defaults apply.
func effectiveConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	for _, p := range []string{config.ProjectConfigPath(), config.GlobalConfigPath()} {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// requireFile fails unless path names an existing regular file.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, expected a file: %s", path)
	}
	return nil
}

// requireDir fails unless path names an existing directory.
func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is a file, expected a directory: %s", path)
	}
	return nil
}
