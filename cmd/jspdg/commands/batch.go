package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/l3aro/jspdg/internal/batch"
	"github.com/l3aro/jspdg/internal/log"
	"github.com/l3aro/jspdg/pkg/cache"
	"github.com/l3aro/jspdg/pkg/store"
	"github.com/spf13/cobra"
)

// batchCmd builds graphs for a whole directory
var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Extract graphs for every script under a directory",
	Long: `Scans a directory for JavaScript files and extracts their graphs with a pool
of workers. Graphs are written next to each source as <name>.pdg.<ext>, under
--out-dir, or into a SQLite database with --db.

Unchanged sources are served from the graph cache in cache_dir. Files that
cannot be parsed are reported and skipped; the run fails only when none parse.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		if err := requireDir(root); err != nil {
			return err
		}

		opts, cleanup, err := batchOptions(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		var spinner *log.ProgressSpinner
		if log.IsTTY() && !verboseFlag && !cfg.Verbose && !logJSONFlag {
			spinner = log.NewProgressSpinner(os.Stderr, "Scanning...")
			spinner.Start()
			opts.Progress = func(done, total int) {
				spinner.Message(fmt.Sprintf("Building graphs %d/%d", done, total))
			}
		}

		report, err := batch.Run(cmd.Context(), root, opts)
		if spinner != nil {
			spinner.Stop()
		}
		if err != nil && !errors.Is(err, batch.ErrAllFailed) {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, merr := json.MarshalIndent(report, "", "  ")
			if merr != nil {
				return fmt.Errorf("marshaling JSON: %w", merr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			printBatchReport(cmd, report)
		}
		return err
	},
}

// batchOptions assembles batch options from config and flags. The returned
// cleanup persists the cache and closes the store.
func batchOptions(cmd *cobra.Command) (batch.Options, func(), error) {
	opts := batch.Options{
		PDG:     cfg.PDGOptions(),
		Workers: cfg.Workers,
		Scanner: cfg.ScannerOptions(),
		Logger:  logger,
	}
	opts.PDG.Logger = logger

	var err error
	if opts.Format, err = formatFlag(cmd); err != nil {
		return opts, nil, err
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers, _ = cmd.Flags().GetInt("workers")
	}
	opts.OutDir, _ = cmd.Flags().GetString("out-dir")

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache && cfg.CacheMaxEntries > 0 {
		c := cache.New(cache.Options{MaxSize: cfg.CacheMaxEntries})
		path := filepath.Join(cfg.CacheDir, cache.FileName)
		if err := cache.LoadFromFile(c, path); err != nil {
			logger.Warn("discarding unreadable cache", "path", path, "error", err)
			c.Clear()
		}
		opts.Cache = c
		closers = append(closers, func() {
			if err := cache.PersistToFile(c, path); err != nil {
				logger.Warn("cannot save cache", "path", path, "error", err)
			}
			stats := c.Stats()
			logger.Debug("cache stats", "entries", c.Len(), "hit_rate", fmt.Sprintf("%.2f", stats.HitRate()))
		})
	}

	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		s, err := store.Open(dbPath)
		if err != nil {
			cleanup()
			return opts, nil, err
		}
		opts.Store = s
		closers = append(closers, func() { _ = s.Close() })
	}
	return opts, cleanup, nil
}

func printBatchReport(cmd *cobra.Command, report *batch.Report) {
	out := cmd.OutOrStdout()
	for _, res := range report.Results {
		if res.Err != "" {
			fmt.Fprintf(out, "✗ %s: %s\n", res.Path, res.Err)
		}
	}
	fmt.Fprintf(out, "Built %d graphs (%d cached, %d failed) in %s\n",
		report.Built(), report.CacheHits(), report.Failed(), report.Elapsed.Round(time.Millisecond))
}

// addOutputFlags registers the flags shared by batch and watch.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "json", "Output format: json, msgpack or jsonl")
	cmd.Flags().String("out-dir", "", "Write graphs under this directory instead of next to sources")
	cmd.Flags().String("db", "", "Write graphs into this SQLite database")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent workers (default from config)")
	cmd.Flags().Bool("no-cache", false, "Do not use the graph cache")
}

func init() {
	addOutputFlags(batchCmd)
	batchCmd.Flags().BoolP("json", "j", false, "Output report as JSON")
	RootCmd.AddCommand(batchCmd)
}
