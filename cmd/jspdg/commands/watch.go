package commands

import (
	"path/filepath"

	"github.com/l3aro/jspdg/internal/batch"
	"github.com/l3aro/jspdg/internal/watch"
	"github.com/l3aro/jspdg/pkg/dirty"
	"github.com/spf13/cobra"
)

// watchCmd rebuilds graphs as files change
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep graphs up to date while a directory changes",
	Long: `Builds graphs for every script under a directory, then watches it and
rebuilds only the files whose content changed. Deleted scripts lose their
graph. Content hashes persist in cache_dir, so a restart skips files that did
not change in between.

Stop with Ctrl+C.`,
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

		debounce := cfg.WatchDebounce
		if cmd.Flags().Changed("debounce") {
			debounce, _ = cmd.Flags().GetDuration("debounce")
		}

		tracker := dirty.New(cfg.CacheDir)
		if err := tracker.Load(); err != nil {
			logger.Warn("discarding unreadable change state", "dir", cfg.CacheDir, "error", err)
			tracker = dirty.New(cfg.CacheDir)
		}

		w, err := watch.New(root, watch.Options{
			Debounce: debounce,
			Batch:    opts,
			Tracker:  tracker,
			Logger:   logger,
			OnRebuild: func(r *batch.Report) {
				for _, res := range r.Results {
					if res.Err != "" {
						logger.Warn("build failed", "path", res.Path, "error", res.Err)
					}
				}
				if err := tracker.Save(); err != nil {
					logger.Warn("cannot save change state", "dir", cfg.CacheDir, "error", err)
				}
			},
		})
		if err != nil {
			return err
		}

		abs, _ := filepath.Abs(root)
		logger.Info("starting watcher", "root", abs, "debounce", debounce)
		return w.Run(cmd.Context())
	},
}

func init() {
	addOutputFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", 0, "Quiet period before rebuilding (default from config)")
	RootCmd.AddCommand(watchCmd)
}
