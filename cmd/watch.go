// =============================================================================
// Export Converter - Watch Command
// =============================================================================
//
// COMMAND USAGE:
//   export-converter watch DIR [flags]
//
// Converts every export file dropped into DIR, one at a time, in arrival
// order. Files written by the converter itself ("<locale>_...") are ignored.
// Stops on SIGINT or SIGTERM and writes the run manifest.
//
// =============================================================================

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/watch"
)

var (
	watchDebounce     time.Duration
	watchScanExisting bool
	watchLocales      []string
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Convert export files as they are dropped into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce,
		"Quiet period after the last write before a file is converted")
	watchCmd.Flags().BoolVar(&watchScanExisting, "scan-existing", false,
		"Also convert files already in the directory")
	watchCmd.Flags().StringSliceVar(&watchLocales, "locales", nil,
		"Comma separated locales to convert into (default: configured locales)")
}

func runWatch(ctx context.Context, dir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(watchLocales)
	if err != nil {
		return err
	}

	handler := func(ctx context.Context, file string) error {
		_, err := a.step.ConvertFile(ctx, file, a.locales)
		return err
	}

	w, err := watch.New(dir, handler, watch.Options{
		Debounce:     watchDebounce,
		Ignore:       a.isOutput,
		ScanExisting: watchScanExisting,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	if err := w.Run(ctx); err != nil {
		return err
	}

	stats := w.Stats()
	logger.Info("watch finished",
		zap.Int("handled", stats.Handled),
		zap.Int("failed", stats.Failed),
		zap.Int("watcher_errors", stats.Errors))

	return a.finish()
}
