// =============================================================================
// Export Converter - Convert Command
// =============================================================================
//
// COMMAND USAGE:
//   export-converter convert [FILE...] [flags]
//
// FLAGS:
//   --locales  : Comma separated locales, overriding the configured list
//
// Without arguments the file described by the configured storage is
// converted, with %datetime% replaced by the command start time. Given files
// are converted one after another; a failing file does not stop the others.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/step"
)

// convertLocales overrides the configured locales.
var convertLocales []string

var convertCmd = &cobra.Command{
	Use:   "convert [FILE...]",
	Short: "Convert export files into their templates, one file per locale",
	Long: `The convert command picks the template for each export file by file name
prefix and writes one converted workbook per locale next to the source.

On success:
  - One "<locale>_<name>.xlsx" file per locale is written
  - The source export is removed
  - Written files are copied to the archive directory, when configured

On error:
  - Files written for earlier locales stay on disk
  - The source export is kept`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringSliceVar(
		&convertLocales,
		"locales",
		nil,
		"Comma separated locales to convert into (default: configured locales)",
	)
}

func runConvert(ctx context.Context, files []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	a, err := newApp(convertLocales)
	if err != nil {
		return err
	}

	var results []step.Result
	var failed []error

	if len(files) == 0 {
		result, err := a.step.Execute(ctx, step.Params{
			Storage:   a.cfg.Storage,
			Locales:   a.locales,
			StartTime: startTime,
		})
		results = append(results, result)
		if err != nil {
			failed = append(failed, err)
		}
	} else {
		for _, file := range files {
			result, err := a.step.ConvertFile(ctx, file, a.locales)
			results = append(results, result)
			if err != nil {
				failed = append(failed, err)
				if errors.Is(err, context.Canceled) {
					break
				}
			}
		}
	}

	var converted, skipped, outputs int
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case len(r.Outputs) > 0:
			converted++
		}
		outputs += len(r.Outputs)
	}

	logger.Info("conversion complete",
		zap.Int("files", len(results)),
		zap.Int("converted", converted),
		zap.Int("skipped", skipped),
		zap.Int("failed", len(failed)),
		zap.Int("outputs", outputs),
		zap.Duration("elapsed", time.Since(startTime)))

	for _, d := range a.converter.Diagnostics() {
		logger.Debug("missing label", zap.Stringer("diagnostic", d))
	}

	if err := a.finish(); err != nil {
		failed = append(failed, err)
	}

	if len(failed) > 0 {
		for _, r := range results {
			if len(r.Outputs) == 0 && !r.Skipped {
				logger.Warn("file not converted", zap.String("file", filepath.Base(r.File)))
			}
		}
		return fmt.Errorf("%d conversion(s) failed: %w", len(failed), errors.Join(failed...))
	}
	return nil
}
