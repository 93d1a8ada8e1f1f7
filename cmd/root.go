// =============================================================================
// Export Converter - Root Command
// =============================================================================
//
// The root command holds the global flags and the logger shared by every
// subcommand.
//
// COBRA CLI STRUCTURE:
//   rootCmd (export-converter)
//   ├── convertCmd   (export-converter convert [FILE...])
//   ├── watchCmd     (export-converter watch DIR)
//   ├── validateCmd  (export-converter validate)
//   ├── templatesCmd (export-converter templates list|init)
//   └── versionCmd   (export-converter version)
//
// LOGGING:
//   zap production logging (JSON on stderr). The level comes from the
//   configuration's log_level; --verbose forces debug.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

var (
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger   = zap.NewNop()
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "export-converter",
	Short: "Export Converter - Fill spreadsheet templates from PIM product exports",
	Long: `Export Converter turns product exports (xlsx or csv) into destination
spreadsheet templates, one output file per locale.

Key Features:
  - Templates picked by file name prefix
  - Attribute option codes translated into localized labels
  - Declarative templates defined in the configuration file
  - Watch mode for drop directories

Example Usage:
  export-converter convert                          # Convert the configured storage file
  export-converter convert ./exports/products.xlsx  # Convert a specific file
  export-converter watch ./exports                  # Convert files as they arrive
  export-converter validate --config ./config.toml  # Validate configuration`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logLevel.SetLevel(zapcore.DebugLevel)
		}

		cfg := zap.NewProductionConfig()
		cfg.Level = logLevel
		built, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		logger = built
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyLogLevel switches to the configured level unless --verbose is set.
func applyLogLevel(level string) {
	if verbose {
		return
	}
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		logLevel.SetLevel(parsed)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (.yaml or .toml)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
