// =============================================================================
// Export Converter - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   export-converter validate [--check-files]
//
// Loads and validates the configuration without converting anything. With
// --check-files every template referenced by a rule must have its workbook
// in templates_dir.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/export-converter/internal/config"
	"github.com/ginjaninja78/export-converter/internal/templates"
)

var checkFiles bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration %s is valid\n", cfgFile)
		fmt.Fprintf(out, "  Locales:    %v\n", cfg.Locales)
		fmt.Fprintf(out, "  Attributes: %d\n", len(cfg.Attributes))
		fmt.Fprintf(out, "  Rules:      %d\n", len(cfg.Templates))

		if !checkFiles {
			return nil
		}
		return checkTemplateFiles(cfg)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&checkFiles, "check-files", false,
		"Check that every template workbook exists in templates_dir")
}

// checkTemplateFiles verifies the template workbooks of all rules exist.
func checkTemplateFiles(cfg *config.Config) error {
	catalog, err := templates.NewCatalog(cfg.TemplateDefinitions, nil)
	if err != nil {
		return err
	}

	var missing []error
	for _, rule := range cfg.Templates {
		loc := ""
		if len(cfg.Locales) > 0 {
			loc = cfg.Locales[0]
		}
		tpl, err := catalog.Build(rule.Template, loc)
		if err != nil {
			missing = append(missing, err)
			continue
		}
		path := tpl.Layout().TemplateFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.TemplatesDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, fmt.Errorf("template %s: %w", rule.Template, err))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %w", config.ErrInvalid, errors.Join(missing...))
	}
	return nil
}
