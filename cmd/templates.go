// =============================================================================
// Export Converter - Templates Command
// =============================================================================
//
// COMMAND USAGE:
//   export-converter templates list
//   export-converter templates init [NAME...] [--locale en_GB]
//
// "init" writes an empty destination workbook (header row only) for each
// named template into templates_dir; without names every registered
// template is written. Existing files are left alone unless --force is set.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/templates"
)

var (
	initLocale string
	initForce  bool
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect and scaffold destination templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered templates and the file prefixes routed to them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		catalog, err := templates.NewCatalog(cfg.TemplateDefinitions, logger)
		if err != nil {
			return err
		}

		prefixes := make(map[string][]string)
		for _, rule := range cfg.Templates {
			prefixes[rule.Template] = append(prefixes[rule.Template], rule.Prefix)
		}

		out := cmd.OutOrStdout()
		for _, name := range catalog.Names() {
			fmt.Fprintf(out, "%-20s prefixes: %v\n", name, prefixes[name])
		}
		return nil
	},
}

var templatesInitCmd = &cobra.Command{
	Use:   "init [NAME...]",
	Short: "Write empty template workbooks into templates_dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		catalog, err := templates.NewCatalog(cfg.TemplateDefinitions, logger)
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			names = catalog.Names()
		}

		for _, name := range names {
			tpl, err := catalog.Build(name, initLocale)
			if err != nil {
				return err
			}

			path := tpl.Layout().TemplateFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(cfg.TemplatesDir, path)
			}
			if _, err := os.Stat(path); err == nil && !initForce {
				logger.Info("template file exists, skipped", zap.String("template", name), zap.String("path", path))
				continue
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create templates directory: %w", err)
			}
			if err := templates.WriteTemplateFile(tpl, path); err != nil {
				return err
			}
			logger.Info("template file written", zap.String("template", name), zap.String("path", path))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd, templatesInitCmd)

	templatesInitCmd.Flags().StringVar(&initLocale, "locale", "en_GB",
		"Locale used for locale-dependent headers")
	templatesInitCmd.Flags().BoolVar(&initForce, "force", false,
		"Overwrite existing template files")
}
