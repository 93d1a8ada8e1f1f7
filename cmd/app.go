// =============================================================================
// Export Converter - Application Wiring
// =============================================================================
//
// Builds the conversion stack from the configuration file:
//
//   config -> label source -> attribute service -> converter facade
//          -> template catalog -> output sink -> step
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/attributes"
	"github.com/ginjaninja78/export-converter/internal/config"
	"github.com/ginjaninja78/export-converter/internal/converter"
	"github.com/ginjaninja78/export-converter/internal/engine"
	"github.com/ginjaninja78/export-converter/internal/locale"
	"github.com/ginjaninja78/export-converter/internal/output"
	"github.com/ginjaninja78/export-converter/internal/sheet"
	"github.com/ginjaninja78/export-converter/internal/step"
	"github.com/ginjaninja78/export-converter/internal/templates"
)

type app struct {
	cfg       *config.Config
	locales   []string
	catalog   *templates.Catalog
	converter *converter.Converter
	sink      *output.Sink
	step      *step.Step
}

// loadConfig reads the configuration file and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyLogLevel(cfg.LogLevel)
	return cfg, nil
}

// newApp wires every component. locales overrides the configured locales
// when not empty.
func newApp(locales []string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if len(locales) == 0 {
		locales = cfg.Locales
	}
	normalized, err := normalizeLocales(locales)
	if err != nil {
		return nil, err
	}

	resolver, err := locale.NewResolver(cfg.Currencies)
	if err != nil {
		return nil, err
	}

	catalog, err := templates.NewCatalog(cfg.TemplateDefinitions, logger)
	if err != nil {
		return nil, err
	}

	known, err := normalizeLocales(cfg.Locales)
	if err != nil {
		return nil, err
	}

	labels := attributes.NewService(cfg.LabelSource.Source(), cfg.Attributes, logger)
	conv := converter.New(converter.NewRegistry(cfg.Templates), resolver, labels, known, logger)

	sink := output.NewSink(cfg.Output.ArchiveDir, logger)
	sink.UseDateSubdirs = cfg.Output.DateSubdirs

	s := step.New(conv, catalog, sink, engine.Options{
		TemplatesDir: cfg.TemplatesDir,
		Sheet:        sheet.Options{CSVDelimiter: sheet.ParseDelimiter(cfg.CSV.Delimiter)},
		Logger:       logger,
	}, logger)

	return &app{
		cfg:       cfg,
		locales:   normalized,
		catalog:   catalog,
		converter: conv,
		sink:      sink,
		step:      s,
	}, nil
}

// finish writes the run manifest when one is configured.
func (a *app) finish() error {
	if a.cfg.Output.Manifest == "" {
		return nil
	}
	if err := a.sink.WriteManifest(a.cfg.Output.Manifest); err != nil {
		return err
	}
	logger.Info("run manifest written",
		zap.String("path", a.cfg.Output.Manifest),
		zap.String("run_id", a.sink.RunID()))
	return nil
}

// isOutput reports whether name looks like a file the converter wrote,
// i.e. it starts with "<locale>_".
func (a *app) isOutput(name string) bool {
	for _, loc := range a.converter.Locales() {
		if strings.HasPrefix(name, loc+"_") {
			return true
		}
	}
	for _, loc := range a.locales {
		if strings.HasPrefix(name, loc+"_") {
			return true
		}
	}
	return false
}

func normalizeLocales(locales []string) ([]string, error) {
	out := make([]string, 0, len(locales))
	for _, loc := range locales {
		n, err := locale.Normalize(loc)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
