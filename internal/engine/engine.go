// =============================================================================
// Export Converter - Template Conversion Engine
// =============================================================================
//
// The engine converts one source export into one destination workbook for a
// single locale.
//
// PROCESSING FLOW:
//   1. New       : load the destination template and the source export
//   2. Convert   : index the source header, resolve language and currency,
//                  then copy every kept source row into the destination
//   3. SaveFile  : write "{locale}_{name}" next to the source and register
//                  it with the output sink
//
// =============================================================================

package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/sheet"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Translator provides currency detection and label translation.
type Translator interface {
	DetectCurrency(language string) string
	GetMappedAttribute(attribute, code, language string) string

	// Locales returns the known locale tags, in detection order.
	Locales() []string
}

// Sink registers written files for downstream pickup.
type Sink interface {
	AddWrittenFile(path string) error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrLanguageNotDetected is returned when no known locale tag appears in
// the source header.
var ErrLanguageNotDetected = errors.New("language not detected")

// LanguageError reports a failed header language detection.
type LanguageError struct {
	File      string
	Available []string
}

func (e *LanguageError) Error() string {
	return fmt.Sprintf("language not detected in header of %s (available locales: %s)",
		filepath.Base(e.File), strings.Join(e.Available, ", "))
}

func (e *LanguageError) Unwrap() error {
	return ErrLanguageNotDetected
}

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine.
type Options struct {
	// TemplatesDir resolves relative template files.
	TemplatesDir string

	// Sheet controls how the source file is read.
	Sheet sheet.Options

	Logger *zap.Logger
}

// Stats counts the rows of one pass.
type Stats struct {
	RowsRead    int
	RowsWritten int
	RowsSkipped int
}

// Engine converts one source file with one template for one locale.
type Engine struct {
	template   Template
	layout     Layout
	translator Translator
	sink       Sink
	locale     string
	file       string
	logger     *zap.Logger

	destination *sheet.Workbook
	source      *sheet.Workbook
	pass        *Pass
}

// New loads the template's destination workbook and the source file.
// Load failures wrap sheet.ErrLoad.
func New(tpl Template, translator Translator, sink Sink, locale, file string, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	layout := tpl.Layout()
	templateFile := layout.TemplateFile
	if !filepath.IsAbs(templateFile) && opts.TemplatesDir != "" {
		templateFile = filepath.Join(opts.TemplatesDir, templateFile)
	}

	destination, err := sheet.Load(templateFile, sheet.Options{})
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}

	source, err := sheet.Load(file, opts.Sheet)
	if err != nil {
		destination.Close()
		return nil, fmt.Errorf("load source: %w", err)
	}

	return &Engine{
		template:    tpl,
		layout:      layout,
		translator:  translator,
		sink:        sink,
		locale:      locale,
		file:        file,
		logger:      logger.Named("engine").With(zap.String("file", filepath.Base(file)), zap.String("locale", locale)),
		destination: destination,
		source:      source,
	}, nil
}

// Close releases both workbooks.
func (e *Engine) Close() error {
	return errors.Join(e.destination.Close(), e.source.Close())
}

// Pass returns the state of the last Convert call, or nil.
func (e *Engine) Pass() *Pass {
	return e.pass
}

// Convert fills the destination workbook from the source rows.
func (e *Engine) Convert() (Stats, error) {
	var stats Stats

	if err := e.resolveWorksheet(); err != nil {
		return stats, err
	}

	rows, err := e.source.Rows()
	if err != nil {
		return stats, err
	}
	if len(rows) == 0 {
		return stats, fmt.Errorf("%w %s: no header row", sheet.ErrLoad, e.file)
	}
	header, rows := rows[0], rows[1:]

	p := newPass(e.template, e.translator, header)
	e.pass = p

	p.Language = e.locale
	if e.layout.LocaleSource == LocaleFromHeader {
		lang, err := e.detectLanguage(header)
		if err != nil {
			return stats, err
		}
		p.Language = lang
	}
	p.Currency = e.translator.DetectCurrency(p.Language)

	converters := e.template.Converters(p)
	skipper, _ := e.template.(RowSkipper)

	for _, row := range rows {
		stats.RowsRead++

		if skipper != nil && skipper.ShouldSkipRow(p, row) {
			stats.RowsSkipped++
			continue
		}

		for _, m := range p.mapping {
			value := p.columnValue(m, row, converters)
			typ, _ := p.CellType(m.Source)
			if err := e.destination.SetCell(m.Pos, p.row, value, typ); err != nil {
				return stats, err
			}
		}

		p.row++
		stats.RowsWritten++
	}

	e.logger.Debug("conversion pass finished",
		zap.String("language", p.Language),
		zap.String("currency", p.Currency),
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("rows_written", stats.RowsWritten),
		zap.Int("rows_skipped", stats.RowsSkipped))

	return stats, nil
}

// columnValue resolves the raw value of a mapping and runs its converter.
// A source column missing from the header yields nil without converting.
func (p *Pass) columnValue(m ColumnMapping, row []any, converters map[int]ConvertFunc) any {
	if _, ok := p.columns[m.Source]; !ok {
		return nil
	}
	value := p.Value(row, m.Source)
	if convert, ok := converters[m.Pos]; ok {
		return convert(value, m.Pos, row)
	}
	return value
}

func (e *Engine) resolveWorksheet() error {
	switch {
	case e.layout.SheetIndex != nil:
		return e.destination.SelectSheetIndex(*e.layout.SheetIndex)
	case e.layout.SheetName != "":
		return e.destination.SelectSheetName(e.layout.SheetName)
	}
	return nil
}

// detectLanguage returns the first known locale that appears in a header
// cell.
func (e *Engine) detectLanguage(header []any) (string, error) {
	known := e.translator.Locales()
	for _, lang := range known {
		if lang == "" {
			continue
		}
		for _, cell := range header {
			if strings.Contains(sheet.FormatValue(cell), lang) {
				return lang, nil
			}
		}
	}
	return "", &LanguageError{File: e.file, Available: known}
}

// =============================================================================
// SAVING
// =============================================================================

// OutputPath returns the locale-prefixed path written for file. Sources
// that are not workbooks (csv exports) get the .xlsx extension.
func OutputPath(file, locale string) string {
	base := filepath.Base(file)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
	default:
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
	}
	return filepath.Join(filepath.Dir(file), locale+"_"+base)
}

// SaveFile writes the destination workbook to OutputPath(file, locale) and
// registers it with the sink. Returns the written path.
func (e *Engine) SaveFile(file, locale string) (string, error) {
	path := OutputPath(file, locale)
	if err := e.destination.SaveAs(path); err != nil {
		return "", err
	}
	if e.sink != nil {
		if err := e.sink.AddWrittenFile(path); err != nil {
			return "", fmt.Errorf("register %s: %w", path, err)
		}
	}
	e.logger.Info("converted file written", zap.String("path", path))
	return path, nil
}
