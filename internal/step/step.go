// =============================================================================
// Export Converter - Conversion Step
// =============================================================================
//
// The step converts one export file for every requested locale.
//
// PROCESSING FLOW:
//   1. Resolve the file path from the storage parameters, filling in the
//      %datetime% placeholder with the step start time
//   2. Pick the template whose prefix starts the file name; no template or no
//      file means there is nothing to do
//   3. For each locale, in order: build a fresh template, convert, save
//   4. Remove the source file once every locale succeeded
//
// A failing locale stops the step. Files written for earlier locales stay on
// disk and the source file is kept.
//
// =============================================================================

package step

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/engine"
)

// DatetimeFormat is the layout substituted for the %datetime% placeholder.
const DatetimeFormat = "2006-01-02_15-04-05"

// DatetimePlaceholder is replaced with the step start time.
const DatetimePlaceholder = "%datetime%"

// StorageLocal is the storage type whose file path is used as is.
const StorageLocal = "local"

// =============================================================================
// TYPES
// =============================================================================

// Storage describes where the exported file lives.
type Storage struct {
	Type     string `yaml:"type" toml:"type"`
	FilePath string `yaml:"file_path" toml:"file_path"`
}

// Params are the parameters of one step execution.
type Params struct {
	Storage   Storage
	Locales   []string
	StartTime time.Time
}

// Converter is what the step needs from the converter facade.
type Converter interface {
	engine.Translator
	MatchTemplate(file string) (string, bool)
	Prepare(ctx context.Context) error
}

// Templates builds template instances by tag.
type Templates interface {
	Build(name, locale string) (engine.Template, error)
}

// Sink receives written files and per-pass statistics.
type Sink interface {
	engine.Sink
	RecordConversion(source, template, locale string, stats engine.Stats)
	RecordFailure(source string, err error)
}

// Result describes what the step did with a file.
type Result struct {
	File     string
	Template string

	// Skipped is set when the file does not exist or no template matches.
	Skipped bool

	Outputs []string
	Stats   map[string]engine.Stats
}

// Error is a conversion failure for one locale of a file.
type Error struct {
	File   string
	Locale string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("convert %s for locale %s: %v", filepath.Base(e.File), e.Locale, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoLocales is returned when a step is run without locales.
var ErrNoLocales = errors.New("no locales requested")

// =============================================================================
// PATH RESOLUTION
// =============================================================================

// ResolvePath returns the file path described by storage. Local storage
// paths are used as they are; other storage types live in the system temp
// directory. %datetime% is replaced with start formatted as DatetimeFormat.
func ResolvePath(storage Storage, start time.Time) string {
	path := storage.FilePath
	if storage.Type != StorageLocal {
		path = os.TempDir() + string(os.PathSeparator) + storage.FilePath
	}

	if strings.Contains(path, "%") {
		path = strings.ReplaceAll(path, DatetimePlaceholder, start.Format(DatetimeFormat))
	}

	return path
}

// =============================================================================
// STEP
// =============================================================================

// Step converts export files.
type Step struct {
	converter Converter
	templates Templates
	sink      Sink
	options   engine.Options
	logger    *zap.Logger
}

// New creates a Step. options are passed to every engine.
func New(converter Converter, templates Templates, sink Sink, options engine.Options, logger *zap.Logger) *Step {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.Logger == nil {
		options.Logger = logger
	}
	return &Step{
		converter: converter,
		templates: templates,
		sink:      sink,
		options:   options,
		logger:    logger.Named("step"),
	}
}

// Execute resolves the file from params and converts it.
func (s *Step) Execute(ctx context.Context, params Params) (Result, error) {
	start := params.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	return s.ConvertFile(ctx, ResolvePath(params.Storage, start), params.Locales)
}

// ConvertFile converts file for every locale and removes it afterwards.
func (s *Step) ConvertFile(ctx context.Context, file string, locales []string) (Result, error) {
	result := Result{File: file}
	log := s.logger.With(zap.String("file", filepath.Base(file)))

	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("no export file, nothing to convert")
			result.Skipped = true
			return result, nil
		}
		return result, fmt.Errorf("stat %s: %w", file, err)
	}

	tag, ok := s.converter.MatchTemplate(file)
	if !ok {
		log.Info("no template matches the file name, nothing to convert")
		result.Skipped = true
		return result, nil
	}
	result.Template = tag

	if len(locales) == 0 {
		return result, ErrNoLocales
	}

	if err := s.converter.Prepare(ctx); err != nil {
		err = fmt.Errorf("load attribute labels: %w", err)
		s.fail(file, err)
		return result, err
	}

	result.Stats = make(map[string]engine.Stats, len(locales))
	for _, loc := range locales {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		out, stats, err := s.convertLocale(tag, loc, file)
		if err != nil {
			stepErr := &Error{File: file, Locale: loc, Err: err}
			s.fail(file, stepErr)
			return result, stepErr
		}

		result.Outputs = append(result.Outputs, out)
		result.Stats[loc] = stats
		if s.sink != nil {
			s.sink.RecordConversion(file, tag, loc, stats)
		}
		log.Info("locale converted",
			zap.String("template", tag),
			zap.String("locale", loc),
			zap.String("output", filepath.Base(out)),
			zap.Int("rows_written", stats.RowsWritten),
			zap.Int("rows_skipped", stats.RowsSkipped))
	}

	if err := os.Remove(file); err != nil {
		return result, fmt.Errorf("remove source %s: %w", file, err)
	}
	log.Debug("source file removed")

	return result, nil
}

func (s *Step) convertLocale(tag, loc, file string) (string, engine.Stats, error) {
	tpl, err := s.templates.Build(tag, loc)
	if err != nil {
		return "", engine.Stats{}, err
	}

	var sink engine.Sink
	if s.sink != nil {
		sink = s.sink
	}

	e, err := engine.New(tpl, s.converter, sink, loc, file, s.options)
	if err != nil {
		return "", engine.Stats{}, err
	}
	defer e.Close()

	stats, err := e.Convert()
	if err != nil {
		return "", stats, err
	}

	out, err := e.SaveFile(file, loc)
	if err != nil {
		return "", stats, err
	}
	return out, stats, nil
}

func (s *Step) fail(file string, err error) {
	s.logger.Error("conversion failed", zap.String("file", filepath.Base(file)), zap.Error(err))
	if s.sink != nil {
		s.sink.RecordFailure(file, err)
	}
}
