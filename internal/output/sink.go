// =============================================================================
// Export Converter - Output Sink
// =============================================================================
//
// The sink registers every file the converter writes so the surrounding
// pipeline can pick it up:
//   - AddWrittenFile records the file and, when an archive directory is
//     configured, copies it there
//   - RecordConversion / RecordFailure collect per-file run information
//   - WriteManifest dumps the run as YAML
//
// ARCHIVAL STRATEGY:
//   - Written files are copied, not moved, so they stay next to the source
//   - With date subdirectories: archive/2024/01/15/en_GB_products.xlsx
//
// =============================================================================

package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/export-converter/internal/engine"
)

// =============================================================================
// TYPES
// =============================================================================

// WrittenFile is a file registered with the sink.
type WrittenFile struct {
	Path      string    `yaml:"path"`
	Name      string    `yaml:"name"`
	Archive   string    `yaml:"archive,omitempty"`
	WrittenAt time.Time `yaml:"written_at"`
}

// Conversion is one finished conversion pass.
type Conversion struct {
	Source      string `yaml:"source"`
	Template    string `yaml:"template"`
	Locale      string `yaml:"locale"`
	RowsRead    int    `yaml:"rows_read"`
	RowsWritten int    `yaml:"rows_written"`
	RowsSkipped int    `yaml:"rows_skipped"`
}

// Failure is a source file whose conversion failed.
type Failure struct {
	Source string `yaml:"source"`
	Error  string `yaml:"error"`
}

// Manifest is the YAML document written by WriteManifest.
type Manifest struct {
	RunID       string        `yaml:"run_id"`
	StartedAt   time.Time     `yaml:"started_at"`
	FinishedAt  time.Time     `yaml:"finished_at"`
	Files       []WrittenFile `yaml:"files"`
	Conversions []Conversion  `yaml:"conversions,omitempty"`
	Failures    []Failure     `yaml:"failures,omitempty"`
}

// =============================================================================
// SINK
// =============================================================================

// Sink collects the output of a run. It is safe for concurrent use.
type Sink struct {
	// ArchiveDir receives a copy of every written file. Empty disables it.
	ArchiveDir string

	// UseDateSubdirs archives into ArchiveDir/YYYY/MM/DD.
	UseDateSubdirs bool

	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	runID       string
	startedAt   time.Time
	files       []WrittenFile
	conversions []Conversion
	failures    []Failure
}

// NewSink starts a run with a fresh run id.
func NewSink(archiveDir string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sink{
		ArchiveDir: archiveDir,
		logger:     logger.Named("output"),
		now:        time.Now,
		runID:      uuid.New().String(),
	}
	s.startedAt = s.now()
	return s
}

// RunID returns the id of the run.
func (s *Sink) RunID() string {
	return s.runID
}

// AddWrittenFile registers path and archives a copy of it.
func (s *Sink) AddWrittenFile(path string) error {
	file := WrittenFile{
		Path:      path,
		Name:      filepath.Base(path),
		WrittenAt: s.now(),
	}

	if s.ArchiveDir != "" {
		archivePath, err := s.archive(path, file.WrittenAt)
		if err != nil {
			return err
		}
		file.Archive = archivePath
	}

	s.mu.Lock()
	s.files = append(s.files, file)
	s.mu.Unlock()

	s.logger.Debug("file registered", zap.String("path", path), zap.String("archive", file.Archive))
	return nil
}

// Files returns the registered files in registration order.
func (s *Sink) Files() []WrittenFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WrittenFile, len(s.files))
	copy(out, s.files)
	return out
}

// RecordConversion records the statistics of one pass.
func (s *Sink) RecordConversion(source, template, locale string, stats engine.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversions = append(s.conversions, Conversion{
		Source:      filepath.Base(source),
		Template:    template,
		Locale:      locale,
		RowsRead:    stats.RowsRead,
		RowsWritten: stats.RowsWritten,
		RowsSkipped: stats.RowsSkipped,
	})
}

// RecordFailure records a failed source file.
func (s *Sink) RecordFailure(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, Failure{Source: filepath.Base(source), Error: err.Error()})
}

// Manifest returns a snapshot of the run.
func (s *Sink) Manifest() Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Manifest{
		RunID:      s.runID,
		StartedAt:  s.startedAt,
		FinishedAt: s.now(),
		Files:      make([]WrittenFile, len(s.files)),
	}
	copy(m.Files, s.files)
	m.Conversions = append(m.Conversions, s.conversions...)
	m.Failures = append(m.Failures, s.failures...)
	return m
}

// WriteManifest writes the run manifest as YAML to path.
func (s *Sink) WriteManifest(path string) error {
	data, err := yaml.Marshal(s.Manifest())
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// =============================================================================
// ARCHIVAL
// =============================================================================

func (s *Sink) archive(path string, at time.Time) (string, error) {
	dir := s.ArchiveDir
	if s.UseDateSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", at.Year()),
			fmt.Sprintf("%02d", at.Month()),
			fmt.Sprintf("%02d", at.Day()))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := filepath.Join(dir, filepath.Base(path))
	if err := copyFile(path, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}
	return archivePath, nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}
