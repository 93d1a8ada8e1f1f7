package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/export-converter/internal/engine"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAddWrittenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en_GB_products.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx"), 0644))

	s := NewSink("", nil)
	require.NoError(t, s.AddWrittenFile(path))

	files := s.Files()
	require.Len(t, files, 1)
	assert.Equal(t, path, files[0].Path)
	assert.Equal(t, "en_GB_products.xlsx", files[0].Name)
	assert.Empty(t, files[0].Archive)
}

func TestAddWrittenFile_Archive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "de_DE_products.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

	archive := filepath.Join(dir, "archive")
	s := NewSink(archive, nil)
	s.UseDateSubdirs = true
	s.now = fixedClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))

	require.NoError(t, s.AddWrittenFile(path))

	want := filepath.Join(archive, "2024", "01", "15", "de_DE_products.xlsx")
	assert.Equal(t, want, s.Files()[0].Archive)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.FileExists(t, path)
}

func TestAddWrittenFile_ArchiveFails(t *testing.T) {
	s := NewSink(t.TempDir(), nil)
	err := s.AddWrittenFile(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorContains(t, err, "failed to copy file to archive")
	assert.Empty(t, s.Files())
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en_GB_products.xlsx")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s := NewSink("", nil)
	_, err := uuid.Parse(s.RunID())
	require.NoError(t, err)

	require.NoError(t, s.AddWrittenFile(path))
	s.RecordConversion(filepath.Join(dir, "products.xlsx"), "products", "en_GB", engine.Stats{RowsRead: 3, RowsWritten: 2, RowsSkipped: 1})
	s.RecordFailure(filepath.Join(dir, "broken.xlsx"), errors.New("cannot load spreadsheet"))

	manifestPath := filepath.Join(dir, "reports", "manifest.yaml")
	require.NoError(t, s.WriteManifest(manifestPath))

	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, s.RunID(), m.RunID)
	require.Len(t, m.Files, 1)
	assert.Equal(t, "en_GB_products.xlsx", m.Files[0].Name)
	assert.Equal(t, []Conversion{{
		Source: "products.xlsx", Template: "products", Locale: "en_GB",
		RowsRead: 3, RowsWritten: 2, RowsSkipped: 1,
	}}, m.Conversions)
	assert.Equal(t, []Failure{{Source: "broken.xlsx", Error: "cannot load spreadsheet"}}, m.Failures)
	assert.False(t, m.FinishedAt.Before(m.StartedAt))
}
