package step

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/export-converter/internal/attributes"
	"github.com/ginjaninja78/export-converter/internal/converter"
	"github.com/ginjaninja78/export-converter/internal/engine"
	"github.com/ginjaninja78/export-converter/internal/locale"
	"github.com/ginjaninja78/export-converter/internal/output"
	"github.com/ginjaninja78/export-converter/internal/templates"
	"github.com/ginjaninja78/export-converter/internal/transform"
)

// =============================================================================
// FIXTURES
// =============================================================================

func simpleDefinition() templates.Definition {
	return templates.Definition{
		Name:         "simple",
		TemplateFile: "simple.xlsx",
		Columns: []templates.ColumnDefinition{
			{Pos: 0, Source: "sku", Header: "SKU"},
			{Pos: 1, Source: "name-{locale}", Header: "Name", Actions: []transform.Action{{Type: "clean_text"}}},
			{Pos: 2, Source: "color", Header: "Colour", Actions: []transform.Action{{Type: transform.SelectAttribute}}},
		},
	}
}

type env struct {
	dir     string
	file    string
	catalog *templates.Catalog
	conv    *converter.Converter
	sink    *output.Sink
}

func newEnv(t *testing.T, source attributes.LabelSource) *env {
	t.Helper()
	dir := t.TempDir()

	catalog, err := templates.NewCatalog([]templates.Definition{simpleDefinition()}, nil)
	require.NoError(t, err)
	tpl, err := catalog.Build("simple", "en_GB")
	require.NoError(t, err)
	require.NoError(t, templates.WriteTemplateFile(tpl, filepath.Join(dir, "simple.xlsx")))

	resolver, err := locale.NewResolver(map[string]string{"default": "EUR"})
	require.NoError(t, err)
	svc := attributes.NewService(source, []string{"color"}, nil)
	conv := converter.New(
		converter.NewRegistry([]converter.Rule{{Prefix: "products", Template: "simple"}}),
		resolver, svc, []string{"en_GB", "de_DE"}, nil)

	exports := filepath.Join(dir, "exports")
	require.NoError(t, os.MkdirAll(exports, 0755))
	file := filepath.Join(exports, "products_export.xlsx")

	f := excelize.NewFile()
	rows := [][]string{
		{"sku", "name-en_GB", "name-de_DE", "color"},
		{"1001", "<b>Lamp</b>", "Lampe", "red"},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellStr("Sheet1", cell, v))
		}
	}
	require.NoError(t, f.SaveAs(file))
	require.NoError(t, f.Close())

	return &env{dir: dir, file: file, catalog: catalog, conv: conv, sink: output.NewSink("", nil)}
}

func (e *env) step(tpls Templates) *Step {
	if tpls == nil {
		tpls = e.catalog
	}
	return New(e.conv, tpls, e.sink, engine.Options{TemplatesDir: e.dir}, nil)
}

func colorLabels() attributes.StaticSource {
	return attributes.StaticSource{"color": {"red": {"en_GB": "Red", "de_DE": "Rot"}}}
}

func cell(t *testing.T, path, axis string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(f.GetSheetName(f.GetActiveSheetIndex()), axis)
	require.NoError(t, err)
	return v
}

// =============================================================================
// PATH RESOLUTION
// =============================================================================

func TestResolvePath(t *testing.T) {
	start := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)

	assert.Equal(t, "/data/export_2024-03-09_07-05-02.xlsx",
		ResolvePath(Storage{Type: StorageLocal, FilePath: "/data/export_%datetime%.xlsx"}, start))

	assert.Equal(t, os.TempDir()+string(os.PathSeparator)+"export.xlsx",
		ResolvePath(Storage{Type: "sftp", FilePath: "export.xlsx"}, start))

	assert.Equal(t, "/data/100%.xlsx",
		ResolvePath(Storage{Type: StorageLocal, FilePath: "/data/100%.xlsx"}, start))
}

// =============================================================================
// CONVERSION
// =============================================================================

func TestConvertFile_TwoLocales(t *testing.T) {
	e := newEnv(t, colorLabels())

	result, err := e.step(nil).ConvertFile(context.Background(), e.file, []string{"en_GB", "de_DE"})
	require.NoError(t, err)

	enOut := filepath.Join(filepath.Dir(e.file), "en_GB_products_export.xlsx")
	deOut := filepath.Join(filepath.Dir(e.file), "de_DE_products_export.xlsx")
	assert.Equal(t, []string{enOut, deOut}, result.Outputs)
	assert.Equal(t, "simple", result.Template)
	assert.False(t, result.Skipped)
	assert.Equal(t, engine.Stats{RowsRead: 1, RowsWritten: 1}, result.Stats["de_DE"])

	assert.NoFileExists(t, e.file)
	assert.Equal(t, "Lamp", cell(t, enOut, "B2"))
	assert.Equal(t, "Red", cell(t, enOut, "C2"))
	assert.Equal(t, "Lampe", cell(t, deOut, "B2"))
	assert.Equal(t, "Rot", cell(t, deOut, "C2"))

	files := e.sink.Files()
	require.Len(t, files, 2)
	assert.Equal(t, enOut, files[0].Path)
	assert.Equal(t, deOut, files[1].Path)
	assert.Len(t, e.sink.Manifest().Conversions, 2)
}

func TestExecute_ResolvesStoragePath(t *testing.T) {
	e := newEnv(t, colorLabels())
	start := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)

	stamped := filepath.Join(filepath.Dir(e.file), "products_2024-03-09_07-05-02.xlsx")
	require.NoError(t, os.Rename(e.file, stamped))

	result, err := e.step(nil).Execute(context.Background(), Params{
		Storage:   Storage{Type: StorageLocal, FilePath: filepath.Join(filepath.Dir(e.file), "products_%datetime%.xlsx")},
		Locales:   []string{"en_GB"},
		StartTime: start,
	})
	require.NoError(t, err)
	assert.Equal(t, stamped, result.File)
	assert.Len(t, result.Outputs, 1)
	assert.NoFileExists(t, stamped)
}

func TestConvertFile_NothingToDo(t *testing.T) {
	e := newEnv(t, colorLabels())
	s := e.step(nil)

	result, err := s.ConvertFile(context.Background(), filepath.Join(e.dir, "products_gone.xlsx"), []string{"en_GB"})
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	other := filepath.Join(filepath.Dir(e.file), "stock_export.xlsx")
	require.NoError(t, os.Rename(e.file, other))
	result, err = s.ConvertFile(context.Background(), other, []string{"en_GB"})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.FileExists(t, other)
	assert.Empty(t, e.sink.Files())
}

func TestConvertFile_NoLocales(t *testing.T) {
	e := newEnv(t, colorLabels())

	_, err := e.step(nil).ConvertFile(context.Background(), e.file, nil)
	assert.ErrorIs(t, err, ErrNoLocales)
	assert.FileExists(t, e.file)
}

type failingTemplates struct {
	inner  Templates
	locale string
}

func (f failingTemplates) Build(name, loc string) (engine.Template, error) {
	if loc == f.locale {
		return nil, errors.New("template unavailable")
	}
	return f.inner.Build(name, loc)
}

func TestConvertFile_LocaleFailureKeepsSource(t *testing.T) {
	e := newEnv(t, colorLabels())
	s := e.step(failingTemplates{inner: e.catalog, locale: "de_DE"})

	result, err := s.ConvertFile(context.Background(), e.file, []string{"en_GB", "de_DE", "pl_PL"})
	require.Error(t, err)

	var stepErr *Error
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "de_DE", stepErr.Locale)
	assert.Equal(t, e.file, stepErr.File)
	assert.ErrorContains(t, err, "template unavailable")

	assert.FileExists(t, e.file)
	assert.Len(t, result.Outputs, 1)
	assert.FileExists(t, filepath.Join(filepath.Dir(e.file), "en_GB_products_export.xlsx"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(e.file), "pl_PL_products_export.xlsx"))
	assert.Len(t, e.sink.Manifest().Failures, 1)
}

type downSource struct{}

func (downSource) Fetch(context.Context, string, int, int) (attributes.Page, error) {
	return attributes.Page{}, errors.New("connection refused")
}

func TestConvertFile_LabelSourceDown(t *testing.T) {
	e := newEnv(t, downSource{})

	_, err := e.step(nil).ConvertFile(context.Background(), e.file, []string{"en_GB"})
	assert.ErrorContains(t, err, "load attribute labels")
	assert.ErrorContains(t, err, "connection refused")
	assert.FileExists(t, e.file)
}

func TestConvertFile_Cancelled(t *testing.T) {
	e := newEnv(t, colorLabels())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.step(nil).ConvertFile(ctx, e.file, []string{"en_GB"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.FileExists(t, e.file)
}
