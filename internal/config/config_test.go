package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/export-converter/internal/attributes"
	"github.com/ginjaninja78/export-converter/internal/converter"
	"github.com/ginjaninja78/export-converter/internal/sheet"
	"github.com/ginjaninja78/export-converter/internal/step"
)

const yamlConfig = `
attributes: [color, size]
currencies:
  default: EUR
  en_GB: GBP
  pl_PL: PLN
locales: [en_GB, de_DE, pl_PL]
templates:
  - prefix: products
    template: products
  - prefix: wholesale
    template: wholesale
template_definitions:
  - name: wholesale
    template_file: wholesale.xlsx
    columns:
      - pos: 0
        source: sku
      - pos: 1
        source: name-{locale}
        actions:
          - type: clean_text
label_source:
  base_url: https://pim.example.com
storage:
  file_path: /data/export_%datetime%.xlsx
output:
  archive_dir: ./archive
  manifest: ./reports/manifest.yaml
`

const tomlConfig = `
attributes = ["color"]
locales = ["en_GB"]
log_level = "debug"

[currencies]
default = "EUR"

[[templates]]
prefix = "products"
template = "products"

[label_source]
type = "file"
file = "labels.yaml"
timeout = "5s"

[csv]
delimiter = ","
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"color", "size"}, cfg.Attributes)
	assert.Equal(t, "GBP", cfg.Currencies["en_GB"])
	assert.Equal(t, []string{"en_GB", "de_DE", "pl_PL"}, cfg.Locales)
	assert.Equal(t, []converter.Rule{
		{Prefix: "products", Template: "products"},
		{Prefix: "wholesale", Template: "wholesale"},
	}, cfg.Templates)
	require.Len(t, cfg.TemplateDefinitions, 1)
	assert.Equal(t, "clean_text", cfg.TemplateDefinitions[0].Columns[1].Actions[0].Type)

	// Defaults.
	assert.Equal(t, "./templates", cfg.TemplatesDir)
	assert.Equal(t, LabelSourceHTTP, cfg.LabelSource.Type)
	assert.Equal(t, 30*time.Second, cfg.LabelSource.TimeoutDuration())
	assert.Equal(t, step.StorageLocal, cfg.Storage.Type)
	assert.Equal(t, ";", cfg.CSV.Delimiter)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./reports/manifest.yaml", cfg.Output.Manifest)

	_, isHTTP := cfg.LabelSource.Source().(*attributes.HTTPSource)
	assert.True(t, isHTTP)
}

func TestLoad_TOML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"color"}, cfg.Attributes)
	assert.Equal(t, "EUR", cfg.Currencies["default"])
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ",", cfg.CSV.Delimiter)
	assert.Equal(t, 5*time.Second, cfg.LabelSource.TimeoutDuration())
	assert.Equal(t, attributes.FileSource{Path: "labels.yaml"}, cfg.LabelSource.Source())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLabelsToken, "secret")
	t.Setenv(EnvLabelsURL, "https://other.example.com")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(writeConfig(t, "config.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.LabelSource.Token)
	assert.Equal(t, "https://other.example.com", cfg.LabelSource.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "config.yaml", "locales: [en_GB"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func valid() *Config {
	cfg := &Config{
		Currencies: map[string]string{"default": "EUR"},
		Locales:    []string{"en_GB"},
		Templates:  []converter.Rule{{Prefix: "products", Template: "products"}},
	}
	applyDefaults(cfg)
	cfg.LabelSource.BaseURL = "https://pim.example.com"
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no default currency", func(c *Config) { c.Currencies = map[string]string{"en_GB": "GBP"} }, "no default entry"},
		{"bad currency", func(c *Config) { c.Currencies["pl_PL"] = "ZLOTY" }, `currency "ZLOTY"`},
		{"no locales", func(c *Config) { c.Locales = nil }, "no locales configured"},
		{"bad locale", func(c *Config) { c.Locales = append(c.Locales, "not a locale") }, "invalid locale"},
		{"unknown template", func(c *Config) { c.Templates[0].Template = "stock" }, `unknown template "stock"`},
		{"empty prefix", func(c *Config) { c.Templates[0].Prefix = "" }, "has no prefix"},
		{"file source without file", func(c *Config) { c.LabelSource.Type = LabelSourceFile }, "label_source.file is required"},
		{"unknown source", func(c *Config) { c.LabelSource.Type = "ftp" }, `unknown label source type "ftp"`},
		{"bad timeout", func(c *Config) { c.LabelSource.Timeout = "soon" }, "label_source.timeout"},
		{"bad delimiter", func(c *Config) { c.CSV.Delimiter = ";;" }, "csv delimiter"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, `unknown log level "loud"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidate_NamedDelimiters(t *testing.T) {
	tests := map[string]rune{
		"tab": '\t', "Tab": '\t', "\\t": '\t',
		"pipe": '|', "Pipe": '|', "|": '|',
		"semicolon": ';', "Semicolon": ';', ",": ',',
	}
	for d, want := range tests {
		cfg := valid()
		cfg.CSV.Delimiter = d
		assert.NoError(t, cfg.Validate(), d)
		assert.Equal(t, want, sheet.ParseDelimiter(d), d)
	}
}
