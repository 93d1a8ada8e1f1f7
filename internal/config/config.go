// =============================================================================
// Export Converter - Configuration Module
// =============================================================================
//
// Loads the converter configuration from a YAML file, or a TOML file when the
// name ends in ".toml".
//
// LOADING ORDER:
//   1. An optional .env file next to the working directory is loaded
//   2. The configuration file is parsed
//   3. Environment overrides are applied (EXPORT_CONVERTER_*)
//   4. Defaults are filled in
//   5. The result is validated; every validation error wraps ErrInvalid
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/export-converter/internal/attributes"
	"github.com/ginjaninja78/export-converter/internal/converter"
	"github.com/ginjaninja78/export-converter/internal/locale"
	"github.com/ginjaninja78/export-converter/internal/step"
	"github.com/ginjaninja78/export-converter/internal/templates"
)

// Environment overrides.
const (
	EnvLabelsToken = "EXPORT_CONVERTER_LABELS_TOKEN"
	EnvLabelsURL   = "EXPORT_CONVERTER_LABELS_URL"
	EnvLogLevel    = "EXPORT_CONVERTER_LOG_LEVEL"
)

// Label source types.
const (
	LabelSourceHTTP = "http"
	LabelSourceFile = "file"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config is the converter configuration.
type Config struct {
	// Attributes whose option labels are translated.
	Attributes []string `yaml:"attributes" toml:"attributes"`

	// Currencies maps a language to its currency. Must contain "default".
	Currencies map[string]string `yaml:"currencies" toml:"currencies"`

	// Locales are the languages files are converted into, in order. The
	// same list is used for header language detection.
	Locales []string `yaml:"locales" toml:"locales"`

	// Templates are the file name prefix rules, first match wins.
	Templates []converter.Rule `yaml:"templates" toml:"templates"`

	TemplateDefinitions []templates.Definition `yaml:"template_definitions,omitempty" toml:"template_definitions,omitempty"`

	// TemplatesDir is where destination template workbooks live.
	// Default: "./templates"
	TemplatesDir string `yaml:"templates_dir" toml:"templates_dir"`

	LabelSource LabelSource  `yaml:"label_source" toml:"label_source"`
	Storage     step.Storage `yaml:"storage" toml:"storage"`
	Output      Output       `yaml:"output" toml:"output"`
	CSV         CSV          `yaml:"csv" toml:"csv"`

	// LogLevel is one of debug, info, warn, error. Default: "info"
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

// LabelSource configures where attribute option labels come from.
type LabelSource struct {
	// Type is "http" (PIM REST API) or "file" (YAML label dump).
	Type    string `yaml:"type" toml:"type"`
	BaseURL string `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	Token   string `yaml:"token,omitempty" toml:"token,omitempty"`
	File    string `yaml:"file,omitempty" toml:"file,omitempty"`

	// Timeout is a Go duration string. Default: "30s"
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// TimeoutDuration returns the parsed timeout. Validate guarantees it parses.
func (l LabelSource) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(l.Timeout)
	return d
}

// Source builds the configured label source.
func (l LabelSource) Source() attributes.LabelSource {
	if l.Type == LabelSourceFile {
		return attributes.FileSource{Path: l.File}
	}
	return attributes.NewHTTPSource(l.BaseURL, l.Token, l.TimeoutDuration())
}

// Output configures what happens with written files.
type Output struct {
	// ArchiveDir receives a copy of every written file when set.
	ArchiveDir string `yaml:"archive_dir,omitempty" toml:"archive_dir,omitempty"`

	// DateSubdirs files archive copies under YYYY/MM/DD.
	DateSubdirs bool `yaml:"date_subdirs,omitempty" toml:"date_subdirs,omitempty"`

	// Manifest is the path of the run manifest. Empty disables it.
	Manifest string `yaml:"manifest,omitempty" toml:"manifest,omitempty"`
}

// CSV configures reading of .csv exports.
type CSV struct {
	// Delimiter is a single character or "tab". Default: ";"
	Delimiter string `yaml:"delimiter" toml:"delimiter"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads, completes and validates the configuration at path.
func Load(path string) (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration data, as TOML when isTOML is set and YAML
// otherwise. No defaults or validation are applied.
func Parse(data []byte, isTOML bool) (*Config, error) {
	var cfg Config
	if isTOML {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvLabelsToken); v != "" {
		cfg.LabelSource.Token = v
	}
	if v := os.Getenv(EnvLabelsURL); v != "" {
		cfg.LabelSource.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "./templates"
	}
	if cfg.LabelSource.Type == "" {
		if cfg.LabelSource.File != "" {
			cfg.LabelSource.Type = LabelSourceFile
		} else {
			cfg.LabelSource.Type = LabelSourceHTTP
		}
	}
	if cfg.LabelSource.Timeout == "" {
		cfg.LabelSource.Timeout = "30s"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = step.StorageLocal
	}
	if cfg.CSV.Delimiter == "" {
		cfg.CSV.Delimiter = ";"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration. The returned error wraps ErrInvalid.
func (c *Config) Validate() error {
	var problems []string

	if _, err := locale.NewResolver(c.Currencies); err != nil {
		problems = append(problems, err.Error())
	}
	for lang, code := range c.Currencies {
		if _, err := currency.ParseISO(code); err != nil {
			problems = append(problems, fmt.Sprintf("currency %q for %s is not an ISO 4217 code", code, lang))
		}
	}

	if len(c.Locales) == 0 {
		problems = append(problems, "no locales configured")
	}
	for _, loc := range c.Locales {
		if _, err := locale.Normalize(loc); err != nil {
			problems = append(problems, err.Error())
		}
	}

	catalog, err := templates.NewCatalog(c.TemplateDefinitions, nil)
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		for _, rule := range c.Templates {
			if rule.Prefix == "" {
				problems = append(problems, fmt.Sprintf("template rule for %q has no prefix", rule.Template))
			}
			if !catalog.Has(rule.Template) {
				problems = append(problems, fmt.Sprintf("template rule %q names unknown template %q", rule.Prefix, rule.Template))
			}
		}
	}

	switch c.LabelSource.Type {
	case LabelSourceHTTP:
		if c.LabelSource.BaseURL == "" && len(c.Attributes) > 0 {
			problems = append(problems, "label_source.base_url is required for the http label source")
		}
	case LabelSourceFile:
		if c.LabelSource.File == "" {
			problems = append(problems, "label_source.file is required for the file label source")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown label source type %q", c.LabelSource.Type))
	}
	if _, err := time.ParseDuration(c.LabelSource.Timeout); err != nil {
		problems = append(problems, fmt.Sprintf("label_source.timeout: %v", err))
	}

	switch strings.ToLower(c.CSV.Delimiter) {
	case "tab", "\\t", "pipe", "semicolon":
	default:
		if len([]rune(c.CSV.Delimiter)) != 1 {
			problems = append(problems, fmt.Sprintf("csv delimiter %q must be a single character", c.CSV.Delimiter))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
