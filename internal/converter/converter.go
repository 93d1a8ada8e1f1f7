// =============================================================================
// Export Converter - Converter Module
// =============================================================================
//
// The Converter is the single dependency handed to templates. It composes:
//
//   1. The template registry  : ordered filename prefix -> template rules
//   2. The locale resolver    : language -> currency
//   3. The attribute service  : option code -> label translation
//
// The engine only sees the Translator side (currency, labels, known locales).
// The step uses MatchTemplate to pick a template for a file.
//
// =============================================================================

package converter

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/attributes"
	"github.com/ginjaninja78/export-converter/internal/locale"
)

// =============================================================================
// TEMPLATE REGISTRY
// =============================================================================

// Rule maps files whose base name starts with Prefix to a template tag.
type Rule struct {
	Prefix   string `yaml:"prefix" toml:"prefix"`
	Template string `yaml:"template" toml:"template"`
}

// Registry holds the template rules in configuration order.
type Registry struct {
	rules []Rule
}

// NewRegistry returns a Registry over a copy of rules.
func NewRegistry(rules []Rule) *Registry {
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Registry{rules: r}
}

// Match returns the template tag of the first rule whose prefix starts the
// base name of file.
func (r *Registry) Match(file string) (string, bool) {
	name := filepath.Base(file)
	for _, rule := range r.rules {
		if strings.HasPrefix(name, rule.Prefix) {
			return rule.Template, true
		}
	}
	return "", false
}

// Rules returns a copy of the rules.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// =============================================================================
// CONVERTER
// =============================================================================

// Converter composes the registry, the locale resolver and the attribute
// translation service.
type Converter struct {
	registry   *Registry
	currencies *locale.Resolver
	labels     *attributes.Service
	locales    []string
	logger     *zap.Logger
}

// New creates a Converter. locales lists the known locale tags used for
// header language detection.
func New(registry *Registry, currencies *locale.Resolver, labels *attributes.Service, locales []string, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := make([]string, len(locales))
	copy(known, locales)

	return &Converter{
		registry:   registry,
		currencies: currencies,
		labels:     labels,
		locales:    known,
		logger:     logger.Named("converter"),
	}
}

// MatchTemplate returns the template tag configured for file.
func (c *Converter) MatchTemplate(file string) (string, bool) {
	tag, ok := c.registry.Match(file)
	if ok {
		c.logger.Debug("template matched", zap.String("file", filepath.Base(file)), zap.String("template", tag))
	}
	return tag, ok
}

// DetectCurrency returns the currency code for language.
func (c *Converter) DetectCurrency(language string) string {
	return c.currencies.DetectCurrency(language)
}

// GetMappedAttribute returns the label of code, or code when no label is
// known.
func (c *Converter) GetMappedAttribute(attribute, code, language string) string {
	return c.labels.Lookup(attribute, code, language)
}

// Locales returns the known locale tags.
func (c *Converter) Locales() []string {
	out := make([]string, len(c.locales))
	copy(out, c.locales)
	return out
}

// Prepare builds the label map so that label source failures surface as an
// error instead of untranslated output.
func (c *Converter) Prepare(ctx context.Context) error {
	_, err := c.labels.Load(ctx)
	return err
}

// Diagnostics returns the missing-label diagnostics recorded so far.
func (c *Converter) Diagnostics() []attributes.Diagnostic {
	return c.labels.Diagnostics()
}
