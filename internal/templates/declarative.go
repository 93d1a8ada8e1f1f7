// =============================================================================
// Export Converter - Declarative Templates
// =============================================================================
//
// Templates can be described entirely in configuration:
//
//   template_definitions:
//     - name: wholesale
//       template_file: wholesale.xlsx
//       sheet: Items
//       starting_row: 3
//       empty_policy: pass_through     # or "option"
//       locale_source: given           # or "header"
//       skip:
//         column: enabled
//         equals: ["0"]
//       columns:
//         - pos: 0
//           source: sku
//           type: text
//         - pos: 1
//           source: "name-{locale}"
//           actions:
//             - type: clean_text
//             - type: uppercase
//         - pos: 2
//           source: color
//           actions:
//             - type: select_attribute
//
// "{locale}" in a source name is replaced with the locale of the pass. It is
// not allowed in templates that detect the locale from the header.
//
// =============================================================================

package templates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/engine"
	"github.com/ginjaninja78/export-converter/internal/sheet"
	"github.com/ginjaninja78/export-converter/internal/transform"
)

// LocalePlaceholder is replaced with the pass locale in source names.
const LocalePlaceholder = "{locale}"

// =============================================================================
// DEFINITION STRUCTURES
// =============================================================================

// Definition describes a template in configuration.
type Definition struct {
	Name         string `yaml:"name" toml:"name"`
	TemplateFile string `yaml:"template_file" toml:"template_file"`

	// Sheet selects the destination sheet by name. SheetIndex wins when set.
	Sheet      string `yaml:"sheet,omitempty" toml:"sheet,omitempty"`
	SheetIndex *int   `yaml:"sheet_index,omitempty" toml:"sheet_index,omitempty"`

	StartingRow  int    `yaml:"starting_row,omitempty" toml:"starting_row,omitempty"`
	EmptyPolicy  string `yaml:"empty_policy,omitempty" toml:"empty_policy,omitempty"`
	LocaleSource string `yaml:"locale_source,omitempty" toml:"locale_source,omitempty"`

	Columns []ColumnDefinition `yaml:"columns" toml:"columns"`
	Skip    *SkipRule          `yaml:"skip,omitempty" toml:"skip,omitempty"`
}

// ColumnDefinition describes one destination column.
type ColumnDefinition struct {
	Pos       int                `yaml:"pos" toml:"pos"`
	Source    string             `yaml:"source" toml:"source"`
	Header    string             `yaml:"header,omitempty" toml:"header,omitempty"`
	Attribute string             `yaml:"attribute,omitempty" toml:"attribute,omitempty"`
	Type      string             `yaml:"type,omitempty" toml:"type,omitempty"`
	Actions   []transform.Action `yaml:"actions,omitempty" toml:"actions,omitempty"`
}

// SkipRule drops source rows whose Column is empty (Empty) or equals one of
// Equals.
type SkipRule struct {
	Column string   `yaml:"column" toml:"column"`
	Equals []string `yaml:"equals,omitempty" toml:"equals,omitempty"`
	Empty  bool     `yaml:"empty,omitempty" toml:"empty,omitempty"`
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks a definition without building it.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("template definition has no name")
	}
	if d.TemplateFile == "" {
		return fmt.Errorf("template %s: template_file is required", d.Name)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("template %s: no columns", d.Name)
	}
	if d.StartingRow < 0 {
		return fmt.Errorf("template %s: starting_row must be positive", d.Name)
	}
	if _, err := parseEmptyPolicy(d.EmptyPolicy); err != nil {
		return fmt.Errorf("template %s: %w", d.Name, err)
	}
	localeSource, err := parseLocaleSource(d.LocaleSource)
	if err != nil {
		return fmt.Errorf("template %s: %w", d.Name, err)
	}

	seen := make(map[int]bool, len(d.Columns))
	for _, col := range d.Columns {
		if col.Pos < 0 {
			return fmt.Errorf("template %s: column position %d is negative", d.Name, col.Pos)
		}
		if seen[col.Pos] {
			return fmt.Errorf("template %s: column position %d defined twice", d.Name, col.Pos)
		}
		seen[col.Pos] = true

		if localeSource == engine.LocaleFromHeader && strings.Contains(col.Source, LocalePlaceholder) {
			return fmt.Errorf("template %s: column %d uses %s but the locale is detected from the header", d.Name, col.Pos, LocalePlaceholder)
		}
		if _, err := sheet.ParseCellType(col.Type); err != nil {
			return fmt.Errorf("template %s: column %d: %w", d.Name, col.Pos, err)
		}
		for _, action := range col.Actions {
			if err := validateAction(action); err != nil {
				return fmt.Errorf("template %s: column %d: %w", d.Name, col.Pos, err)
			}
		}
	}

	return nil
}

func validateAction(action transform.Action) error {
	switch {
	case action.Type == transform.SelectAttribute:
		return nil
	case !transform.Known(action.Type):
		return fmt.Errorf("unknown transformation type: %s", action.Type)
	case action.Type == "regex_replace":
		if _, err := regexp.Compile(action.Find); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	case action.Type == "change_weight":
		if _, err := strconv.ParseFloat(action.Value, 64); err != nil {
			return fmt.Errorf("change_weight: invalid factor %q", action.Value)
		}
	}
	return nil
}

func parseEmptyPolicy(name string) (engine.EmptyPolicy, error) {
	switch name {
	case "", "pass_through":
		return engine.EmptyPassThrough, nil
	case "option":
		return engine.EmptyAsOption, nil
	default:
		return 0, fmt.Errorf("unknown empty_policy %q", name)
	}
}

func parseLocaleSource(name string) (engine.LocaleSource, error) {
	switch name {
	case "", "given":
		return engine.LocaleGiven, nil
	case "header":
		return engine.LocaleFromHeader, nil
	default:
		return 0, fmt.Errorf("unknown locale_source %q", name)
	}
}

// =============================================================================
// DECLARATIVE TEMPLATE
// =============================================================================

type declarativeColumn struct {
	mapping engine.ColumnMapping
	header  string
	typ     sheet.CellType
	typed   bool
	actions []transform.Action
}

// Declarative is a template built from a Definition.
type Declarative struct {
	layout  engine.Layout
	columns []declarativeColumn
	skip    *SkipRule
	logger  *zap.Logger
}

// NewDeclarative builds the template described by def for locale.
func NewDeclarative(def Definition, locale string, logger *zap.Logger) (*Declarative, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	policy, _ := parseEmptyPolicy(def.EmptyPolicy)
	source, _ := parseLocaleSource(def.LocaleSource)

	t := &Declarative{
		layout: engine.Layout{
			TemplateFile: def.TemplateFile,
			SheetIndex:   def.SheetIndex,
			SheetName:    def.Sheet,
			StartingRow:  def.StartingRow,
			EmptyPolicy:  policy,
			LocaleSource: source,
		},
		skip:   def.Skip,
		logger: logger.Named("template").With(zap.String("template", def.Name)),
	}

	for _, col := range def.Columns {
		typ, _ := sheet.ParseCellType(col.Type)
		t.columns = append(t.columns, declarativeColumn{
			mapping: engine.ColumnMapping{
				Pos:       col.Pos,
				Source:    strings.ReplaceAll(col.Source, LocalePlaceholder, locale),
				Attribute: col.Attribute,
			},
			header:  col.Header,
			typ:     typ,
			typed:   col.Type != "",
			actions: col.Actions,
		})
	}

	return t, nil
}

// Layout returns the layout from the definition.
func (t *Declarative) Layout() engine.Layout {
	return t.layout
}

// ColumnMap returns the configured columns, sources resolved for the locale.
func (t *Declarative) ColumnMap() []engine.ColumnMapping {
	out := make([]engine.ColumnMapping, len(t.columns))
	for i, col := range t.columns {
		out[i] = col.mapping
	}
	return out
}

// Converters chains the configured actions of every column that has some.
// An action failing on a value leaves the value as it was before the
// action.
func (t *Declarative) Converters(p *engine.Pass) map[int]engine.ConvertFunc {
	converters := make(map[int]engine.ConvertFunc)
	for _, col := range t.columns {
		if len(col.actions) == 0 {
			continue
		}
		actions := col.actions
		converters[col.mapping.Pos] = func(value any, pos int, row []any) any {
			fields := func(name string) (any, bool) {
				if _, ok := p.Column(name); !ok {
					return nil, false
				}
				return p.Value(row, name), true
			}

			for _, action := range actions {
				if action.Type == transform.SelectAttribute {
					value = p.SelectAttribute(value, pos)
					continue
				}
				next, err := transform.ApplyAction(value, action, fields)
				if err != nil {
					t.logger.Warn("transformation failed",
						zap.Int("column", pos),
						zap.String("action", action.Type),
						zap.Error(err))
					continue
				}
				value = next
			}
			return value
		}
	}
	return converters
}

// ShouldSkipRow applies the configured skip rule.
func (t *Declarative) ShouldSkipRow(p *engine.Pass, row []any) bool {
	if t.skip == nil {
		return false
	}
	value := sheet.FormatValue(p.Value(row, t.skip.Column))
	if t.skip.Empty && strings.TrimSpace(value) == "" {
		return true
	}
	for _, v := range t.skip.Equals {
		if value == v {
			return true
		}
	}
	return false
}

// ExtendCellTypes forces the configured column types.
func (t *Declarative) ExtendCellTypes(p *engine.Pass) map[string]sheet.CellType {
	types := make(map[string]sheet.CellType)
	for _, col := range t.columns {
		if col.typed && col.mapping.Source != "" {
			types[col.mapping.Source] = col.typ
		}
	}
	return types
}

// Headers returns the configured header labels.
func (t *Declarative) Headers() map[int]string {
	headers := make(map[int]string, len(t.columns))
	for _, col := range t.columns {
		header := col.header
		if header == "" {
			header = col.mapping.Source
		}
		headers[col.mapping.Pos] = header
	}
	return headers
}
