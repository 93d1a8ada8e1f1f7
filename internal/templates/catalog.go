// =============================================================================
// Export Converter - Template Catalog
// =============================================================================
//
// The catalog maps template tags (the names used in the "templates" rules)
// to factories. Built-in templates are always registered; declarative
// templates from the configuration are added next to them and may not reuse
// a built-in name.
//
// =============================================================================

package templates

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ginjaninja78/export-converter/internal/engine"
	"github.com/ginjaninja78/export-converter/internal/sheet"
)

// Built-in template tags.
const (
	ProductsTag    = "products"
	MarketplaceTag = "marketplace"
)

// Factory builds a template instance bound to one locale.
type Factory func(locale string) (engine.Template, error)

// Headered is implemented by templates that know their destination header
// labels, keyed by column position.
type Headered interface {
	Headers() map[int]string
}

// Catalog holds the template factories by tag.
type Catalog struct {
	factories map[string]Factory
}

// Builtins returns the tags of the built-in templates.
func Builtins() []string {
	return []string{ProductsTag, MarketplaceTag}
}

// NewCatalog registers the built-in templates and the declarative
// definitions.
func NewCatalog(definitions []Definition, logger *zap.Logger) (*Catalog, error) {
	c := &Catalog{
		factories: map[string]Factory{
			ProductsTag: func(locale string) (engine.Template, error) {
				return NewProducts(locale), nil
			},
			MarketplaceTag: func(string) (engine.Template, error) {
				return NewMarketplace(), nil
			},
		},
	}

	for _, def := range definitions {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.factories[def.Name]; exists {
			return nil, fmt.Errorf("template %s is already registered", def.Name)
		}
		c.factories[def.Name] = func(locale string) (engine.Template, error) {
			return NewDeclarative(def, locale, logger)
		}
	}

	return c, nil
}

// Build returns a fresh instance of the named template for locale.
func (c *Catalog) Build(name, locale string) (engine.Template, error) {
	factory, ok := c.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	return factory(locale)
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.factories[name]
	return ok
}

// Names returns the registered tags in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// TEMPLATE FILES
// =============================================================================

// WriteTemplateFile creates an empty destination workbook for tpl at path:
// the sheet named or indexed by its layout, with the header labels on the
// row above the starting row.
func WriteTemplateFile(tpl engine.Template, path string) error {
	layout := tpl.Layout()
	wb := sheet.New()
	defer wb.Close()

	switch {
	case layout.SheetIndex != nil:
		for wb.SheetCount() <= *layout.SheetIndex {
			if err := wb.AddSheet(fmt.Sprintf("Sheet%d", wb.SheetCount()+1)); err != nil {
				return fmt.Errorf("%w: %v", sheet.ErrWrite, err)
			}
		}
		if err := wb.SelectSheetIndex(*layout.SheetIndex); err != nil {
			return fmt.Errorf("%w: %v", sheet.ErrWrite, err)
		}
	case layout.SheetName != "":
		if err := wb.RenameActiveSheet(layout.SheetName); err != nil {
			return fmt.Errorf("%w: %v", sheet.ErrWrite, err)
		}
	}

	headerRow := layout.StartingRow - 1
	if layout.StartingRow <= 0 {
		headerRow = engine.DefaultStartingRow - 1
	}

	if h, ok := tpl.(Headered); ok && headerRow >= 1 {
		for pos, label := range h.Headers() {
			if err := wb.SetCell(pos, headerRow, label, sheet.TypeText); err != nil {
				return err
			}
		}
	}

	return wb.SaveAs(path)
}
