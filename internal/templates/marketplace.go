package templates

import (
	"strings"

	"github.com/ginjaninja78/export-converter/internal/engine"
	"github.com/ginjaninja78/export-converter/internal/sheet"
	"github.com/ginjaninja78/export-converter/internal/transform"
)

// Marketplace destination columns. The listing sheet leaves column D for
// the marketplace's own category id.
const (
	marketplaceSKU      = 0
	marketplaceEAN      = 1
	marketplaceTitle    = 2
	marketplaceCategory = 3
	marketplaceColor    = 4
	marketplaceSize     = 5
	marketplaceMaterial = 6
	marketplacePrice    = 7
	marketplaceCurrency = 8
	marketplaceStock    = 9
)

// Marketplace fills a marketplace listing sheet. The export carries a
// single locale, detected from its header, and option code "" is a real
// option of the marketplace attributes.
type Marketplace struct {
	columns []engine.ColumnMapping
}

// NewMarketplace returns the marketplace template.
func NewMarketplace() *Marketplace {
	return &Marketplace{
		columns: []engine.ColumnMapping{
			{Pos: marketplaceSKU, Source: "sku"},
			{Pos: marketplaceEAN, Source: "ean"},
			{Pos: marketplaceTitle, Source: ""},
			{Pos: marketplaceCategory, Source: ""},
			{Pos: marketplaceColor, Source: "color", Attribute: "marketplace_color"},
			{Pos: marketplaceSize, Source: "size", Attribute: "marketplace_size"},
			{Pos: marketplaceMaterial, Source: "material"},
			{Pos: marketplacePrice, Source: ""},
			{Pos: marketplaceCurrency, Source: ""},
			{Pos: marketplaceStock, Source: "stock"},
		},
	}
}

// Layout places the rows on the first sheet of marketplace.xlsx, from row 4.
// The locale comes from the export header and empty codes are looked up.
func (t *Marketplace) Layout() engine.Layout {
	return engine.Layout{
		TemplateFile: "marketplace.xlsx",
		SheetIndex:   engine.Index(0),
		StartingRow:  4,
		EmptyPolicy:  engine.EmptyAsOption,
		LocaleSource: engine.LocaleFromHeader,
	}
}

// ColumnMap returns the listing columns. Locale-dependent columns have no
// source and are filled by their converters.
func (t *Marketplace) ColumnMap() []engine.ColumnMapping {
	return t.columns
}

// Converters reads title and price for the detected language and currency
// and translates the marketplace attributes.
func (t *Marketplace) Converters(p *engine.Pass) map[int]engine.ConvertFunc {
	return map[int]engine.ConvertFunc{
		marketplaceTitle: func(value any, col int, row []any) any {
			return transform.CleanText(p.Value(row, "name-"+p.Language))
		},
		marketplaceColor: p.Select,
		marketplaceSize:  p.Select,
		marketplaceMaterial: func(value any, col int, row []any) any {
			return p.SelectAttributeWith(value, col, " / ")
		},
		marketplacePrice: func(value any, col int, row []any) any {
			return p.Value(row, "price-"+p.Currency)
		},
		marketplaceCurrency: func(value any, col int, row []any) any {
			return p.Currency
		},
	}
}

// ShouldSkipRow drops rows without a sku and product models, which the
// export lists with an empty ean.
func (t *Marketplace) ShouldSkipRow(p *engine.Pass, row []any) bool {
	return strings.TrimSpace(sheet.FormatValue(p.Value(row, "sku"))) == "" ||
		sheet.FormatValue(p.Value(row, "ean")) == ""
}

// ExtendCellTypes keeps ean codes as text and stock as numbers.
func (t *Marketplace) ExtendCellTypes(p *engine.Pass) map[string]sheet.CellType {
	return map[string]sheet.CellType{
		"ean":   sheet.TypeText,
		"stock": sheet.TypeNumber,
	}
}

// Headers returns the header labels written by WriteTemplateFile.
func (t *Marketplace) Headers() map[int]string {
	return map[int]string{
		marketplaceSKU:      "seller-sku",
		marketplaceEAN:      "product-id",
		marketplaceTitle:    "title",
		marketplaceCategory: "category",
		marketplaceColor:    "color",
		marketplaceSize:     "size",
		marketplaceMaterial: "material",
		marketplacePrice:    "price",
		marketplaceCurrency: "currency",
		marketplaceStock:    "quantity",
	}
}
