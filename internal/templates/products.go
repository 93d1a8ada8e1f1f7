package templates

import (
	"github.com/ginjaninja78/export-converter/internal/engine"
	"github.com/ginjaninja78/export-converter/internal/sheet"
	"github.com/ginjaninja78/export-converter/internal/transform"
)

// Products destination columns.
const (
	productsSKU = iota
	productsName
	productsDescription
	productsShortDescription
	productsBrand
	productsColor
	productsWeight
	productsEAN
	productsPrice
	productsVegan
	productsParent
)

// Products fills the shop catalogue sheet from a PIM product export. The
// locale is given by the caller; empty option codes are left empty.
type Products struct {
	locale  string
	columns []engine.ColumnMapping
}

// NewProducts returns the products template bound to locale.
func NewProducts(locale string) *Products {
	return &Products{
		locale: locale,
		columns: []engine.ColumnMapping{
			{Pos: productsSKU, Source: "sku"},
			{Pos: productsName, Source: "name-" + locale},
			{Pos: productsDescription, Source: "description-" + locale + "-ecommerce"},
			{Pos: productsShortDescription, Source: "short_description-" + locale + "-ecommerce"},
			{Pos: productsBrand, Source: "brand"},
			{Pos: productsColor, Source: "color"},
			{Pos: productsWeight, Source: "weight"},
			{Pos: productsEAN, Source: "ean-" + locale},
			{Pos: productsPrice, Source: ""},
			{Pos: productsVegan, Source: "certificates"},
			{Pos: productsParent, Source: "parent"},
		},
	}
}

// Layout places the rows on the "Products" sheet of products.xlsx, from row 2.
func (t *Products) Layout() engine.Layout {
	return engine.Layout{
		TemplateFile: "products.xlsx",
		SheetName:    "Products",
		StartingRow:  2,
	}
}

// ColumnMap returns the destination columns bound to the template locale.
func (t *Products) ColumnMap() []engine.ColumnMapping {
	return t.columns
}

// Converters cleans the texts, translates colour and brand, scales the weight
// to kilograms, reads the price in the pass currency and fills a missing
// parent with the sku.
func (t *Products) Converters(p *engine.Pass) map[int]engine.ConvertFunc {
	return map[int]engine.ConvertFunc{
		productsName: func(value any, col int, row []any) any {
			return transform.CleanText(value)
		},
		productsDescription: func(value any, col int, row []any) any {
			return transform.StripTagsAndBr2Nl(value)
		},
		productsShortDescription: func(value any, col int, row []any) any {
			return transform.CleanText(value)
		},
		productsBrand: p.Select,
		productsColor: p.Select,
		productsWeight: func(value any, col int, row []any) any {
			// grams in the PIM, kilograms in the shop
			return transform.ChangeWeight(value, 0.001)
		},
		productsPrice: func(value any, col int, row []any) any {
			return p.Value(row, "price-"+p.Currency)
		},
		productsVegan: func(value any, col int, row []any) any {
			return transform.SayYes(value, "vegan", "Yes", "No")
		},
		productsParent: func(value any, col int, row []any) any {
			if transform.IsEmpty(value) {
				return p.ExtractValueFromSource(productsSKU, row)
			}
			return value
		},
	}
}

// ShouldSkipRow drops disabled products.
func (t *Products) ShouldSkipRow(p *engine.Pass, row []any) bool {
	return sheet.FormatValue(p.Value(row, "enabled")) == "0"
}

// ExtendCellTypes keeps parent codes as text and weights as numbers.
func (t *Products) ExtendCellTypes(p *engine.Pass) map[string]sheet.CellType {
	return map[string]sheet.CellType{
		"parent": sheet.TypeText,
		"weight": sheet.TypeNumber,
	}
}

// Headers returns the header labels written by WriteTemplateFile.
func (t *Products) Headers() map[int]string {
	return map[int]string{
		productsSKU:              "SKU",
		productsName:             "Name",
		productsDescription:      "Description",
		productsShortDescription: "Short description",
		productsBrand:            "Brand",
		productsColor:            "Colour",
		productsWeight:           "Weight (kg)",
		productsEAN:              "EAN",
		productsPrice:            "Price",
		productsVegan:            "Vegan",
		productsParent:           "Parent SKU",
	}
}
