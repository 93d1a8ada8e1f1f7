package engine

import (
	"strings"

	"github.com/ginjaninja78/export-converter/internal/sheet"
	"github.com/ginjaninja78/export-converter/internal/transform"
)

// AttributeSeparator splits multi-select option codes.
const AttributeSeparator = ","

// Pass is the state of one conversion pass: the detected language and
// currency, the source column index and the output row counter. A Pass is
// created by Convert and never shared between locales or files.
type Pass struct {
	// Language is the language used for translations and currency lookup.
	Language string

	// Currency is the currency resolved for Language.
	Currency string

	columns    map[string]int
	mapping    []ColumnMapping
	byPos      map[int]ColumnMapping
	translator Translator
	policy     EmptyPolicy
	extender   CellTypeExtender

	row       int
	cellTypes map[string]sheet.CellType
}

func newPass(tpl Template, translator Translator, header []any) *Pass {
	p := &Pass{
		columns:    indexHeader(header),
		mapping:    tpl.ColumnMap(),
		translator: translator,
		policy:     tpl.Layout().EmptyPolicy,
		row:        tpl.Layout().startingRow(),
	}
	p.byPos = make(map[int]ColumnMapping, len(p.mapping))
	for _, m := range p.mapping {
		p.byPos[m.Pos] = m
	}
	if ext, ok := tpl.(CellTypeExtender); ok {
		p.extender = ext
	}
	return p
}

// indexHeader inverts the header row. A repeated name keeps its last
// position. The empty name always maps to NoColumn.
func indexHeader(header []any) map[string]int {
	columns := make(map[string]int, len(header)+1)
	for i, cell := range header {
		name := sheet.FormatValue(cell)
		if name == "" {
			continue
		}
		columns[name] = i
	}
	columns[""] = NoColumn
	return columns
}

// Columns returns a copy of the source column index.
func (p *Pass) Columns() map[string]int {
	out := make(map[string]int, len(p.columns))
	for k, v := range p.columns {
		out[k] = v
	}
	return out
}

// Column returns the position of a source column.
func (p *Pass) Column(name string) (int, bool) {
	i, ok := p.columns[name]
	return i, ok
}

// Row returns the destination row the pass writes next.
func (p *Pass) Row() int {
	return p.row
}

// Value returns the cell of row under the source column name, or nil.
func (p *Pass) Value(row []any, name string) any {
	i, ok := p.columns[name]
	if !ok || i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// ExtractValueFromSource returns the raw source value that feeds the
// destination column col.
func (p *Pass) ExtractValueFromSource(col int, row []any) any {
	m, ok := p.byPos[col]
	if !ok {
		return nil
	}
	return p.Value(row, m.Source)
}

// =============================================================================
// ATTRIBUTE TRANSLATION
// =============================================================================

// SelectAttribute translates an option code of destination column col to
// its label in the pass language. Comma separated codes are translated one
// by one and joined again. Missing labels leave the code untouched.
func (p *Pass) SelectAttribute(value any, col int) any {
	return p.SelectAttributeWith(value, col, AttributeSeparator)
}

// Select is SelectAttribute as a ConvertFunc.
func (p *Pass) Select(value any, col int, _ []any) any {
	return p.SelectAttribute(value, col)
}

// SelectAttributeWith is SelectAttribute joining multiple labels with
// separator.
func (p *Pass) SelectAttributeWith(value any, col int, separator string) any {
	if p.policy == EmptyPassThrough && transform.IsEmpty(value) {
		return value
	}

	code := sheet.FormatValue(value)
	if strings.Contains(code, AttributeSeparator) {
		parts := strings.Split(code, AttributeSeparator)
		labels := make([]string, len(parts))
		for i, part := range parts {
			labels[i] = sheet.FormatValue(p.SelectAttributeWith(part, col, separator))
		}
		return strings.Join(labels, separator)
	}

	label := p.translator.GetMappedAttribute(p.attributeFor(col), code, p.Language)
	if label == code {
		return value
	}
	return label
}

func (p *Pass) attributeFor(col int) string {
	if m, ok := p.byPos[col]; ok {
		return m.AttributeName()
	}
	return ""
}

// =============================================================================
// CELL TYPES
// =============================================================================

// CellType returns the type forced for values taken from the source column,
// and false when the column has none.
func (p *Pass) CellType(source string) (sheet.CellType, bool) {
	if p.cellTypes == nil {
		p.cellTypes = p.buildCellTypes()
	}
	typ, ok := p.cellTypes[strings.ToLower(source)]
	return typ, ok
}

func (p *Pass) buildCellTypes() map[string]sheet.CellType {
	types := map[string]sheet.CellType{"sku": sheet.TypeText}
	types[strings.ToLower("ean-"+p.Language)] = sheet.TypeText
	if p.extender != nil {
		for name, typ := range p.extender.ExtendCellTypes(p) {
			types[strings.ToLower(name)] = typ
		}
	}
	return types
}
