// =============================================================================
// Export Converter - Template Contract
// =============================================================================
//
// A template describes one destination layout: which workbook to fill, where
// to start writing, which source column feeds each destination column and how
// the values are converted on the way.
//
// REQUIRED:
//   Layout     : destination file, sheet, starting row and policies
//   ColumnMap  : ordered destination position -> source column name
//   Converters : per-column conversion functions, bound to one Pass
//
// OPTIONAL:
//   RowSkipper       : exclude source rows from the output
//   CellTypeExtender : force cell types for more source columns
//
// =============================================================================

package engine

import (
	"github.com/ginjaninja78/export-converter/internal/sheet"
)

// NoColumn is the source index of the empty column name. Destination columns
// mapped to "" are intentionally left unfilled.
const NoColumn = -1

// DefaultStartingRow is the first destination row written when a layout
// does not set one. Row 1 holds the template's own header.
const DefaultStartingRow = 2

// =============================================================================
// POLICIES
// =============================================================================

// EmptyPolicy decides how SelectAttribute treats empty values.
type EmptyPolicy int

const (
	// EmptyPassThrough returns empty values untouched.
	EmptyPassThrough EmptyPolicy = iota

	// EmptyAsOption translates empty values like any other option code.
	EmptyAsOption
)

// String returns the configuration name of the policy.
func (p EmptyPolicy) String() string {
	if p == EmptyAsOption {
		return "option"
	}
	return "pass_through"
}

// LocaleSource decides where the language of a pass comes from.
type LocaleSource int

const (
	// LocaleGiven uses the locale the engine was created with.
	LocaleGiven LocaleSource = iota

	// LocaleFromHeader scans the source header for a known locale tag.
	LocaleFromHeader
)

// String returns the configuration name of the locale source.
func (s LocaleSource) String() string {
	if s == LocaleFromHeader {
		return "header"
	}
	return "given"
}

// =============================================================================
// TEMPLATE TYPES
// =============================================================================

// ColumnMapping feeds destination column Pos from source column Source.
type ColumnMapping struct {
	// Pos is the zero-based destination column (0 = A).
	Pos int

	// Source is the source header name. "" leaves the column empty.
	Source string

	// Attribute overrides the attribute identifier used by SelectAttribute.
	// Defaults to Source.
	Attribute string
}

// AttributeName returns the attribute identifier translated for this column.
func (m ColumnMapping) AttributeName() string {
	if m.Attribute != "" {
		return m.Attribute
	}
	return m.Source
}

// ConvertFunc converts the raw value of one destination column. col is the
// destination position and row the full source row.
type ConvertFunc func(value any, col int, row []any) any

// Layout holds the fixed settings of a template.
type Layout struct {
	// TemplateFile is the destination workbook. Relative paths are resolved
	// against Options.TemplatesDir.
	TemplateFile string

	// SheetIndex selects the destination sheet by zero-based index.
	SheetIndex *int

	// SheetName selects the destination sheet by name. Used when SheetIndex
	// is nil. With neither set the active sheet is used.
	SheetName string

	// StartingRow is the first 1-based destination row written.
	StartingRow int

	EmptyPolicy  EmptyPolicy
	LocaleSource LocaleSource
}

func (l Layout) startingRow() int {
	if l.StartingRow <= 0 {
		return DefaultStartingRow
	}
	return l.StartingRow
}

// Template is a destination layout with its conversion rules.
type Template interface {
	// Layout returns the fixed settings of the template.
	Layout() Layout

	// ColumnMap returns the destination columns in write order.
	ColumnMap() []ColumnMapping

	// Converters returns the conversion functions for one pass. Every key
	// must be a position present in ColumnMap.
	Converters(p *Pass) map[int]ConvertFunc
}

// RowSkipper is implemented by templates that exclude some source rows.
type RowSkipper interface {
	ShouldSkipRow(p *Pass, row []any) bool
}

// CellTypeExtender is implemented by templates that force cell types for
// additional source columns. Keys are source column names.
type CellTypeExtender interface {
	ExtendCellTypes(p *Pass) map[string]sheet.CellType
}

// Index returns a pointer to i, for Layout.SheetIndex literals.
func Index(i int) *int {
	return &i
}
