// =============================================================================
// Export Converter - Spreadsheet Workbook
// =============================================================================
//
// This module wraps excelize so that the conversion engine can treat both the
// source export and the destination template as a 2-D grid of cells:
//
//   - Load      : open an .xlsx/.xlsm workbook, or read a .csv export into an
//                 in-memory workbook
//   - Rows      : read the active sheet as a Grid (nil for empty cells)
//   - SetCell   : write one cell, optionally forcing its type
//   - SaveAs    : write the workbook to a new file
//
// CELL TYPES:
//   A plain write behaves like a spreadsheet "value binder": strings that look
//   like numbers are stored as numbers. Identifier and barcode columns must
//   stay text, so the engine forces TypeText for them.
//
// =============================================================================

package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrLoad is returned when a file cannot be read as tabular data.
	ErrLoad = errors.New("cannot load spreadsheet")

	// ErrWrite is returned when a workbook cannot be written.
	ErrWrite = errors.New("cannot write spreadsheet")
)

// =============================================================================
// TYPES
// =============================================================================

// Grid is an ordered sequence of rows of heterogeneous cells
// (string, number, bool or nil).
type Grid [][]any

// CellType is the type forced on a cell when it is written.
type CellType int

const (
	// TypeAuto stores numeric-looking strings as numbers.
	TypeAuto CellType = iota

	// TypeText always stores the value as a string.
	TypeText

	// TypeNumber stores the value as a number when it parses as one.
	TypeNumber
)

// String returns the configuration name of the type.
func (t CellType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeNumber:
		return "number"
	default:
		return "auto"
	}
}

// ParseCellType maps a configuration name to a CellType.
func ParseCellType(name string) (CellType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return TypeAuto, nil
	case "text", "string", "str", "s":
		return TypeText, nil
	case "number", "numeric", "n":
		return TypeNumber, nil
	default:
		return TypeAuto, fmt.Errorf("unknown cell type %q", name)
	}
}

// Options controls how source files are read.
type Options struct {
	// CSVDelimiter is the field separator for .csv files. Default ','.
	CSVDelimiter rune
}

// Workbook is a loaded spreadsheet.
type Workbook struct {
	path string
	file *excelize.File
}

// =============================================================================
// LOADING
// =============================================================================

// Load opens the spreadsheet at path. CSV files are read into a single-sheet
// in-memory workbook. Any failure wraps ErrLoad.
func Load(path string, opts Options) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := readCSV(path, opts.CSVDelimiter)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrLoad, path, err)
		}
		return &Workbook{path: path, file: f}, nil
	default:
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrLoad, path, err)
		}
		return &Workbook{path: path, file: f}, nil
	}
}

// New returns an empty workbook with one sheet named "Sheet1".
func New() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// Path returns the file the workbook was loaded from.
func (w *Workbook) Path() string {
	return w.path
}

// Close releases the workbook's resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// =============================================================================
// SHEET SELECTION
// =============================================================================

// ActiveSheet returns the name of the active sheet.
func (w *Workbook) ActiveSheet() string {
	return w.file.GetSheetName(w.file.GetActiveSheetIndex())
}

// SelectSheetIndex makes the sheet at the zero-based index active.
func (w *Workbook) SelectSheetIndex(index int) error {
	if index < 0 || index >= w.file.SheetCount {
		return fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", index, w.file.SheetCount)
	}
	w.file.SetActiveSheet(index)
	return nil
}

// SelectSheetName makes the named sheet active.
func (w *Workbook) SelectSheetName(name string) error {
	index, err := w.file.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("sheet %q: %w", name, err)
	}
	if index < 0 {
		return fmt.Errorf("sheet %q not found", name)
	}
	w.file.SetActiveSheet(index)
	return nil
}

// RenameActiveSheet renames the active sheet.
func (w *Workbook) RenameActiveSheet(name string) error {
	return w.file.SetSheetName(w.ActiveSheet(), name)
}

// AddSheet appends an empty sheet.
func (w *Workbook) AddSheet(name string) error {
	_, err := w.file.NewSheet(name)
	return err
}

// SheetCount returns the number of sheets.
func (w *Workbook) SheetCount() int {
	return w.file.SheetCount
}

// =============================================================================
// READING
// =============================================================================

// Rows returns the active sheet as a Grid. Every row is padded to the width
// of the widest row and empty cells are nil.
func (w *Workbook) Rows() (Grid, error) {
	raw, err := w.file.GetRows(w.ActiveSheet())
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrLoad, w.path, err)
	}

	width := 0
	for _, row := range raw {
		if len(row) > width {
			width = len(row)
		}
	}

	grid := make(Grid, len(raw))
	for i, row := range raw {
		cells := make([]any, width)
		for j, value := range row {
			if value != "" {
				cells[j] = value
			}
		}
		grid[i] = cells
	}

	return grid, nil
}

// CellValue returns the formatted value of the cell at zero-based col and
// 1-based row of the active sheet.
func (w *Workbook) CellValue(col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return "", err
	}
	return w.file.GetCellValue(w.ActiveSheet(), cell)
}

// =============================================================================
// WRITING
// =============================================================================

// SetCell writes value at zero-based col and 1-based row of the active sheet.
func (w *Workbook) SetCell(col, row int, value any, typ CellType) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	sheet := w.ActiveSheet()

	switch typ {
	case TypeText:
		if value == nil {
			err = w.file.SetCellValue(sheet, cell, nil)
		} else {
			err = w.file.SetCellStr(sheet, cell, FormatValue(value))
		}
	case TypeNumber:
		if n, ok := parseNumber(FormatValue(value)); ok {
			err = w.file.SetCellValue(sheet, cell, n)
		} else {
			err = w.file.SetCellValue(sheet, cell, value)
		}
	default:
		if s, ok := value.(string); ok && looksNumeric(s) {
			n, _ := parseNumber(s)
			err = w.file.SetCellValue(sheet, cell, n)
		} else {
			err = w.file.SetCellValue(sheet, cell, value)
		}
	}

	if err != nil {
		return fmt.Errorf("%w: cell %s: %v", ErrWrite, cell, err)
	}
	return nil
}

// SaveAs writes the workbook to path. Failures wrap ErrWrite.
func (w *Workbook) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, err)
	}
	return nil
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

var numericPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\d*\.?\d+)([Ee][-+]?[0-2]?\d{1,2})?$`)

// looksNumeric reports whether a naive writer would store s as a number.
// Values with a leading zero ("0123") stay text.
func looksNumeric(s string) bool {
	if !numericPattern.MatchString(s) {
		return false
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return false
	}
	return true
}

// parseNumber parses s as int64 when possible, otherwise as float64.
func parseNumber(s string) (any, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// FormatValue renders a cell value as text. Floats use the shortest
// representation and nil becomes the empty string.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}
