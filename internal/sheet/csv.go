package sheet

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// readCSV reads a delimited export into a fresh workbook. Every field is
// stored as a string so that the grid sees exactly what the export contains.
func readCSV(path string, delimiter rune) (*excelize.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	configureReader(reader, delimiter)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, record := range records {
		for j, value := range record {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStr(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

// configureReader applies the export dialect: configurable separator,
// ragged rows and lenient quoting.
func configureReader(reader *csv.Reader, delimiter rune) {
	if delimiter == 0 {
		delimiter = ','
	}
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// ParseDelimiter maps a configuration value to a CSV separator rune.
func ParseDelimiter(value string) rune {
	switch strings.ToLower(value) {
	case "\\t", "tab":
		return '\t'
	case "|", "pipe":
		return '|'
	case ";", "semicolon":
		return ';'
	case "":
		return ','
	default:
		return []rune(value)[0]
	}
}
