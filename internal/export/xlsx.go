package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

const defaultSheet = "Sheet1"

// XLSX encodes t as a single-sheet workbook. Numeric cells are written as numbers.
func XLSX(t *table.Table, sheet string) ([]byte, error) {
	sheet = sheetName(sheet)
	f := excelize.NewFile()
	defer f.Close()
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}
	header := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		header[j] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.Rows(); i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := cells(t, i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName makes s a valid worksheet name.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Trim(s, "'")
	if r := []rune(s); len(r) > 31 {
		s = string(r[:31])
	}
	if s == "" {
		return defaultSheet
	}
	return s
}
