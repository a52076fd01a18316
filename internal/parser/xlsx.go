package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxDecoder struct{}

func (xlsxDecoder) CanParse(filename string) bool { return hasExt(filename, ".xlsx", ".xlsm") }

// Decode reads one sheet, chosen by name or 1-based index, defaulting to the first.
func (xlsxDecoder) Decode(name string, data []byte, opt Options) (*Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Source: name, Reason: "open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	sheet, err := pickSheet(sheets, opt)
	if err != nil {
		return nil, &ParseError{Source: name, Reason: err.Error()}
	}
	// Stored values, not the number-format rendering ("12.50%", "1,234,568").
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Source: name, Reason: fmt.Sprintf("read sheet %q", sheet), Err: err}
	}
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, &ParseError{Source: name, Reason: fmt.Sprintf("sheet %q has no header row", sheet)}
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	g := &Grid{Name: name, Sheet: sheet, Header: pad(rows[0], width)}
	for _, r := range rows[1:] {
		if blankRow(r) {
			continue
		}
		g.Rows = append(g.Rows, pad(r, width))
	}
	return g, nil
}

func pickSheet(sheets []string, opt Options) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found; available sheets: %s", opt.Sheet, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
	}
	return sheets[idx-1], nil
}

// legacyXLSDecoder rejects binary .xls workbooks explicitly instead of reading them as text.
type legacyXLSDecoder struct{}

func (legacyXLSDecoder) CanParse(filename string) bool { return hasExt(filename, ".xls") }

func (legacyXLSDecoder) Decode(name string, _ []byte, _ Options) (*Grid, error) {
	return nil, &ParseError{Source: name, Reason: "legacy .xls workbooks are not supported; save as .xlsx"}
}
