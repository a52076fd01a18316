package parser_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/pivotloom-cli/internal/parser"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"region", "sales"},
		{"E", 10},
		{},
		{"W", 20.5},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if _, err := f.NewSheet("Targets"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := f.SetSheetRow("Targets", "A1", &[]any{"region", "target", "owner"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if err := f.SetSheetRow("Targets", "A2", &[]any{"E", 12}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseXLSXFirstSheet(t *testing.T) {
	g, err := parser.Parse("book.xlsx", buildWorkbook(t), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Sheet != "Sheet1" {
		t.Fatalf("sheet = %q", g.Sheet)
	}
	want := [][]string{{"E", "10"}, {"W", "20.5"}}
	if !reflect.DeepEqual(g.Rows, want) {
		t.Fatalf("rows = %q, want %q", g.Rows, want)
	}
}

func TestParseXLSXSelectSheet(t *testing.T) {
	data := buildWorkbook(t)
	for _, opt := range []parser.Options{{Sheet: "targets"}, {SheetIndex: 2}} {
		g, err := parser.Parse("book.xlsx", data, opt)
		if err != nil {
			t.Fatalf("parse %+v: %v", opt, err)
		}
		if g.Sheet != "Targets" || len(g.Header) != 3 {
			t.Fatalf("got sheet %q header %q", g.Sheet, g.Header)
		}
		if !reflect.DeepEqual(g.Rows[0], []string{"E", "12", ""}) {
			t.Fatalf("short row not padded: %q", g.Rows[0])
		}
	}
}

func TestParseXLSXUnknownSheet(t *testing.T) {
	_, err := parser.Parse("book.xlsx", buildWorkbook(t), parser.Options{Sheet: "Missing"})
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !strings.Contains(pe.Error(), "Sheet1, Targets") {
		t.Fatalf("error should list sheets: %v", pe)
	}
}

func TestParseXLSXIgnoresNumberFormats(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"region", "rate"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	cells := []struct {
		row    int
		region string
		value  float64
		numFmt int
	}{
		{2, "E", 0.125, 10},      // 0.00%
		{3, "W", 1234567.891, 3}, // #,##0
	}
	for _, c := range cells {
		style, err := f.NewStyle(&excelize.Style{NumFmt: c.numFmt})
		if err != nil {
			t.Fatalf("new style: %v", err)
		}
		ref, _ := excelize.CoordinatesToCellName(2, c.row)
		if err := f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", c.row), &[]any{c.region, c.value}); err != nil {
			t.Fatalf("set row: %v", err)
		}
		if err := f.SetCellStyle("Sheet1", ref, ref, style); err != nil {
			t.Fatalf("set style: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	g, err := parser.Parse("styled.xlsx", buf.Bytes(), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := [][]string{{"E", "0.125"}, {"W", "1234567.891"}}
	if !reflect.DeepEqual(g.Rows, want) {
		t.Fatalf("rows = %q, want %q", g.Rows, want)
	}
}
