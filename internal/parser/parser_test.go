package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/pivotloom-cli/internal/parser"
)

func TestParseCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sales.csv")
	content := "\uFEFFregion,product,sales\nE,A,10\nW,B,20\n\nE,B\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	g, err := parser.ParseFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Name != "sales.csv" {
		t.Fatalf("name = %q", g.Name)
	}
	if !reflect.DeepEqual(g.Header, []string{"region", "product", "sales"}) {
		t.Fatalf("header = %q", g.Header)
	}
	want := [][]string{{"E", "A", "10"}, {"W", "B", "20"}, {"E", "B", ""}}
	if !reflect.DeepEqual(g.Rows, want) {
		t.Fatalf("rows = %q, want %q", g.Rows, want)
	}
}

func TestParseRejectsWideRows(t *testing.T) {
	_, err := parser.Parse("bad.csv", []byte("a,b\n1,2\n1,2,3\n"), parser.Options{})
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Fatalf("line = %d, want 3", pe.Line)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \n", "\uFEFF"} {
		_, err := parser.Parse("", []byte(in), parser.Options{})
		var pe *parser.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Parse(%q): expected ParseError, got %v", in, err)
		}
	}
}

func TestParsePastedText(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		header []string
		rows   int
	}{
		{"tabs", "region\tsales\r\nE\t10\r\nW\t20\r\n", []string{"region", "sales"}, 2},
		{"comma fallback", "region,sales\nE,10\n", []string{"region", "sales"}, 1},
		{"single column", "region\nE\nW\n", []string{"region"}, 2},
		{"tabs with commas in cells", "name\tnote\nx\ta,b\n", []string{"name", "note"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := parser.Parse("", []byte(tt.in), parser.Options{})
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(g.Header, tt.header) || len(g.Rows) != tt.rows {
				t.Fatalf("got header %q rows %d", g.Header, len(g.Rows))
			}
		})
	}
}

func TestParsePastedTextFailure(t *testing.T) {
	_, err := parser.Parse("", []byte("a\tb\n\"oops\n"), parser.Options{})
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseMaxRows(t *testing.T) {
	_, err := parser.Parse("x.csv", []byte("a\n1\n2\n3\n"), parser.Options{MaxRows: 2})
	var pe *parser.ParseError
	if !errors.As(err, &pe) || !strings.Contains(pe.Error(), "exceeds") {
		t.Fatalf("expected row limit error, got %v", err)
	}
}

func TestParseLegacyXLS(t *testing.T) {
	_, err := parser.Parse("old.xls", []byte("\xd0\xcf\x11\xe0"), parser.Options{})
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
