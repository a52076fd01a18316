package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Grid is a decoded rectangular input: one header row followed by raw text rows.
// Cells are untouched apart from line-ending cleanup; typing happens in the table package.
type Grid struct {
	Name   string
	Sheet  string
	Header []string
	Rows   [][]string
}

// Options tunes decoding.
type Options struct {
	// Sheet selects a workbook sheet by name (case-insensitive).
	Sheet string
	// SheetIndex selects a workbook sheet by 1-based position when Sheet is empty.
	SheetIndex int
	// MaxRows rejects inputs with more data rows; 0 means unlimited.
	MaxRows int
}

// Decoder turns raw bytes into a Grid.
type Decoder interface {
	CanParse(filename string) bool
	Decode(name string, data []byte, opt Options) (*Grid, error)
}

var registry []Decoder

// Register adds a decoder to the registry. Earlier registrations win.
func Register(d Decoder) {
	registry = append(registry, d)
}

// Parse selects a decoder by file name and decodes data. Names without a known
// extension are treated as pasted text.
func Parse(name string, data []byte, opt Options) (*Grid, error) {
	if len(bytes.TrimSpace(stripBOM(data))) == 0 {
		return nil, &ParseError{Source: name, Reason: "input is empty"}
	}
	var dec Decoder = textDecoder{}
	for _, d := range registry {
		if d.CanParse(name) {
			dec = d
			break
		}
	}
	g, err := dec.Decode(name, data, opt)
	if err != nil {
		return nil, err
	}
	if opt.MaxRows > 0 && len(g.Rows) > opt.MaxRows {
		return nil, &ParseError{Source: name, Reason: fmt.Sprintf("%d rows exceeds the limit of %d", len(g.Rows), opt.MaxRows)}
	}
	return g, nil
}

// ParseFile reads path and decodes it with Parse.
func ParseFile(path string, opt Options) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Parse(filepath.Base(path), data, opt)
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
}

func init() {
	Register(csvDecoder{comma: ',', exts: []string{".csv"}})
	Register(csvDecoder{comma: '\t', exts: []string{".tsv", ".tab"}})
	Register(xlsxDecoder{})
	Register(legacyXLSDecoder{})
}
