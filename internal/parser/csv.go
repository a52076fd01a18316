package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

type csvDecoder struct {
	comma rune
	exts  []string
}

func (d csvDecoder) CanParse(filename string) bool { return hasExt(filename, d.exts...) }

func (d csvDecoder) Decode(name string, data []byte, _ Options) (*Grid, error) {
	return decodeDelimited(name, data, d.comma)
}

// decodeDelimited reads a header row and data rows. Rows wider than the header are
// rejected; shorter rows are padded with empty cells.
func decodeDelimited(name string, data []byte, comma rune) (*Grid, error) {
	r := csv.NewReader(bytes.NewReader(stripBOM(data)))
	r.Comma = comma
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Source: name, Reason: "no header row"}
	}
	if err != nil {
		return nil, csvError(name, err)
	}
	g := &Grid{Name: name, Header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, &ParseError{Source: name, Line: line,
				Reason: fmt.Sprintf("expected %d fields, saw %d", len(header), len(rec))}
		}
		if blankRow(rec) {
			continue
		}
		g.Rows = append(g.Rows, pad(rec, len(header)))
	}
	return g, nil
}

func csvError(name string, err error) error {
	pe := &ParseError{Source: name, Err: err}
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		pe.Line = perr.Line
		pe.Err = perr.Err
	}
	return pe
}

func pad(rec []string, n int) []string {
	if len(rec) >= n {
		return rec
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}
