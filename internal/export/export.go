// Package export serializes displayed tables and chart data.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/pivotloom-cli/internal/analysis"
	"github.com/KaramelBytes/pivotloom-cli/internal/chart"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// Format names an output encoding.
type Format string

const (
	CSVFormat      Format = "csv"
	XLSXFormat     Format = "xlsx"
	JSONFormat     Format = "json"
	MarkdownFormat Format = "md"
	ParquetFormat  Format = "parquet"
)

// Formats lists every format in display order.
var Formats = []Format{CSVFormat, XLSXFormat, JSONFormat, MarkdownFormat, ParquetFormat}

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "csv":
		return CSVFormat, nil
	case "xlsx", "excel":
		return XLSXFormat, nil
	case "json":
		return JSONFormat, nil
	case "md", "markdown":
		return MarkdownFormat, nil
	case "parquet":
		return ParquetFormat, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case CSVFormat:
		return "text/csv; charset=utf-8"
	case XLSXFormat:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case JSONFormat:
		return "application/json"
	case ParquetFormat:
		return "application/vnd.apache.parquet"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// CSV encodes t with a header row.
func CSV(t *table.Table) ([]byte, error) {
	header, rows := t.Records()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

// Markdown renders t as a pipe table.
func Markdown(t *table.Table) []byte {
	header, rows := t.Records()
	return []byte(analysis.MarkdownTable(header, rows))
}

type jsonTable struct {
	Name    string    `json:"name,omitempty"`
	Columns []jsonCol `json:"columns"`
	Rows    [][]any   `json:"rows"`
}

type jsonCol struct {
	Name string     `json:"name"`
	Kind table.Kind `json:"kind"`
}

// JSON encodes t column-typed: numeric cells as numbers, the rest as strings.
func JSON(t *table.Table) ([]byte, error) {
	out := jsonTable{Name: t.Name, Rows: make([][]any, t.Rows())}
	for _, c := range t.Columns {
		out.Columns = append(out.Columns, jsonCol{Name: c.Name, Kind: c.Kind})
	}
	for i := range out.Rows {
		out.Rows[i] = cells(t, i)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return b, nil
}

// cells returns row i with numeric cells as float64.
func cells(t *table.Table, i int) []any {
	row := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		if c.Kind == table.Numeric {
			row[j] = c.Nums[i]
		} else {
			row[j] = c.Strs[i]
		}
	}
	return row
}

// Encode serializes t as f. Parquet output is the long form of t keyed by idFields.
func Encode(t *table.Table, f Format, idFields []string) ([]byte, error) {
	switch f {
	case CSVFormat:
		return CSV(t)
	case XLSXFormat:
		return XLSX(t, t.Name)
	case JSONFormat:
		return JSON(t)
	case MarkdownFormat:
		return Markdown(t), nil
	case ParquetFormat:
		recs, err := chart.ToLongForm(t, idFields)
		if err != nil {
			return nil, err
		}
		return Parquet(recs)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}
