package export

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/pivotloom-cli/internal/chart"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

func displayed() *table.Table {
	return table.MustNew("pivot",
		&table.Column{Name: "No.", Kind: table.RowNumber, Strs: []string{"1", "2", ""}},
		table.TextColumn("region", []string{"E", "W, north", "Grand Total"}),
		table.NumericColumn("sales", []float64{15, 20.5, 35.5}),
	)
}

func TestCSV(t *testing.T) {
	b, err := CSV(displayed())
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := "No.,region,sales\n1,E,15\n2,\"W, north\",20.5\n,Grand Total,35.5\n"
	if string(b) != want {
		t.Fatalf("csv =\n%s\nwant\n%s", b, want)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	b, err := XLSX(displayed(), "Pivot: sales/region")
	if err != nil {
		t.Fatalf("XLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if !reflect.DeepEqual(sheets, []string{"Pivot_ sales_region"}) {
		t.Fatalf("sheets = %q", sheets)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 || rows[0][2] != "sales" || rows[2][1] != "W, north" || rows[3][2] != "35.5" {
		t.Fatalf("rows = %q", rows)
	}
	typ, err := f.GetCellType(sheets[0], "C2")
	if err != nil {
		t.Fatal(err)
	}
	if typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset {
		t.Fatalf("C2 type = %v, want number", typ)
	}
}

func TestJSON(t *testing.T) {
	b, err := JSON(displayed())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var got struct {
		Columns []struct{ Name, Kind string }
		Rows    [][]any
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Columns[0].Kind != "row_number" || got.Columns[2].Kind != "numeric" {
		t.Fatalf("columns = %+v", got.Columns)
	}
	if got.Rows[1][2] != 20.5 {
		t.Fatalf("row = %v", got.Rows[1])
	}
}

func TestMarkdown(t *testing.T) {
	md := string(Markdown(displayed()))
	if !strings.HasPrefix(md, "| No. | region | sales |\n| --- | --- | --- |\n") {
		t.Fatalf("markdown =\n%s", md)
	}
	if !strings.Contains(md, "|  | Grand Total | 35.5 |") {
		t.Fatalf("markdown total row missing:\n%s", md)
	}
}

func TestParquet(t *testing.T) {
	recs := []chart.Record{
		{RowKey: []string{"E", "A"}, Metric: "sales", Value: 1.5},
		{RowKey: []string{"W", "B"}, Metric: "cost", Value: 2},
	}
	b, err := Parquet(recs)
	if err != nil {
		t.Fatalf("Parquet: %v", err)
	}
	rows, err := parquet.Read[LongRow](bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []LongRow{{RowKey: "E / A", Metric: "sales", Value: 1.5}, {RowKey: "W / B", Metric: "cost", Value: 2}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{".CSV": CSVFormat, "excel": XLSXFormat, "markdown": MarkdownFormat, "parquet": ParquetFormat} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEncodeDispatch(t *testing.T) {
	for _, f := range []Format{CSVFormat, XLSXFormat, JSONFormat, MarkdownFormat} {
		b, err := Encode(displayed(), f, nil)
		if err != nil || len(b) == 0 {
			t.Errorf("Encode(%s) = %d bytes, %v", f, len(b), err)
		}
	}
	b, err := Encode(displayed(), ParquetFormat, []string{"region"})
	if err != nil {
		t.Fatalf("Encode parquet: %v", err)
	}
	rows, err := parquet.Read[LongRow](bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 || rows[2].RowKey != "Grand Total" || rows[2].Value != 35.5 {
		t.Fatalf("rows = %+v", rows)
	}
	if _, err := Encode(displayed(), ParquetFormat, []string{"nope"}); err == nil {
		t.Fatal("expected unknown id field error")
	}
}
