package export

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/KaramelBytes/pivotloom-cli/internal/chart"
)

// LongRow is the Parquet layout of one long-form record.
type LongRow struct {
	RowKey string  `parquet:"row_key"`
	Metric string  `parquet:"metric"`
	Value  float64 `parquet:"value"`
}

// Parquet encodes long-form records, snappy-compressed.
func Parquet(records []chart.Record) ([]byte, error) {
	rows := make([]LongRow, len(records))
	for i, r := range records {
		rows[i] = LongRow{RowKey: chart.Label(r.RowKey), Metric: r.Metric, Value: r.Value}
	}
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[LongRow](&buf, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
