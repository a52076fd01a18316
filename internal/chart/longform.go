// Package chart reshapes tables into long-form records and per-chart projections.
package chart

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// ErrUnknownField is returned when an id field is not a column of the table.
var ErrUnknownField = errors.New("unknown field")

// Record is one (row key, metric, value) triple of a melted table.
type Record struct {
	RowKey []string `json:"row_key"`
	Metric string   `json:"metric"`
	Value  float64  `json:"value"`
}

// ToLongForm melts t: for every row and every numeric field not in idFields it emits
// one record, row-major then field order. Non-numeric fields outside idFields are skipped.
func ToLongForm(t *table.Table, idFields []string) ([]Record, error) {
	ids := make([]*table.Column, 0, len(idFields))
	isID := make(map[string]bool, len(idFields))
	for _, f := range idFields {
		c, ok := t.Column(f)
		if !ok {
			return nil, fmt.Errorf("id field %q: %w", f, ErrUnknownField)
		}
		ids = append(ids, c)
		isID[f] = true
	}
	var metrics []*table.Column
	for _, c := range t.Columns {
		if !isID[c.Name] && c.Kind == table.Numeric {
			metrics = append(metrics, c)
		}
	}
	n := t.Rows()
	out := make([]Record, 0, n*len(metrics))
	for i := 0; i < n; i++ {
		key := make([]string, len(ids))
		for j, c := range ids {
			key[j] = c.Text(i)
		}
		for _, m := range metrics {
			out = append(out, Record{RowKey: key, Metric: m.Name, Value: m.Nums[i]})
		}
	}
	return out, nil
}
