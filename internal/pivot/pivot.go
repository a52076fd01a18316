// Package pivot groups a table by row and column fields and aggregates numeric value fields.
package pivot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// Spec selects the grouping and aggregation of a pivot.
type Spec struct {
	RowFields   []string   `json:"rows" yaml:"rows"`
	ColFields   []string   `json:"cols,omitempty" yaml:"cols,omitempty"`
	ValueFields []string   `json:"values" yaml:"values"`
	Aggregator  Aggregator `json:"agg" yaml:"agg"`
}

// ValueColumn maps a synthesized output column back to its value field and
// column-field combination.
type ValueColumn struct {
	Name        string   `json:"name"`
	ValueField  string   `json:"value_field"`
	Combination []string `json:"combination,omitempty"`
}

// Result is a pivoted table plus the metadata later stages need.
type Result struct {
	Table      *table.Table
	Spec       Spec
	Columns    []ValueColumn
	Aggregator Aggregator
}

// ValueFieldOf returns the value field behind an output column name.
func (r *Result) ValueFieldOf(name string) (string, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.ValueField, true
		}
	}
	return "", false
}

// ValueColumnNames returns the aggregated column names in output order.
func (r *Result) ValueColumnNames() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Name
	}
	return out
}

// Run pivots t. Row groups appear in first-seen order; column combinations are the
// union over the whole table, also first-seen. Cells with no rows hold 0.
func Run(t *table.Table, spec Spec) (*Result, error) {
	agg := spec.Aggregator
	if agg == "" {
		agg = Sum
	}
	rowCols, colCols, valCols, err := validate(t, spec, agg)
	if err != nil {
		return nil, err
	}

	n := t.Rows()
	rowOf := make([]int, n)
	comboOf := make([]int, n)
	var rowKeys, combos [][]string
	rowIndex := map[string]int{}
	comboIndex := map[string]int{}
	for i := 0; i < n; i++ {
		rowOf[i] = intern(rowIndex, &rowKeys, tuple(rowCols, i))
		comboOf[i] = intern(comboIndex, &combos, tuple(colCols, i))
	}
	if len(colCols) == 0 {
		// one implicit combination so every value field still yields a column on empty input
		combos = [][]string{nil}
	}

	// acc[v][c][r]
	acc := make([][][]cell, len(valCols))
	for v := range acc {
		acc[v] = make([][]cell, len(combos))
		for c := range acc[v] {
			acc[v][c] = make([]cell, len(rowKeys))
		}
	}
	for i := 0; i < n; i++ {
		for v, col := range valCols {
			acc[v][comboOf[i]][rowOf[i]].add(col.Nums[i])
		}
	}

	out := make([]*table.Column, 0, len(rowCols)+len(valCols)*len(combos))
	taken := make(map[string]struct{})
	for j, rc := range rowCols {
		vals := make([]string, len(rowKeys))
		for r, key := range rowKeys {
			vals[r] = key[j]
		}
		out = append(out, table.TextColumn(rc.Name, vals))
		taken[rc.Name] = struct{}{}
	}
	res := &Result{Spec: spec, Aggregator: agg}
	for v, vc := range valCols {
		for c, combo := range combos {
			name := uniqueName(taken, columnName(vc.Name, combo))
			vals := make([]float64, len(rowKeys))
			for r := range rowKeys {
				vals[r] = acc[v][c][r].value(agg)
			}
			out = append(out, table.NumericColumn(name, vals))
			res.Columns = append(res.Columns, ValueColumn{Name: name, ValueField: vc.Name, Combination: combo})
		}
	}
	res.Spec.Aggregator = agg
	res.Table, err = table.New(t.Name, out...)
	if err != nil {
		return nil, fmt.Errorf("build pivot table: %w", err)
	}
	return res, nil
}

func validate(t *table.Table, spec Spec, agg Aggregator) (rows, cols, vals []*table.Column, err error) {
	if len(spec.RowFields) == 0 {
		return nil, nil, nil, specError("", "at least one row field is required")
	}
	if len(spec.ValueFields) == 0 {
		return nil, nil, nil, specError("", "at least one value field is required")
	}
	if !agg.valid() {
		return nil, nil, nil, specError("", "unknown aggregator %q", agg)
	}
	seen := map[string]struct{}{}
	lookup := func(names []string, want table.Kind) ([]*table.Column, error) {
		out := make([]*table.Column, 0, len(names))
		for _, name := range names {
			if _, dup := seen[name]; dup {
				return nil, specError(name, "used more than once")
			}
			seen[name] = struct{}{}
			c, ok := t.Column(name)
			if !ok {
				return nil, specError(name, "no such column")
			}
			if c.Kind != want {
				return nil, specError(name, "is %s, want %s", c.Kind, want)
			}
			out = append(out, c)
		}
		return out, nil
	}
	if rows, err = lookup(spec.RowFields, table.Categorical); err != nil {
		return nil, nil, nil, err
	}
	if cols, err = lookup(spec.ColFields, table.Categorical); err != nil {
		return nil, nil, nil, err
	}
	if vals, err = lookup(spec.ValueFields, table.Numeric); err != nil {
		return nil, nil, nil, err
	}
	return rows, cols, vals, nil
}

func tuple(cols []*table.Column, i int) []string {
	out := make([]string, len(cols))
	for j, c := range cols {
		out[j] = c.Strs[i]
	}
	return out
}

// intern returns the id of key, registering it in first-seen order.
func intern(index map[string]int, keys *[][]string, key []string) int {
	var b strings.Builder
	for _, k := range key {
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	s := b.String()
	if id, ok := index[s]; ok {
		return id
	}
	id := len(*keys)
	index[s] = id
	*keys = append(*keys, key)
	return id
}

// columnName flattens a cross-tab header as value_field_combo1_combo2.
func columnName(valueField string, combo []string) string {
	if len(combo) == 0 {
		return valueField
	}
	return valueField + "_" + strings.Join(combo, "_")
}

func uniqueName(taken map[string]struct{}, name string) string {
	cand := name
	for k := 1; ; k++ {
		if _, used := taken[cand]; !used {
			break
		}
		cand = fmt.Sprintf("%s.%d", name, k)
	}
	taken[cand] = struct{}{}
	return cand
}
