// Package summary decorates a pivot result with row numbers and grand totals.
package summary

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

const (
	DefaultRowNumberField = "No."
	DefaultTotalLabel     = "Grand Total"
)

// Options selects the synthetic rows and columns to add.
type Options struct {
	AddRowNumber        bool `json:"row_number"`
	AddGrandTotalRow    bool `json:"total_row"`
	AddGrandTotalColumn bool `json:"total_col"`
	// RowNumberField names the numbering column; empty means "No.".
	RowNumberField string `json:"-"`
	// TotalLabel fills categorical cells of the total row and names the total column.
	TotalLabel string `json:"-"`
}

// Augmented is the displayed table plus bookkeeping about what was synthesized.
type Augmented struct {
	Table *table.Table
	Pivot *pivot.Result
	// RowNumberField is the numbering column name, or "" when none was added.
	RowNumberField string
	// TotalColumn is the grand-total column name, or "" when none was added.
	TotalColumn string
	// TotalRow reports whether the last row is the grand-total row.
	TotalRow bool
}

// DataRows returns the number of non-synthetic rows.
func (a *Augmented) DataRows() int {
	if a.TotalRow {
		return a.Table.Rows() - 1
	}
	return a.Table.Rows()
}

// Body returns the table without the grand-total row, the grand-total column and
// the numbering column.
func (a *Augmented) Body() *table.Table {
	if !a.TotalRow && a.TotalColumn == "" && a.RowNumberField == "" {
		return a.Table
	}
	idx := make([]int, a.DataRows())
	for i := range idx {
		idx[i] = i
	}
	rows := a.Table.Select(idx)
	cols := make([]*table.Column, 0, len(rows.Columns))
	for _, c := range rows.Columns {
		if c.Name == a.TotalColumn || c.Name == a.RowNumberField {
			continue
		}
		cols = append(cols, c)
	}
	return table.MustNew(a.Table.Name, cols...)
}

// Augment adds the requested synthetic fields. The total column is computed first,
// so the total row's intersection cell is the sum of every value cell.
func Augment(res *pivot.Result, opt Options) *Augmented {
	if opt.RowNumberField == "" {
		opt.RowNumberField = DefaultRowNumberField
	}
	if opt.TotalLabel == "" {
		opt.TotalLabel = DefaultTotalLabel
	}
	src := res.Table
	n := src.Rows()
	taken := make(map[string]struct{}, len(src.Columns)+2)
	for _, c := range src.Columns {
		taken[c.Name] = struct{}{}
	}
	out := &Augmented{Pivot: res, TotalRow: opt.AddGrandTotalRow}
	cols := make([]*table.Column, 0, len(src.Columns)+2)

	if opt.AddRowNumber {
		out.RowNumberField = uniqueName(taken, opt.RowNumberField)
		nums := make([]string, n)
		for i := range nums {
			nums[i] = strconv.Itoa(i + 1)
		}
		cols = append(cols, &table.Column{Name: out.RowNumberField, Kind: table.RowNumber, Strs: nums})
	}
	for _, c := range src.Columns {
		cp := &table.Column{Name: c.Name, Kind: c.Kind}
		cp.Nums = append([]float64(nil), c.Nums...)
		cp.Strs = append([]string(nil), c.Strs...)
		cols = append(cols, cp)
	}
	if opt.AddGrandTotalColumn {
		out.TotalColumn = uniqueName(taken, opt.TotalLabel)
		sums := make([]float64, n)
		for _, c := range src.Columns {
			if c.Kind != table.Numeric {
				continue
			}
			for i, v := range c.Nums {
				sums[i] += v
			}
		}
		cols = append(cols, table.NumericColumn(out.TotalColumn, sums))
	}
	if opt.AddGrandTotalRow {
		for _, c := range cols {
			switch c.Kind {
			case table.Numeric:
				var s float64
				for _, v := range c.Nums {
					s += v
				}
				c.Nums = append(c.Nums, s)
			case table.RowNumber:
				c.Strs = append(c.Strs, "")
			default:
				c.Strs = append(c.Strs, opt.TotalLabel)
			}
		}
	}
	out.Table = table.MustNew(src.Name, cols...)
	return out
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
