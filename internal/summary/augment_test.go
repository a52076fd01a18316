package summary

import (
	"math"
	"reflect"
	"testing"

	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

func mustPivot(t *testing.T, tb *table.Table, spec pivot.Spec) *pivot.Result {
	t.Helper()
	res, err := pivot.Run(tb, spec)
	if err != nil {
		t.Fatalf("pivot: %v", err)
	}
	return res
}

func regionSales() *table.Table {
	return table.MustNew("",
		table.TextColumn("region", []string{"E", "W", "E"}),
		table.NumericColumn("sales", []float64{10, 20, 5}),
	)
}

func all() Options {
	return Options{AddRowNumber: true, AddGrandTotalRow: true, AddGrandTotalColumn: true}
}

func TestAugmentGrandTotalRow(t *testing.T) {
	res := mustPivot(t, regionSales(), pivot.Spec{RowFields: []string{"region"}, ValueFields: []string{"sales"}})
	aug := Augment(res, Options{AddGrandTotalRow: true})
	region, _ := aug.Table.Column("region")
	sales, _ := aug.Table.Column("sales")
	if !reflect.DeepEqual(region.Strs, []string{"E", "W", "Grand Total"}) {
		t.Fatalf("region = %v", region.Strs)
	}
	if !reflect.DeepEqual(sales.Nums, []float64{15, 20, 35}) {
		t.Fatalf("sales = %v", sales.Nums)
	}
	if aug.DataRows() != 2 {
		t.Fatalf("DataRows = %d", aug.DataRows())
	}
}

func TestAugmentAllOptions(t *testing.T) {
	tb := table.MustNew("",
		table.TextColumn("region", []string{"E", "W", "E", "W"}),
		table.TextColumn("product", []string{"A", "A", "B", "B"}),
		table.NumericColumn("sales", []float64{1, 2, 3, 4.5}),
	)
	res := mustPivot(t, tb, pivot.Spec{RowFields: []string{"region"}, ColFields: []string{"product"}, ValueFields: []string{"sales"}})
	aug := Augment(res, all())

	want := []string{"No.", "region", "sales_A", "sales_B", "Grand Total"}
	if got := aug.Table.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	no, _ := aug.Table.Column("No.")
	if no.Kind != table.RowNumber || !reflect.DeepEqual(no.Strs, []string{"1", "2", ""}) {
		t.Fatalf("No. = %v (%v)", no.Strs, no.Kind)
	}
	total, _ := aug.Table.Column("Grand Total")
	if !reflect.DeepEqual(total.Nums, []float64{4, 6.5, 10.5}) {
		t.Fatalf("Grand Total = %v", total.Nums)
	}

	// every numeric column's total equals the sum of its data cells, and the
	// intersection equals the sum of all value cells.
	last := aug.Table.Rows() - 1
	var grand float64
	for _, c := range aug.Table.Columns {
		if c.Kind != table.Numeric {
			continue
		}
		var s float64
		for _, v := range c.Nums[:last] {
			s += v
		}
		if math.Abs(s-c.Nums[last]) > 1e-9 {
			t.Fatalf("%s total = %v, want %v", c.Name, c.Nums[last], s)
		}
		if c.Name != "Grand Total" {
			grand += s
		}
	}
	if math.Abs(total.Nums[last]-grand) > 1e-9 {
		t.Fatalf("intersection = %v, want %v", total.Nums[last], grand)
	}
}

func TestAugmentEmptyInput(t *testing.T) {
	empty := table.MustNew("",
		table.TextColumn("region", []string{}),
		table.NumericColumn("sales", []float64{}),
	)
	res := mustPivot(t, empty, pivot.Spec{RowFields: []string{"region"}, ValueFields: []string{"sales"}})
	aug := Augment(res, all())
	if aug.Table.Rows() != 1 || aug.DataRows() != 0 {
		t.Fatalf("rows = %d", aug.Table.Rows())
	}
	for _, name := range []string{"sales", "Grand Total"} {
		c, _ := aug.Table.Column(name)
		if c.Nums[0] != 0 {
			t.Fatalf("%s total = %v", name, c.Nums[0])
		}
	}
}

func TestAugmentDoesNotMutatePivot(t *testing.T) {
	res := mustPivot(t, regionSales(), pivot.Spec{RowFields: []string{"region"}, ValueFields: []string{"sales"}})
	_ = Augment(res, all())
	if res.Table.Rows() != 2 || len(res.Table.Columns) != 2 {
		t.Fatalf("pivot table changed: %v rows=%d", res.Table.Names(), res.Table.Rows())
	}
}

func TestBodyStripsSyntheticFields(t *testing.T) {
	res := mustPivot(t, regionSales(), pivot.Spec{RowFields: []string{"region"}, ValueFields: []string{"sales"}})
	aug := Augment(res, all())
	if !table.Equal(aug.Body(), res.Table) {
		t.Fatalf("Body = %v rows=%d", aug.Body().Names(), aug.Body().Rows())
	}
}

func TestAugmentCustomLabels(t *testing.T) {
	res := mustPivot(t, regionSales(), pivot.Spec{RowFields: []string{"region"}, ValueFields: []string{"sales"}})
	aug := Augment(res, Options{AddGrandTotalRow: true, AddGrandTotalColumn: true, TotalLabel: "Total"})
	if aug.TotalColumn != "Total" {
		t.Fatalf("TotalColumn = %q", aug.TotalColumn)
	}
	region, _ := aug.Table.Column("region")
	if region.Strs[2] != "Total" {
		t.Fatalf("label = %q", region.Strs[2])
	}
}
