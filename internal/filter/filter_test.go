package filter

import (
	"reflect"
	"testing"

	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

func sample() *table.Table {
	return table.MustNew("sales",
		table.TextColumn("region", []string{"E", "W", "E", "N"}),
		table.TextColumn("product", []string{"A", "A", "B", "B"}),
		table.NumericColumn("sales", []float64{10, 20, 5, 7}),
	)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		spec   Spec
		region []string
	}{
		{"single column", Spec{"region": {"E"}}, []string{"E", "E"}},
		{"or within column", Spec{"region": {"N", "E"}}, []string{"E", "E", "N"}},
		{"and across columns", Spec{"region": {"E", "W"}, "product": {"A"}}, []string{"E", "W"}},
		{"empty subset is no filter", Spec{"region": {}, "product": {"B"}}, []string{"E", "N"}},
		{"no match", Spec{"region": {"S"}}, []string{}},
		{"unknown column ignored", Spec{"colour": {"red"}}, []string{"E", "W", "E", "N"}},
		{"numeric by text", Spec{"sales": {"5", "20"}}, []string{"W", "E"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sample(), tt.spec)
			col, _ := got.Column("region")
			if !reflect.DeepEqual(col.Strs, tt.region) {
				t.Fatalf("region = %v, want %v", col.Strs, tt.region)
			}
			if len(got.Columns) != 3 {
				t.Fatalf("columns dropped: %v", got.Names())
			}
		})
	}
}

func TestApplyEmptySpecKeepsTable(t *testing.T) {
	in := sample()
	for _, spec := range []Spec{nil, {}, {"region": nil}} {
		if got := Apply(in, spec); !table.Equal(got, in) {
			t.Fatalf("Apply(%v) changed the table", spec)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := sample()
	_ = Apply(in, Spec{"region": {"W"}})
	if in.Rows() != 4 {
		t.Fatalf("input rows = %d", in.Rows())
	}
}

func TestUnknown(t *testing.T) {
	got := Unknown(sample(), Spec{"zeta": {"x"}, "region": {"E"}, "alpha": {"y"}, "empty": nil})
	if !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Fatalf("Unknown = %v", got)
	}
}

func TestDistinctValues(t *testing.T) {
	got, ok := DistinctValues(sample(), "region")
	if !ok || !reflect.DeepEqual(got, []string{"E", "W", "N"}) {
		t.Fatalf("DistinctValues = %v, %v", got, ok)
	}
	if _, ok := DistinctValues(sample(), "missing"); ok {
		t.Fatal("expected missing column to report false")
	}
}
