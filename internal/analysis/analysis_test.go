package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

func harvest() *table.Table {
	return table.MustNew("hop_harvest.csv",
		table.TextColumn("plot", []string{"A1", "A1", "B3", "B3", "C2", "A1"}),
		table.NumericColumn("alpha (%)", []float64{12.5, 11.8, 10.2, 10.0, 9.9, 40}),
		table.NumericColumn("moisture", []float64{74, 71, 68, 67, 66, 90}),
		table.NumericColumn("flat", []float64{1, 1, 1, 1, 1, 1}),
	)
}

func TestProfileAndMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = "plot"
	rep := Profile(harvest(), opt)
	if rep.Rows != 6 || len(rep.Cols) != 4 {
		t.Fatalf("rows=%d cols=%d", rep.Rows, len(rep.Cols))
	}
	plot := rep.Cols[0]
	if plot.Kind != "categorical" || plot.Unique != 3 || plot.TopValues[0] != (CategoryCount{"A1", 3}) {
		t.Fatalf("plot summary = %+v", plot)
	}
	alpha := rep.Cols[1]
	if alpha.Unit != "%" || alpha.Max != 40 || alpha.OutliersCount != 1 {
		t.Fatalf("alpha summary = %+v", alpha)
	}
	if len(rep.Groups) != 3 || rep.Groups[0].Key != "A1" || rep.Groups[0].Size != 3 {
		t.Fatalf("groups = %+v", rep.Groups)
	}
	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "File: hop_harvest.csv", "[SCHEMA]", "- alpha (%) [%]: numeric", "A1(3)", "[CORRELATIONS]", "[GROUP-BY SUMMARY]", "[HEAD ROWS]"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestCorrelations(t *testing.T) {
	rep := Profile(harvest(), DefaultOptions())
	if rep.Corr == nil {
		t.Fatal("expected correlation matrix")
	}
	// alpha and moisture move together; flat is constant.
	if r := rep.Corr.Values[0][1]; r < 0.9 {
		t.Fatalf("alpha~moisture r = %v", r)
	}
	if r := rep.Corr.Values[0][2]; r != 0 {
		t.Fatalf("constant column r = %v", r)
	}
	if rep.Corr.Values[1][0] != rep.Corr.Values[0][1] || rep.Corr.Values[2][2] != 1 {
		t.Fatal("matrix not symmetric with unit diagonal")
	}
}

func TestValueCountsTiesKeepFirstSeen(t *testing.T) {
	c := table.TextColumn("x", []string{"b", "a", "a", "c", "b", "d"})
	got := ValueCounts(c)
	want := []CategoryCount{{"b", 2}, {"a", 2}, {"c", 1}, {"d", 1}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("counts = %+v", got)
		}
	}
}

func TestMetricKPIs(t *testing.T) {
	tb := table.MustNew("",
		table.NumericColumn("revenue", []float64{1_500_000, 700_000}),
		table.NumericColumn("units", []float64{1200, 3400}),
		table.NumericColumn("margin", []float64{1234.5, 0.06}),
		table.TextColumn("region", []string{"E", "W"}),
	)
	kpis, err := MetricKPIs(tb, []string{"revenue", "units", "margin"}, pivot.Sum)
	if err != nil {
		t.Fatalf("MetricKPIs: %v", err)
	}
	want := []string{"2", "2.2M", "4.6K", "1.2K"}
	for i, w := range want {
		if kpis[i].Display != w {
			t.Fatalf("kpi %d (%s) = %q, want %q", i, kpis[i].Label, kpis[i].Display, w)
		}
	}
	if kpis[1].Label != "SUM revenue" {
		t.Fatalf("label = %q", kpis[1].Label)
	}
	if _, err := MetricKPIs(tb, []string{"region"}, pivot.Sum); err == nil {
		t.Fatal("expected error for categorical field")
	}
}

func TestCompactNumber(t *testing.T) {
	tests := map[float64]string{999.456: "999.46", 1000: "1.0K", 2_500_000: "2.5M", 12.5: "12.50"}
	for in, want := range tests {
		if got := CompactNumber(in); got != want {
			t.Errorf("CompactNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMedianMAD(t *testing.T) {
	med, mad := medianMAD([]float64{1, 2, 3, 4, 100})
	if med != 3 || math.Abs(mad-1) > 1e-9 {
		t.Fatalf("median=%v mad=%v", med, mad)
	}
}
