package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// KPI is one headline number with its display text.
type KPI struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// MetricKPIs returns "Total Rows" followed by agg applied to each value field over t.
func MetricKPIs(t *table.Table, valueFields []string, agg pivot.Aggregator) ([]KPI, error) {
	if agg == "" {
		agg = pivot.Sum
	}
	out := []KPI{{Label: "Total Rows", Value: float64(t.Rows()), Display: humanize.Comma(int64(t.Rows()))}}
	for _, f := range valueFields {
		c, ok := t.Column(f)
		if !ok {
			return nil, &pivot.PivotError{Field: f, Reason: "no such column"}
		}
		if c.Kind != table.Numeric {
			return nil, &pivot.PivotError{Field: f, Reason: "is not numeric"}
		}
		v := reduceColumn(c.Nums, agg)
		out = append(out, KPI{
			Label:   fmt.Sprintf("%s %s", strings.ToUpper(string(agg)), f),
			Value:   v,
			Display: CompactNumber(v),
		})
	}
	return out, nil
}

// CompactNumber renders 1.2M, 3.4K or 1,234.56.
func CompactNumber(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return humanize.FormatFloat("#,###.##", v)
	}
}

func reduceColumn(vals []float64, agg pivot.Aggregator) float64 {
	if len(vals) == 0 {
		return 0
	}
	switch agg {
	case pivot.Count:
		return float64(len(vals))
	case pivot.Max:
		m := math.Inf(-1)
		for _, v := range vals {
			m = math.Max(m, v)
		}
		return m
	case pivot.Min:
		m := math.Inf(1)
		for _, v := range vals {
			m = math.Min(m, v)
		}
		return m
	}
	var s float64
	for _, v := range vals {
		s += v
	}
	if agg == pivot.Mean {
		return s / float64(len(vals))
	}
	return s
}
