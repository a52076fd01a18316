package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// Options controls profiling of a loaded table.
type Options struct {
	// SampleRows determines how many head rows to include in the report.
	SampleRows int
	// TopValues caps the value counts listed per categorical column.
	TopValues int
	// GroupBy computes per-group summaries for the given categorical column.
	GroupBy string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// OutlierThreshold counts values with robust |z| above it; 0 disables.
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		TopValues:        12,
		Correlations:     true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly profile of a table.
type Report struct {
	Name     string          `json:"name"`
	Rows     int             `json:"rows"`
	Cols     []ColumnSummary `json:"columns"`
	Samples  [][]string      `json:"samples,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Groups   []GroupResult   `json:"groups,omitempty"`
	Corr     *CorrMatrix     `json:"correlations,omitempty"`
}

// ColumnSummary captures the kind and statistics of one column.
type ColumnSummary struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Unit   string `json:"unit,omitempty"`
	Unique int    `json:"unique"`
	// Numeric stats
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"`
	Median float64 `json:"median,omitempty"`
	// Outliers (robust Z via MAD)
	OutliersCount    int     `json:"outliers,omitempty"`
	OutliersMaxAbsZ  float64 `json:"outliers_max_abs_z,omitempty"`
	OutlierThreshold float64 `json:"-"`
	// Categorical top values
	TopValues []CategoryCount `json:"top_values,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string                `json:"key"`
	Size    int                   `json:"size"`
	Metrics map[string]NumSummary `json:"metrics"`
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

// Profile summarizes t column by column.
func Profile(t *table.Table, opt Options) *Report {
	if opt.SampleRows < 0 {
		opt.SampleRows = 0
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 12
	}
	rep := &Report{Name: t.Name, Rows: t.Rows()}
	var numeric []*table.Column
	for _, c := range t.Columns {
		switch c.Kind {
		case table.Numeric:
			rep.Cols = append(rep.Cols, numericSummary(c, opt))
			numeric = append(numeric, c)
		case table.Categorical:
			cs := categoricalSummary(c, opt.TopValues)
			if cs.Unique == t.Rows() && t.Rows() > opt.TopValues {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s looks like an identifier (every value distinct)", c.Name))
			}
			rep.Cols = append(rep.Cols, cs)
		}
	}
	n := min(opt.SampleRows, t.Rows())
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			if c.Kind == table.RowNumber {
				continue
			}
			row = append(row, c.Text(i))
		}
		rep.Samples = append(rep.Samples, row)
	}
	if opt.Correlations && len(numeric) >= 2 {
		rep.Corr = Correlations(numeric)
	}
	if opt.GroupBy != "" {
		g, ok := t.Column(opt.GroupBy)
		switch {
		case !ok:
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %q not found", opt.GroupBy))
		case g.Kind != table.Categorical:
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %q is not categorical", opt.GroupBy))
		default:
			rep.Groups = groupSummaries(g, numeric)
		}
	}
	if t.Rows() == 0 {
		rep.Warnings = append(rep.Warnings, "table has no rows")
	}
	return rep
}

func numericSummary(c *table.Column, opt Options) ColumnSummary {
	_, unit := splitUnits(c.Name)
	cs := ColumnSummary{Name: c.Name, Kind: "numeric", Unit: unit}
	if len(c.Nums) == 0 {
		return cs
	}
	// Welford
	var mean, m2 float64
	cs.Min, cs.Max = math.Inf(1), math.Inf(-1)
	distinct := make(map[float64]struct{})
	for i, v := range c.Nums {
		d := v - mean
		mean += d / float64(i+1)
		m2 += d * (v - mean)
		cs.Min = math.Min(cs.Min, v)
		cs.Max = math.Max(cs.Max, v)
		distinct[v] = struct{}{}
	}
	cs.Mean = mean
	if len(c.Nums) > 1 {
		cs.Std = math.Sqrt(m2 / float64(len(c.Nums)-1))
	}
	cs.Unique = len(distinct)
	med, mad := medianMAD(c.Nums)
	cs.Median = med
	if opt.OutlierThreshold > 0 && mad > 0 {
		cs.OutlierThreshold = opt.OutlierThreshold
		for _, v := range c.Nums {
			z := 0.6745 * (v - med) / mad
			if math.Abs(z) > opt.OutlierThreshold {
				cs.OutliersCount++
				cs.OutliersMaxAbsZ = math.Max(cs.OutliersMaxAbsZ, math.Abs(z))
			}
		}
	}
	return cs
}

func categoricalSummary(c *table.Column, top int) ColumnSummary {
	cs := ColumnSummary{Name: c.Name, Kind: "categorical"}
	counts := ValueCounts(c)
	cs.Unique = len(counts)
	if len(counts) > top {
		counts = counts[:top]
	}
	cs.TopValues = counts
	return cs
}

// ValueCounts returns each distinct value with its frequency, most frequent first;
// ties keep first-seen order.
func ValueCounts(c *table.Column) []CategoryCount {
	idx := map[string]int{}
	var out []CategoryCount
	for i := 0; i < c.Len(); i++ {
		v := c.Text(i)
		if j, ok := idx[v]; ok {
			out[j].Count++
			continue
		}
		idx[v] = len(out)
		out = append(out, CategoryCount{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Correlations computes the Pearson matrix for equal-length numeric columns.
// Constant columns correlate as 0 with everything but themselves.
func Correlations(cols []*table.Column) *CorrMatrix {
	k := len(cols)
	m := &CorrMatrix{Columns: make([]string, k), Values: make([][]float64, k)}
	means := make([]float64, k)
	sds := make([]float64, k)
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, k)
		var s float64
		for _, v := range c.Nums {
			s += v
		}
		if n := len(c.Nums); n > 0 {
			means[i] = s / float64(n)
		}
		var ss float64
		for _, v := range c.Nums {
			d := v - means[i]
			ss += d * d
		}
		sds[i] = math.Sqrt(ss)
	}
	for i := 0; i < k; i++ {
		m.Values[i][i] = 1
		for j := i + 1; j < k; j++ {
			r := 0.0
			if sds[i] > 0 && sds[j] > 0 {
				var cov float64
				for x := range cols[i].Nums {
					cov += (cols[i].Nums[x] - means[i]) * (cols[j].Nums[x] - means[j])
				}
				r = cov / (sds[i] * sds[j])
			}
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

func groupSummaries(g *table.Column, numeric []*table.Column) []GroupResult {
	idx := map[string]int{}
	var out []GroupResult
	for i, key := range g.Strs {
		j, ok := idx[key]
		if !ok {
			j = len(out)
			idx[key] = j
			out = append(out, GroupResult{Key: key, Metrics: map[string]NumSummary{}})
		}
		out[j].Size++
		for _, c := range numeric {
			v := c.Nums[i]
			s := out[j].Metrics[c.Name]
			if s.Count == 0 {
				s.Min, s.Max = v, v
			}
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
			s.Mean += (v - s.Mean) / float64(s.Count+1)
			s.Count++
			out[j].Metrics[c.Name] = s
		}
	}
	return out
}

// Markdown renders the report as sectioned plain text.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (unique %d)", name, c.Kind, c.Unique))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Median, c.Std))
			if c.OutlierThreshold > 0 && c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f (max |z|≈%.2f)", c.OutliersCount, c.OutlierThreshold, c.OutliersMaxAbsZ))
			}
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys[:min(6, len(keys))] {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max))
			}
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(10) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD ROWS]\n")
		header := make([]string, 0, len(r.Cols))
		for _, c := range r.Cols {
			header = append(header, c.Name)
		}
		b.WriteString(MarkdownTable(header, r.Samples))
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// TopPairs lists up to n off-diagonal pairs ordered by |r|.
func (m *CorrMatrix) TopPairs(n int) []PairCorr {
	var pairs []PairCorr
	k := len(m.Columns)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai := math.Abs(pairs[i].R)
		aj := math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	return pairs[:min(n, len(pairs))]
}

// MarkdownTable renders a pipe table, truncating long cells.
func MarkdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| ")
	for i, h := range header {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(safeName(h)))
	}
	b.WriteString(" |\n| ")
	for i := range header {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i := range header {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Price (USD)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Weight [kg]
	{regexp.MustCompile(`^(.*?)[_\s-]+(pct|%|usd|eur|kg|km|ms)$`), 2},
}

// splitUnits pulls a unit suffix out of a column name for display.
func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	median = table.Median(vals)
	dev := make([]float64, len(vals))
	for i, v := range vals {
		dev[i] = math.Abs(v - median)
	}
	return median, table.Median(dev)
}
