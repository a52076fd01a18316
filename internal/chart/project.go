package chart

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is a chart type.
type Kind string

const (
	GroupedBar Kind = "grouped_bar"
	StackedBar Kind = "stacked_bar"
	Line       Kind = "line"
	Area       Kind = "area"
	Bar        Kind = "bar"
	Pie        Kind = "pie"
	Donut      Kind = "donut"
	KPIs       Kind = "kpi"
)

// Kinds lists every chart type in menu order.
var Kinds = []Kind{GroupedBar, StackedBar, Line, Area, Bar, Pie, Donut, KPIs}

// DonutHole is the inner radius of a donut as a fraction of the outer radius.
const DonutHole = 0.4

// ParseKind accepts the canonical kind names and a few spellings of them.
func ParseKind(s string) (Kind, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "grouped", "grouped_bar", "bar_grouped":
		return GroupedBar, nil
	case "stacked", "stacked_bar", "bar_stacked":
		return StackedBar, nil
	case "doughnut":
		return Donut, nil
	case "kpis", "summary":
		return KPIs, nil
	}
	for _, kind := range Kinds {
		if Kind(k) == kind {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

// MultiSeries reports whether the kind plots one series per metric.
func (k Kind) MultiSeries() bool {
	switch k {
	case GroupedBar, StackedBar, Line, Area:
		return true
	}
	return false
}

// Point is one plotted value.
type Point struct {
	Label string   `json:"label"`
	Key   []string `json:"key"`
	Value float64  `json:"value"`
}

// Series is a named run of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// KPI holds scalar reductions of every value.
type KPI struct {
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Projection is the data one chart needs.
type Projection struct {
	Kind Kind `json:"kind"`
	// Categories are the row-key labels in first-seen order.
	Categories []string `json:"categories"`
	// Keys holds the row key behind each category.
	Keys   [][]string `json:"keys"`
	Series []Series   `json:"series,omitempty"`
	// Hole is the donut inner radius fraction; 0 for every other kind.
	Hole float64 `json:"hole,omitempty"`
	KPI  *KPI    `json:"kpi,omitempty"`
}

// Empty reports whether there is nothing to plot.
func (p *Projection) Empty() bool {
	if p.KPI != nil {
		return p.KPI.Count == 0
	}
	return len(p.Categories) == 0
}

// Label joins a row key for display. Distinct keys may share a label.
func Label(key []string) string { return strings.Join(key, " / ") }

// identity encodes key unambiguously for use as a map key.
func identity(key []string) string {
	var b strings.Builder
	for _, k := range key {
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}

// Project shapes records for kind. Empty input yields an empty projection.
func Project(records []Record, kind Kind) (*Projection, error) {
	p := &Projection{Kind: kind, Categories: []string{}, Keys: [][]string{}}
	switch {
	case kind == KPIs:
		p.KPI = reduce(records)
	case kind.MultiSeries():
		p.splitByMetric(records)
	case kind == Bar || kind == Pie || kind == Donut:
		p.sumByRowKey(records)
		if kind == Donut {
			p.Hole = DonutHole
		}
	default:
		return nil, fmt.Errorf("unknown chart kind %q", kind)
	}
	return p, nil
}

// addCategory registers key in first-seen order and returns its position.
func (p *Projection) addCategory(pos map[string]int, key []string) int {
	id := identity(key)
	if i, ok := pos[id]; ok {
		return i
	}
	i := len(p.Categories)
	pos[id] = i
	p.Categories = append(p.Categories, Label(key))
	p.Keys = append(p.Keys, key)
	return i
}

func (p *Projection) splitByMetric(records []Record) {
	pos := map[string]int{}
	idx := map[string]int{}
	for _, r := range records {
		p.addCategory(pos, r.RowKey)
		i, ok := idx[r.Metric]
		if !ok {
			i = len(p.Series)
			idx[r.Metric] = i
			p.Series = append(p.Series, Series{Name: r.Metric})
		}
		p.Series[i].Points = append(p.Series[i].Points, Point{Label: Label(r.RowKey), Key: r.RowKey, Value: r.Value})
	}
}

func (p *Projection) sumByRowKey(records []Record) {
	if len(records) == 0 {
		return
	}
	s := Series{Name: "value"}
	pos := map[string]int{}
	for _, r := range records {
		i := p.addCategory(pos, r.RowKey)
		if i == len(s.Points) {
			s.Points = append(s.Points, Point{Label: Label(r.RowKey), Key: r.RowKey})
		}
		s.Points[i].Value += r.Value
	}
	if metrics := distinctMetrics(records); len(metrics) == 1 {
		s.Name = metrics[0]
	}
	p.Series = []Series{s}
}

func distinctMetrics(records []Record) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range records {
		if !seen[r.Metric] {
			seen[r.Metric] = true
			out = append(out, r.Metric)
		}
	}
	return out
}

func reduce(records []Record) *KPI {
	k := &KPI{Count: len(records)}
	for i, r := range records {
		k.Sum += r.Value
		if i == 0 || r.Value > k.Max {
			k.Max = r.Value
		}
	}
	if k.Count > 0 {
		k.Mean = k.Sum / float64(k.Count)
	}
	return k
}
