package chart

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrNotPlottable is returned when a projection has no chart form, such as KPIs.
var ErrNotPlottable = errors.New("projection has no chart form")

// RenderHTML writes a standalone ECharts page for p.
func RenderHTML(w io.Writer, p *Projection, title string) error {
	if p.KPI != nil {
		return fmt.Errorf("render %s: %w", p.Kind, ErrNotPlottable)
	}
	page := components.NewPage()
	page.PageTitle = title
	switch p.Kind {
	case GroupedBar, StackedBar, Bar:
		page.AddCharts(barChart(p, title))
	case Line, Area:
		page.AddCharts(lineChart(p, title))
	case Pie, Donut:
		page.AddCharts(pieChart(p, title))
	default:
		return fmt.Errorf("render %s: %w", p.Kind, ErrNotPlottable)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func globalOpts(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	}
}

// aligned places series points on the category axis, leaving gaps as nil.
func aligned(p *Projection, s Series) []any {
	pos := make(map[string]int, len(p.Keys))
	for i, k := range p.Keys {
		pos[identity(k)] = i
	}
	vals := make([]any, len(p.Categories))
	for _, pt := range s.Points {
		if i, ok := pos[identity(pt.Key)]; ok {
			vals[i] = pt.Value
		}
	}
	return vals
}

func barChart(p *Projection, title string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOpts(title)...)
	bar.SetXAxis(p.Categories)
	for _, s := range p.Series {
		vals := aligned(p, s)
		data := make([]opts.BarData, len(vals))
		for i, v := range vals {
			data[i] = opts.BarData{Value: v}
		}
		if p.Kind == StackedBar {
			bar.AddSeries(s.Name, data, charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))
		} else {
			bar.AddSeries(s.Name, data)
		}
	}
	return bar
}

func lineChart(p *Projection, title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOpts(title)...)
	line.SetXAxis(p.Categories)
	for _, s := range p.Series {
		vals := aligned(p, s)
		data := make([]opts.LineData, len(vals))
		for i, v := range vals {
			data[i] = opts.LineData{Value: v}
		}
		if p.Kind == Area {
			line.AddSeries(s.Name, data,
				charts.WithLineChartOpts(opts.LineChart{Stack: "total"}),
				charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.4}),
			)
			continue
		}
		line.AddSeries(s.Name, data)
	}
	return line
}

func pieChart(p *Projection, title string) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(globalOpts(title)...)
	var data []opts.PieData
	name := "value"
	if len(p.Series) > 0 {
		name = p.Series[0].Name
		for _, pt := range p.Series[0].Points {
			data = append(data, opts.PieData{Name: pt.Label, Value: pt.Value})
		}
	}
	radius := []string{"0%", "70%"}
	if p.Hole > 0 {
		radius[0] = fmt.Sprintf("%.0f%%", p.Hole*70)
	}
	pie.AddSeries(name, data).SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
		charts.WithPieChartOpts(opts.PieChart{Radius: radius}),
	)
	return pie
}
