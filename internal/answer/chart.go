package answer

import (
	"bytes"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/dbchat/dbchat/internal/observability"
)

type renderer interface {
	Render(w io.Writer) error
}

type series struct {
	name   string
	values []float64
}

type chartData struct {
	title      string
	xAxisName  string
	categories []string
	series     []series
}

type chartBuilder func(chartData) renderer

var chartBuilders = map[string]chartBuilder{
	ChartLine:    func(d chartData) renderer { return buildLine(d, false) },
	ChartArea:    func(d chartData) renderer { return buildLine(d, true) },
	ChartBar:     buildBar,
	ChartScatter: buildScatter,
}

// RenderChart writes an HTML chart of table to w. The first column is the category
// axis and every later numeric column is a series. It reports false, writing
// nothing, when the table has no numeric series or the chart cannot be produced.
// Area and scatter charts that fail, and unknown chart types, are drawn as lines.
func RenderChart(w io.Writer, table *Table, chartType string) bool {
	data, ok := chartDataFromTable(table)
	if !ok {
		observability.ObserveChartRender(chartType, "failed")
		return false
	}

	builder, known := chartBuilders[chartType]
	if known {
		if out, err := renderTo(builder, data); err == nil {
			return flush(w, out, chartType, "rendered")
		}
		if chartType != ChartArea && chartType != ChartScatter {
			observability.ObserveChartRender(chartType, "failed")
			return false
		}
	}

	out, err := renderTo(chartBuilders[ChartLine], data)
	if err != nil {
		observability.ObserveChartRender(chartType, "failed")
		return false
	}
	return flush(w, out, chartType, "fallback")
}

func flush(w io.Writer, out []byte, chartType, result string) bool {
	if _, err := w.Write(out); err != nil {
		observability.ObserveChartRender(chartType, "failed")
		return false
	}
	observability.ObserveChartRender(chartType, result)
	return true
}

func renderTo(builder chartBuilder, data chartData) ([]byte, error) {
	var buf bytes.Buffer
	if err := builder(data).Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func chartDataFromTable(table *Table) (chartData, bool) {
	if table == nil || len(table.Columns) < 2 || len(table.Rows) == 0 {
		return chartData{}, false
	}
	data := chartData{
		xAxisName:  table.Columns[0].Name,
		categories: make([]string, 0, len(table.Rows)),
	}
	for _, row := range table.Rows {
		data.categories = append(data.categories, row[0])
	}
	names := make([]string, 0, len(table.Columns)-1)
	for _, column := range table.Columns[1:] {
		if !column.Numeric {
			continue
		}
		data.series = append(data.series, series{name: column.Name, values: column.Numbers})
		names = append(names, column.Name)
	}
	if len(data.series) == 0 {
		return chartData{}, false
	}
	data.title = joinTitle(names) + " by " + data.xAxisName
	return data, true
}

func joinTitle(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names, ", ")
	}
}

func globalOptions(data chartData) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: data.title}),
		charts.WithXAxisOpts(opts.XAxis{Name: data.xAxisName}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(data.series) > 1)}),
	}
}

func buildLine(data chartData, area bool) renderer {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(data)...)
	line.SetXAxis(data.categories)
	for _, s := range data.series {
		items := make([]opts.LineData, 0, len(s.values))
		for _, v := range s.values {
			items = append(items, opts.LineData{Value: v})
		}
		line.AddSeries(s.name, items)
	}
	if area {
		line.SetSeriesOptions(charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.2)}))
	}
	return line
}

func buildBar(data chartData) renderer {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(data)...)
	bar.SetXAxis(data.categories)
	for _, s := range data.series {
		items := make([]opts.BarData, 0, len(s.values))
		for _, v := range s.values {
			items = append(items, opts.BarData{Value: v})
		}
		bar.AddSeries(s.name, items)
	}
	return bar
}

func buildScatter(data chartData) renderer {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(globalOptions(data)...)
	scatter.SetXAxis(data.categories)
	for _, s := range data.series {
		items := make([]opts.ScatterData, 0, len(s.values))
		for _, v := range s.values {
			items = append(items, opts.ScatterData{Value: v})
		}
		scatter.AddSeries(s.name, items)
	}
	return scatter
}
