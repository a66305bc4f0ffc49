package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

const (
	chartWidth   = "100%"
	chartHeight  = "420px"
	leafColor    = "#5470c6"
	prefixColor  = "#ee6666"
	zoomEndRatio = 100
)

// Plot writes an HTML page with two charts: the leaf values as bars and the
// running prefix fold as a line. String leaves are plotted by length.
func Plot(w io.Writer, title, monoidName string, series script.Series) error {
	labels := make([]string, len(series.Leaves))
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}

	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(
		leafChart(title, monoidName, labels, series.Leaves),
		prefixChart(monoidName, labels, series.Prefix),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func globalOptions(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "10%"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: zoomEndRatio},
			opts.DataZoom{Type: "inside"},
		),
	}
}

func leafChart(title, monoidName string, labels []string, leaves []float64) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(title, monoidName+" leaves")...)
	bar.SetXAxis(labels)

	data := make([]opts.BarData, len(leaves))
	for i, v := range leaves {
		data[i] = opts.BarData{Value: v}
	}

	bar.AddSeries("leaf", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: leafColor}))

	return bar
}

func prefixChart(monoidName string, labels []string, prefix []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions("prefix fold", monoidName+" over [0, i]")...)
	line.SetXAxis(labels)

	data := make([]opts.LineData, len(prefix))
	for i, v := range prefix {
		data[i] = opts.LineData{Value: v}
	}

	line.AddSeries("prefix", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: prefixColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: prefixColor}),
	)

	return line
}
