package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/verte-zerg/spcplot/internal/capability"
)

const (
	htmlLineWidth   = 2
	htmlBarOpacity  = 0.6
	htmlPanelJoiner = "    "
)

// WriteHistogramHTML writes a standalone page with the histogram, the normal
// curve, limit mark lines and both panels as the chart subtitle.
func WriteHistogramHTML(w io.Writer, sample []float64, report capability.Report, o Options) error {
	o = o.withDefaults()
	data := buildHistogram(sample, report, o.Bins)
	if len(data.bins) == 0 {
		return errors.New("no data to plot")
	}

	outline := make([]opts.LineData, 0, len(data.bins)*4)
	for _, b := range data.bins {
		d := b.Density(data.total)
		outline = append(outline,
			opts.LineData{Value: []float64{b.Lower, 0}},
			opts.LineData{Value: []float64{b.Lower, d}},
			opts.LineData{Value: []float64{b.Upper, d}},
			opts.LineData{Value: []float64{b.Upper, 0}},
		)
	}

	xmin, xmax := niceAxisBounds(data.lo, data.hi)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: pageTitle(o.Title),
			Width:     fmt.Sprintf("%dpx", o.PNGWidth),
			Height:    fmt.Sprintf("%dpx", o.PNGHeight),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    o.Title,
			Subtitle: panelSubtitle(report),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: xmin, Max: xmax}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Density"}),
		charts.WithGridOpts(opts.Grid{Top: "120px"}),
	)

	histOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: o.BarColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: 1, Color: "#000000"}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: o.BarColor, Opacity: opts.Float(htmlBarOpacity)}),
	}
	for _, l := range LimitLines(report.Classification) {
		histOpts = append(histOpts, charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{Name: l.Label, XAxis: l.Value}))
	}
	line.AddSeries("Histogram", outline, histOpts...)

	if len(data.curveX) > 0 {
		curve := make([]opts.LineData, len(data.curveX))
		for i := range data.curveX {
			curve[i] = opts.LineData{Value: []float64{data.curveX[i], data.curveY[i]}}
		}
		line.AddSeries("Overall", curve,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: o.CurveColor}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: htmlLineWidth, Color: o.CurveColor}),
		)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}

func pageTitle(title string) string {
	if title == "" {
		return "Process Capability"
	}
	return title
}

// panelSubtitle flattens both panels into two subtitle rows.
func panelSubtitle(report capability.Report) string {
	process := report.ProcessData.Strings()
	capab := report.Capability.Strings()
	return strings.Join(process, htmlPanelJoiner) + "\n" + strings.Join(capab, htmlPanelJoiner)
}
