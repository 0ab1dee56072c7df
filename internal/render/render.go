package render

import (
	"fmt"
	"io"

	"github.com/verte-zerg/spcplot/internal/capability"
	"github.com/verte-zerg/spcplot/internal/stats"
)

// WriteHistogram renders a capability histogram in the given format.
func WriteHistogram(w io.Writer, format string, sample []float64, report capability.Report, opts Options) error {
	switch format {
	case FormatText:
		return WriteHistogramText(w, sample, report, opts)
	case FormatPNG:
		return WriteHistogramPNG(w, sample, report, opts)
	case FormatHTML:
		return WriteHistogramHTML(w, sample, report, opts)
	default:
		return fmt.Errorf("unsupported histogram format %q", format)
	}
}

// WriteControlChart renders an individuals chart as text or PNG.
func WriteControlChart(w io.Writer, format string, chart stats.IndividualsChart, limits []LimitLine, opts Options) error {
	switch format {
	case FormatText:
		return WriteControlChartText(w, chart, limits, opts)
	case FormatPNG:
		return WriteControlChartPNG(w, chart, limits, opts)
	default:
		return fmt.Errorf("unsupported control chart format %q", format)
	}
}

// WriteBoxPlot renders one box per group as text or PNG.
func WriteBoxPlot(w io.Writer, format string, groups []stats.Group, limits []LimitLine, opts Options) error {
	switch format {
	case FormatText:
		boxes, err := stats.Boxes(groups)
		if err != nil {
			return err
		}
		return WriteBoxPlotText(w, boxes, limits, opts)
	case FormatPNG:
		return WriteBoxPlotPNG(w, groups, limits, opts)
	default:
		return fmt.Errorf("unsupported box plot format %q", format)
	}
}
