package render

import (
	"github.com/verte-zerg/spcplot/internal/capability"
	"github.com/verte-zerg/spcplot/internal/stats"
)

// Limit line labels.
const (
	LabelLSL    = "LSL"
	LabelTarget = "Target"
	LabelUSL    = "USL"
)

// LimitLine is a vertical (histogram) or horizontal (control chart, box plot)
// reference at a specification limit.
type LimitLine struct {
	Label string
	Value float64
}

// IsTarget reports whether the line marks the target rather than a limit.
func (l LimitLine) IsTarget() bool {
	return l.Label == LabelTarget
}

// LimitLines lists the reference lines for the classified limits in the order
// LSL, Target, USL. Absent limits produce no line.
func LimitLines(c capability.Classification) []LimitLine {
	var out []LimitLine
	if v, ok := c.Lower(); ok {
		out = append(out, LimitLine{Label: LabelLSL, Value: v})
	}
	if v, ok := c.Target(); ok {
		out = append(out, LimitLine{Label: LabelTarget, Value: v})
	}
	if v, ok := c.Upper(); ok {
		out = append(out, LimitLine{Label: LabelUSL, Value: v})
	}
	return out
}

func refLines(lines []LimitLine) []stats.RefLine {
	out := make([]stats.RefLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, stats.RefLine{Name: l.Label, Value: l.Value})
	}
	return out
}

// histogramData is what every histogram renderer draws: density bars and the
// fitted normal curve.
type histogramData struct {
	bins   []stats.Bin
	total  int
	curveX []float64
	curveY []float64
	lo     float64
	hi     float64
	peak   float64
}

// buildHistogram bins the sample and evaluates the normal curve over
// [LSL or min, USL or max]. A zero deviation gets no curve.
func buildHistogram(sample []float64, report capability.Report, bins int) histogramData {
	data := histogramData{bins: stats.Histogram(sample, bins), total: len(sample)}
	if len(data.bins) == 0 {
		return data
	}
	data.lo = data.bins[0].Lower
	data.hi = data.bins[len(data.bins)-1].Upper
	for _, b := range data.bins {
		if d := b.Density(data.total); d > data.peak {
			data.peak = d
		}
	}

	xmin, xmax := data.lo, data.hi
	if v, ok := report.Classification.Lower(); ok {
		xmin = v
	}
	if v, ok := report.Classification.Upper(); ok {
		xmax = v
	}
	if xmin < data.lo {
		data.lo = xmin
	}
	if xmax > data.hi {
		data.hi = xmax
	}

	sd := report.Stats.StdDevSample
	if sd <= 0 || xmax <= xmin {
		return data
	}
	data.curveX = stats.Linspace(xmin, xmax, curvePoints)
	data.curveY = make([]float64, len(data.curveX))
	for i, x := range data.curveX {
		y := stats.NormalPDF(x, report.Stats.Mean, sd)
		data.curveY[i] = y
		if y > data.peak {
			data.peak = y
		}
	}
	return data
}

// expectedCount is the normal-curve count for a bin.
func (h histogramData) expectedCount(b stats.Bin, mean, sd float64) float64 {
	if sd <= 0 {
		return 0
	}
	return stats.NormalPDF(b.Center(), mean, sd) * float64(h.total) * b.Width()
}
