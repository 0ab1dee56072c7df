package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/verte-zerg/spcplot/internal/capability"
	"github.com/verte-zerg/spcplot/internal/stats"
)

const (
	panelPadding    = 8
	panelLineHeight = 17
	panelMargin     = 0.05
	chartTopPadding = 40
	limitStroke     = 1.5
	curveStroke     = 2
	barAlpha        = 153
	tickCount       = 6
	swarmSpread     = 0.8
	goldenRatio     = 0.6180339887498949
)

var (
	panelFill   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	panelBorder = color.RGBA{A: 255}
	panelText   = color.RGBA{A: 255}
	dashed      = []float64{5, 5}
	dotted      = []float64{2, 4}
)

// WriteHistogramPNG composes the process data panel, the histogram and the
// capability panel in a 1:2:1 grid and encodes the result as PNG.
func WriteHistogramPNG(w io.Writer, sample []float64, report capability.Report, opts Options) error {
	opts = opts.withDefaults()
	width, height := opts.PNGWidth, opts.PNGHeight
	left := width / 4
	mid := width / 2

	plot, err := renderHistogramChart(sample, report, opts, mid, height)
	if err != nil {
		return err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(hexColor(opts.Background)), image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(left, 0, left+mid, height), plot, plot.Bounds().Min, draw.Src)
	drawPanel(canvas, image.Rect(0, 0, left, height), report.ProcessData.Strings())
	drawPanel(canvas, image.Rect(left+mid, 0, width, height), report.Capability.Strings())

	if err := png.Encode(w, canvas); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func renderHistogramChart(sample []float64, report capability.Report, opts Options, width, height int) (image.Image, error) {
	data := buildHistogram(sample, report, opts.Bins)
	if len(data.bins) == 0 {
		return nil, errors.New("no data to plot")
	}

	bar := hexColor(opts.BarColor)
	curve := hexColor(opts.CurveColor)

	// Bars are drawn as one filled outline: up the left edge, across, down.
	xs := make([]float64, 0, len(data.bins)*4)
	ys := make([]float64, 0, len(data.bins)*4)
	for _, b := range data.bins {
		d := b.Density(data.total)
		xs = append(xs, b.Lower, b.Lower, b.Upper, b.Upper)
		ys = append(ys, 0, d, d, 0)
	}
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Histogram",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: drawing.ColorBlack,
				StrokeWidth: 1,
				FillColor:   bar.WithAlpha(barAlpha),
			},
		},
	}
	if len(data.curveX) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "Overall",
			XValues: data.curveX,
			YValues: data.curveY,
			Style:   chart.Style{StrokeColor: curve, StrokeWidth: curveStroke},
		})
	}

	top := data.peak * 1.1
	if top <= 0 {
		top = 1
	}
	var annotations []chart.Value2
	for _, l := range LimitLines(report.Classification) {
		dash := dashed
		if l.IsTarget() {
			dash = dotted
		}
		series = append(series, chart.ContinuousSeries{
			Name:    l.Label,
			XValues: []float64{l.Value, l.Value},
			YValues: []float64{0, top},
			Style:   chart.Style{StrokeColor: curve, StrokeWidth: limitStroke, StrokeDashArray: dash},
		})
		annotations = append(annotations, chart.Value2{XValue: l.Value, YValue: top, Label: l.Label})
	}
	if len(annotations) > 0 {
		series = append(series, chart.AnnotationSeries{
			Annotations: annotations,
			Style: chart.Style{
				StrokeColor: curve,
				FillColor:   drawing.ColorWhite,
				FontColor:   curve,
			},
		})
	}

	xmin, xmax := niceAxisBounds(data.lo, data.hi)
	ch := chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding:   chart.Box{Top: chartTopPadding, Left: 12, Right: 12, Bottom: 12},
			FillColor: hexColor(opts.Background),
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: xmin, Max: xmax},
			Ticks: niceTicks(xmin, xmax, tickCount),
		},
		YAxis: chart.YAxis{
			Name:  "Density",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			Ticks: niceTicks(0, top, tickCount),
		},
		Series: series,
	}
	return renderChart(ch)
}

// WriteControlChartPNG draws an individuals chart with centre line, control
// limits, specification limits and out-of-control points.
func WriteControlChartPNG(w io.Writer, ic stats.IndividualsChart, limits []LimitLine, opts Options) error {
	opts = opts.withDefaults()
	n := len(ic.Values)
	if n == 0 {
		return errors.New("no data to plot")
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	ends := []float64{1, float64(n)}
	curve := hexColor(opts.CurveColor)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Value",
			XValues: xs,
			YValues: ic.Values,
			Style: chart.Style{
				StrokeColor: hexColor(opts.BarColor),
				StrokeWidth: 1.5,
				DotColor:    hexColor(opts.BarColor),
				DotWidth:    2.5,
			},
		},
		horizontal("CL", ends, ic.Limits.Center, chart.Style{StrokeColor: drawing.ColorFromHex("2E8B57"), StrokeWidth: 1.5}),
		horizontal("UCL", ends, ic.Limits.Upper, chart.Style{StrokeColor: curve, StrokeWidth: limitStroke, StrokeDashArray: dashed}),
		horizontal("LCL", ends, ic.Limits.Lower, chart.Style{StrokeColor: curve, StrokeWidth: limitStroke, StrokeDashArray: dashed}),
	}
	lo := math.Min(ic.Limits.Lower, minOf(ic.Values))
	hi := math.Max(ic.Limits.Upper, maxOf(ic.Values))
	for _, l := range limits {
		series = append(series, horizontal(l.Label, ends, l.Value, chart.Style{
			StrokeColor:     drawing.ColorFromHex("FF8C00"),
			StrokeWidth:     1,
			StrokeDashArray: dotted,
		}))
		lo = math.Min(lo, l.Value)
		hi = math.Max(hi, l.Value)
	}
	if len(ic.Violations) > 0 {
		vx := make([]float64, 0, len(ic.Violations))
		vy := make([]float64, 0, len(ic.Violations))
		for _, v := range ic.Violations {
			vx = append(vx, float64(v.Index+1))
			vy = append(vy, v.Value)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "Out of control",
			XValues: vx,
			YValues: vy,
			Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: 5, DotColor: curve},
		})
	}

	ymin, ymax := niceAxisBounds(lo, hi)
	xmax := float64(n)
	if n == 1 {
		xmax = 2
	}
	title := opts.Title
	if title == "" {
		title = "Individuals Chart"
	}
	ch := chart.Chart{
		Title:  title,
		Width:  opts.PNGWidth,
		Height: opts.PNGHeight,
		Background: chart.Style{
			Padding:   chart.Box{Top: chartTopPadding, Left: 16, Right: 12, Bottom: 12},
			FillColor: drawing.ColorWhite,
		},
		XAxis: chart.XAxis{
			Name:  "Observation",
			Range: &chart.ContinuousRange{Min: 1, Max: xmax},
			Ticks: niceTicks(1, xmax, tickCount),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: ymin, Max: ymax},
			Ticks: niceTicks(ymin, ymax, tickCount),
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	img, err := renderChart(ch)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// WriteBoxPlotPNG draws one box per group with whiskers, outliers and the
// specification limits on a shared scale. With Swarm set every observation is
// overlaid with a horizontal jitter inside the box.
func WriteBoxPlotPNG(w io.Writer, groups []stats.Group, limits []LimitLine, opts Options) error {
	opts = opts.withDefaults()
	boxes, err := stats.Boxes(groups)
	if err != nil {
		return err
	}
	if len(boxes) == 0 {
		return errors.New("no data to plot")
	}
	lo, hi := boxRange(boxes, limits, opts)
	if opts.YMin == nil && opts.YMax == nil {
		lo, hi = niceAxisBounds(lo, hi)
	}
	clamp := func(v float64) float64 {
		return math.Max(lo, math.Min(hi, v))
	}
	inside := func(v float64) bool {
		return v >= lo && v <= hi
	}

	line := chart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 1}
	body := line
	if !opts.BoxHollow {
		body.FillColor = hexColor(opts.BarColor).WithAlpha(barAlpha)
	}
	median := chart.Style{StrokeColor: hexColor(opts.CurveColor), StrokeWidth: curveStroke}
	half := opts.BoxWidth / 2

	series := make([]chart.Series, 0, len(boxes)*7+len(limits)+1)
	ticks := make([]chart.Tick, 0, len(boxes))
	for i, b := range boxes {
		x := float64(i + 1)
		ticks = append(ticks, chart.Tick{Value: x, Label: b.Label})
		q1, q3 := clamp(b.Q1), clamp(b.Q3)
		wl, wh := clamp(b.LowerWhisker), clamp(b.UpperWhisker)
		series = append(series,
			segment([]float64{x, x}, []float64{wl, q1}, line),
			segment([]float64{x, x}, []float64{q3, wh}, line),
			segment([]float64{x - half/2, x + half/2}, []float64{wl, wl}, line),
			segment([]float64{x - half/2, x + half/2}, []float64{wh, wh}, line),
			segment([]float64{x - half, x - half, x + half, x + half, x - half}, []float64{q1, q3, q3, q1, q1}, body),
		)
		if inside(b.Median) {
			series = append(series, segment([]float64{x - half, x + half}, []float64{b.Median, b.Median}, median))
		}

		var px, py []float64
		points := b.Outliers
		if opts.Swarm {
			points = groups[i].Values
		}
		for k, v := range points {
			if !inside(v) {
				continue
			}
			offset := 0.0
			if opts.Swarm {
				offset = jitter(k, half*swarmSpread)
			}
			px = append(px, x+offset)
			py = append(py, v)
		}
		if len(px) > 0 {
			series = append(series, chart.ContinuousSeries{
				XValues: px,
				YValues: py,
				Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: 2.5, DotColor: drawing.ColorBlack},
			})
		}
	}

	xmin, xmax := 0.5, float64(len(boxes))+0.5
	ends := []float64{xmin, xmax}
	var annotations []chart.Value2
	for _, l := range limits {
		if !inside(l.Value) {
			continue
		}
		dash := dashed
		if l.IsTarget() {
			dash = dotted
		}
		series = append(series, horizontal(l.Label, ends, l.Value, chart.Style{
			StrokeColor:     hexColor(opts.CurveColor),
			StrokeWidth:     limitStroke,
			StrokeDashArray: dash,
		}))
		annotations = append(annotations, chart.Value2{XValue: xmax, YValue: l.Value, Label: l.Label})
	}
	if len(annotations) > 0 {
		series = append(series, chart.AnnotationSeries{
			Annotations: annotations,
			Style: chart.Style{
				StrokeColor: hexColor(opts.CurveColor),
				FillColor:   drawing.ColorWhite,
				FontColor:   hexColor(opts.CurveColor),
			},
		})
	}

	ch := chart.Chart{
		Title:  opts.Title,
		Width:  opts.PNGWidth,
		Height: opts.PNGHeight,
		Background: chart.Style{
			Padding:   chart.Box{Top: chartTopPadding, Left: 16, Right: 48, Bottom: 12},
			FillColor: drawing.ColorWhite,
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: xmin, Max: xmax},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			Ticks: niceTicks(lo, hi, tickCount),
		},
		Series: series,
	}
	img, err := renderChart(ch)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// jitter spreads the k-th point of a group over [-spread, spread] along the
// golden ratio sequence, so repeated renders place points identically.
func jitter(k int, spread float64) float64 {
	f := math.Mod(float64(k)*goldenRatio, 1)
	return (2*f - 1) * spread
}

func segment(xs, ys []float64, style chart.Style) chart.ContinuousSeries {
	return chart.ContinuousSeries{XValues: xs, YValues: ys, Style: style}
}

func horizontal(name string, ends []float64, y float64, style chart.Style) chart.ContinuousSeries {
	return chart.ContinuousSeries{Name: name, XValues: ends, YValues: []float64{y, y}, Style: style}
}

func renderChart(ch chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chart: %w", err)
	}
	return img, nil
}

// drawPanel writes lines into a white bordered box anchored at the top-left
// of area, the way a matplotlib text bbox sits in an axis-off subplot.
func drawPanel(dst draw.Image, area image.Rectangle, lines []string) {
	if len(lines) == 0 {
		return
	}
	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: dst, Src: image.NewUniform(panelText), Face: face}

	textWidth := 0
	for _, line := range lines {
		if w := dr.MeasureString(line).Ceil(); w > textWidth {
			textWidth = w
		}
	}
	x := area.Min.X + int(float64(area.Dx())*panelMargin)
	y := area.Min.Y + int(float64(area.Dy())*panelMargin)
	box := image.Rect(x, y, x+textWidth+2*panelPadding, y+len(lines)*panelLineHeight+2*panelPadding)
	if box.Max.X > area.Max.X {
		box.Max.X = area.Max.X
	}

	draw.Draw(dst, box, image.NewUniform(panelFill), image.Point{}, draw.Src)
	strokeRect(dst, box, panelBorder)

	ascent := face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		baseline := box.Min.Y + panelPadding + ascent + i*panelLineHeight
		dr.Dot = fixed.Point26_6{X: fixed.I(box.Min.X + panelPadding), Y: fixed.I(baseline)}
		dr.DrawString(strings.TrimRight(line, " "))
	}
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func minOf(values []float64) float64 {
	out := math.Inf(1)
	for _, v := range values {
		out = math.Min(out, v)
	}
	return out
}

func maxOf(values []float64) float64 {
	out := math.Inf(-1)
	for _, v := range values {
		out = math.Max(out, v)
	}
	return out
}
