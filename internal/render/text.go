package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/verte-zerg/spcplot/internal/capability"
	"github.com/verte-zerg/spcplot/internal/stats"
)

const (
	panelGap     = 3
	barRune      = '█'
	curveRune    = '•'
	boxFillRune  = '▒'
	boxRangeRune = '─'
)

// WriteHistogramText prints the process data panel, a horizontal histogram
// with the normal curve marked in each row, and the capability panel side by
// side.
func WriteHistogramText(w io.Writer, sample []float64, report capability.Report, opts Options) error {
	opts = opts.withDefaults()
	if opts.Title != "" {
		if _, err := fmt.Fprintln(w, opts.Title); err != nil {
			return err
		}
	}
	hist := histogramLines(sample, report, opts)
	lines := stats.JoinColumns(panelGap, report.ProcessData.Strings(), hist, report.Capability.Strings())
	return writeLines(w, lines)
}

func histogramLines(sample []float64, report capability.Report, opts Options) []string {
	data := buildHistogram(sample, report, opts.Bins)
	if len(data.bins) == 0 {
		return nil
	}

	expected := make([]float64, len(data.bins))
	scale := 0.0
	for i, b := range data.bins {
		expected[i] = data.expectedCount(b, report.Stats.Mean, report.Stats.StdDevSample)
		scale = math.Max(scale, math.Max(float64(b.Count), expected[i]))
	}
	if scale == 0 {
		scale = 1
	}

	marks := make(map[int][]string)
	for _, l := range LimitLines(report.Classification) {
		idx := stats.BinIndex(data.bins, l.Value)
		switch {
		case idx >= 0:
		case l.Value < data.bins[0].Lower:
			idx = 0
		default:
			idx = len(data.bins) - 1
		}
		marks[idx] = append(marks[idx], l.Label)
	}

	rows := make([][]string, 0, len(data.bins))
	for i, b := range data.bins {
		cells := []rune(strings.Repeat(" ", opts.Width))
		filled := int(math.Round(float64(b.Count) / scale * float64(opts.Width)))
		for x := 0; x < filled && x < len(cells); x++ {
			cells[x] = barRune
		}
		if expected[i] > 0 {
			x := int(math.Round(expected[i]/scale*float64(opts.Width))) - 1
			if x < 0 {
				x = 0
			}
			if x < len(cells) {
				cells[x] = curveRune
			}
		}
		mark := ""
		if labels, ok := marks[i]; ok {
			mark = "◄ " + strings.Join(labels, ", ")
		}
		rows = append(rows, []string{
			strconv.FormatFloat(b.Center(), 'f', 4, 64),
			strings.TrimRight(string(cells), " "),
			strconv.Itoa(b.Count),
			mark,
		})
	}
	lines := stats.FormatTable(nil, rows, map[int]bool{0: true})
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return lines
}

// WriteControlChartText draws an individuals chart with its control limits
// and any specification limits, then lists the out-of-control points.
func WriteControlChartText(w io.Writer, chart stats.IndividualsChart, limits []LimitLine, opts Options) error {
	opts = opts.withDefaults()
	refs := []stats.RefLine{
		{Name: "UCL", Value: chart.Limits.Upper},
		{Name: "CL", Value: chart.Limits.Center},
		{Name: "LCL", Value: chart.Limits.Lower},
	}
	refs = append(refs, refLines(limits)...)

	title := opts.Title
	if title == "" {
		title = "Individuals Chart"
	}
	err := stats.PlotSeries(w, title, []stats.Series{{Name: "Value", Values: chart.Values}}, stats.PlotOptions{
		Width:    opts.Width * 2,
		Height:   opts.Height,
		Color:    opts.Color,
		RefLines: refs,
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "MR-bar %.4f  sigma %.4f\n", stats.Mean(chart.MovingRanges), chart.Limits.Sigma); err != nil {
		return err
	}
	if len(chart.Violations) == 0 {
		_, err := fmt.Fprintln(w, "No points outside the control limits.")
		return err
	}
	rows := make([][]string, 0, len(chart.Violations))
	for _, v := range chart.Violations {
		side := "below LCL"
		if v.Above {
			side = "above UCL"
		}
		rows = append(rows, []string{"#" + strconv.Itoa(v.Index+1), strconv.FormatFloat(v.Value, 'f', 4, 64), side})
	}
	if _, err := fmt.Fprintf(w, "Out of control: %d point(s)\n", len(chart.Violations)); err != nil {
		return err
	}
	return writeLines(w, stats.FormatTable([]string{"Point", "Value", "Side"}, rows, map[int]bool{0: true, 1: true}))
}

// WriteBoxPlotText prints one row per group: the five-number summary and an
// ASCII box on a shared scale.
func WriteBoxPlotText(w io.Writer, boxes []stats.BoxSummary, limits []LimitLine, opts Options) error {
	opts = opts.withDefaults()
	if len(boxes) == 0 {
		return nil
	}
	lo, hi := boxRange(boxes, limits, opts)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	if opts.Title != "" {
		tbl.SetTitle(opts.Title)
	}
	tbl.AppendHeader(table.Row{"Group", "N", "Min", "Q1", "Median", "Q3", "Max", "Outliers", boxHeader(lo, hi, opts.Width)})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	for _, b := range boxes {
		tbl.AppendRow(table.Row{
			b.Label,
			b.Count,
			formatValue(b.Min),
			formatValue(b.Q1),
			formatValue(b.Median),
			formatValue(b.Q3),
			formatValue(b.Max),
			len(b.Outliers),
			boxGlyph(b, lo, hi, opts.Width),
		})
	}
	if len(limits) > 0 {
		parts := make([]string, 0, len(limits))
		for _, l := range limits {
			parts = append(parts, fmt.Sprintf("%s=%s", l.Label, formatValue(l.Value)))
		}
		tbl.AppendFooter(table.Row{"Limits", strings.Join(parts, "  ")})
	}
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

// boxRange is the shared scale of every box, widened to the limits and then
// clamped to YMin/YMax.
func boxRange(boxes []stats.BoxSummary, limits []LimitLine, opts Options) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range boxes {
		lo = math.Min(lo, b.Min)
		hi = math.Max(hi, b.Max)
	}
	for _, l := range limits {
		lo = math.Min(lo, l.Value)
		hi = math.Max(hi, l.Value)
	}
	if opts.YMin != nil {
		lo = *opts.YMin
	}
	if opts.YMax != nil {
		hi = *opts.YMax
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func boxHeader(lo, hi float64, width int) string {
	left := formatValue(lo)
	right := formatValue(hi)
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// boxGlyph draws whiskers, box and median, e.g. "  ├──▒▒│▒▒▒──┤   ".
func boxGlyph(b stats.BoxSummary, lo, hi float64, width int) string {
	cells := []rune(strings.Repeat(" ", width))
	col := func(v float64) int {
		x := int(math.Round((v - lo) / (hi - lo) * float64(width-1)))
		if x < 0 {
			return -1
		}
		if x >= width {
			return width
		}
		return x
	}
	set := func(x int, r rune) {
		if x >= 0 && x < width {
			cells[x] = r
		}
	}
	wl, q1, med, q3, wh := col(b.LowerWhisker), col(b.Q1), col(b.Median), col(b.Q3), col(b.UpperWhisker)
	for x := wl; x <= wh; x++ {
		set(x, boxRangeRune)
	}
	for x := q1; x <= q3; x++ {
		set(x, boxFillRune)
	}
	set(wl, '├')
	set(wh, '┤')
	set(med, '│')
	for _, o := range b.Outliers {
		set(col(o), '∘')
	}
	return string(cells)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
