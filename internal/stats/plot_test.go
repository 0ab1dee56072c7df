package stats

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, PlotOptions{Width: 5, Height: 4})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSeriesRefLinesWidenScale(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "", []Series{
		{Name: "x", Values: []float64{1, 2, 3}},
	}, PlotOptions{Width: 12, Height: 5, RefLines: []RefLine{{Name: "UCL", Value: 10}}})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "10 ") {
		t.Fatalf("expected top axis label 10, got %q", lines[0])
	}
	if !strings.Contains(buf.String(), "UCL=10.0000") {
		t.Fatalf("expected reference line in legend: %s", buf.String())
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Empty", []Series{{Name: "none"}}, PlotOptions{}); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty series, got %q", buf.String())
	}
}

func TestPlotRowsShareAxisWidthWithRefLines(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "", []Series{
		{Name: "x", Values: []float64{0.541, 0.552, 0.539, 0.561}},
	}, PlotOptions{Width: 16, Height: 4, RefLines: []RefLine{{Name: "LSL", Value: -1250.5}, {Name: "USL", Value: 0.6}}})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	rows := lines[:4]
	want := utf8.RuneCountInString(rows[0])
	for i, row := range rows {
		if got := utf8.RuneCountInString(row); got != want {
			t.Fatalf("row %d has %d runes, want %d: %q", i, got, want, row)
		}
		if !strings.Contains(row, axisSeparator) {
			t.Fatalf("row %d lacks the axis separator: %q", i, row)
		}
	}
	if !strings.HasPrefix(strings.TrimSpace(rows[3]), "-125") {
		t.Fatalf("expected the reference line to set the bottom label, got %q", rows[3])
	}
	if want-16 > nominalAxisLabelWidth+utf8.RuneCountInString(axisSeparator) {
		t.Fatalf("axis prefix wider than budgeted by PlotWidthFor: %d", want-16)
	}
}

func TestPlotWidthForClampsToMinimum(t *testing.T) {
	axis := nominalAxisLabelWidth + utf8.RuneCountInString(axisSeparator)
	if got := PlotWidthFor(80); got != 80-axis {
		t.Fatalf("expected width %d, got %d", 80-axis, got)
	}
	for _, total := range []int{0, axis, axis + minPlotWidth - 1} {
		if got := PlotWidthFor(total); got != minPlotWidth {
			t.Fatalf("PlotWidthFor(%d) = %d, want %d", total, got, minPlotWidth)
		}
	}
}
