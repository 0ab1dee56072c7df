package stats

import (
	"errors"
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	sample := []float64{1, 2, 3, 4, 5}
	s, err := Summarize(sample)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.Mean != 3 {
		t.Fatalf("expected mean 3, got %v", s.Mean)
	}
	if math.Abs(s.StdDevSample-math.Sqrt(2.5)) > 1e-12 {
		t.Fatalf("unexpected sample sd %v", s.StdDevSample)
	}
	if math.Abs(s.StdDevPopulation-math.Sqrt(2)) > 1e-12 {
		t.Fatalf("unexpected population sd %v", s.StdDevPopulation)
	}
	if s.Count != 5 || s.Min != 1 || s.Max != 5 {
		t.Fatalf("unexpected count/range: %+v", s)
	}
	if sample[0] != 1 || sample[4] != 5 {
		t.Fatalf("sample was modified: %v", sample)
	}
}

func TestSummarizeConstantSample(t *testing.T) {
	s, err := Summarize([]float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.StdDevSample != 0 || s.StdDevPopulation != 0 {
		t.Fatalf("expected zero deviations, got %+v", s)
	}
	if s.Mean != 0.1 {
		t.Fatalf("expected mean 0.1, got %v", s.Mean)
	}
}

func TestSummarizeLargeMagnitudes(t *testing.T) {
	s, err := Summarize([]float64{1e308, 1.7e308})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !(math.Abs(s.Mean-1.35e308)/1.35e308 <= 1e-12) {
		t.Fatalf("expected mean 1.35e308, got %v", s.Mean)
	}
	if !(math.Abs(s.StdDevSample-0.7e308/math.Sqrt2)/s.StdDevSample <= 1e-12) {
		t.Fatalf("unexpected sample sd %v", s.StdDevSample)
	}
	if !(math.Abs(s.StdDevPopulation-0.35e308)/s.StdDevPopulation <= 1e-12) {
		t.Fatalf("unexpected population sd %v", s.StdDevPopulation)
	}
}

func TestSummarizeRejectsBadSamples(t *testing.T) {
	for _, sample := range [][]float64{nil, {}, {4.2}} {
		_, err := Summarize(sample)
		if !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("expected ErrInsufficientData for %v, got %v", sample, err)
		}
	}
	_, err := Summarize([]float64{1, math.NaN(), 3})
	if !errors.Is(err, ErrNonFiniteSample) {
		t.Fatalf("expected ErrNonFiniteSample, got %v", err)
	}
	var sampleErr *SampleError
	if !errors.As(err, &sampleErr) || sampleErr.Detail == "" {
		t.Fatalf("expected detailed SampleError, got %v", err)
	}
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 10}, 5)
	if len(bins) != 5 {
		t.Fatalf("expected 5 bins, got %d", len(bins))
	}
	want := []int{2, 2, 2, 2, 2}
	for i, b := range bins {
		if b.Count != want[i] {
			t.Fatalf("bin %d: expected %d, got %d", i, want[i], b.Count)
		}
	}
	if bins[4].Upper != 10 {
		t.Fatalf("last bin should end at max, got %v", bins[4].Upper)
	}
	area := 0.0
	for _, b := range bins {
		area += b.Density(10) * b.Width()
	}
	if math.Abs(area-1) > 1e-12 {
		t.Fatalf("densities should integrate to 1, got %v", area)
	}
	if idx := BinIndex(bins, 10); idx != 4 {
		t.Fatalf("max should fall in the last bin, got %d", idx)
	}
	if idx := BinIndex(bins, 11); idx != -1 {
		t.Fatalf("expected -1 outside range, got %d", idx)
	}
}

func TestHistogramConstantSample(t *testing.T) {
	bins := Histogram([]float64{3, 3, 3}, 2)
	if len(bins) != 2 || bins[0].Lower != 2.5 || bins[1].Upper != 3.5 {
		t.Fatalf("unexpected bins %+v", bins)
	}
	if bins[0].Count+bins[1].Count != 3 {
		t.Fatalf("lost values: %+v", bins)
	}
}

func TestNormalPDFAndLinspace(t *testing.T) {
	if got := NormalPDF(0, 0, 1); math.Abs(got-0.3989422804014327) > 1e-12 {
		t.Fatalf("unexpected pdf %v", got)
	}
	xs := Linspace(0.5, 0.6, 3)
	if len(xs) != 3 || xs[0] != 0.5 || xs[2] != 0.6 || math.Abs(xs[1]-0.55) > 1e-12 {
		t.Fatalf("unexpected linspace %v", xs)
	}
}

func TestIndividuals(t *testing.T) {
	values := []float64{10, 12, 11, 13, 12, 11, 12, 11, 12, 13, 11, 40, 12}
	chart, err := Individuals(values, 3)
	if err != nil {
		t.Fatalf("individuals: %v", err)
	}
	if len(chart.MovingRanges) != len(values)-1 {
		t.Fatalf("expected %d moving ranges, got %d", len(values)-1, len(chart.MovingRanges))
	}
	wantSigma := Mean(MovingRanges(values)) / 1.128
	if math.Abs(chart.Limits.Sigma-wantSigma) > 1e-12 {
		t.Fatalf("unexpected sigma %v", chart.Limits.Sigma)
	}
	if math.Abs(chart.Limits.Upper-chart.Limits.Center-3*chart.Limits.Sigma) > 1e-9 {
		t.Fatalf("limits should sit at three sigma: %+v", chart.Limits)
	}
	if len(chart.Violations) != 1 || chart.Violations[0].Index != 11 || !chart.Violations[0].Above {
		t.Fatalf("unexpected violations %+v", chart.Violations)
	}
}

func TestIndividualsFlatSeries(t *testing.T) {
	chart, err := Individuals([]float64{5, 5, 5, 5}, 0)
	if err != nil {
		t.Fatalf("individuals: %v", err)
	}
	if chart.Limits.Sigma != 0 || len(chart.Violations) != 0 {
		t.Fatalf("flat series should have no spread and no violations: %+v", chart)
	}
	if _, err := Individuals([]float64{1}, 3); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestGroupByCategory(t *testing.T) {
	groups, err := GroupByCategory([]float64{1, 2, 3, 4}, []string{"b", "a", "b", "a"})
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 2 || groups[0].Label != "b" || groups[1].Label != "a" {
		t.Fatalf("groups should keep first-seen order: %+v", groups)
	}
	if len(groups[0].Values) != 2 || groups[0].Values[1] != 3 {
		t.Fatalf("unexpected values for b: %v", groups[0].Values)
	}

	_, err = GroupByCategory([]float64{1, 2}, []string{"a"})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}

	all, err := GroupByCategory([]float64{1, 2}, nil)
	if err != nil || len(all) != 1 || all[0].Label != "All" {
		t.Fatalf("nil categories should give one group: %+v, %v", all, err)
	}
}

func TestBox(t *testing.T) {
	box, err := Box("B", []float64{13, 10, 40, 12, 11})
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	if box.Q1 != 11 || box.Median != 12 || box.Q3 != 13 {
		t.Fatalf("unexpected quartiles %+v", box)
	}
	if box.LowerWhisker != 10 || box.UpperWhisker != 13 {
		t.Fatalf("unexpected whiskers %+v", box)
	}
	if len(box.Outliers) != 1 || box.Outliers[0] != 40 {
		t.Fatalf("expected 40 as outlier, got %v", box.Outliers)
	}
	if q := Quantile([]float64{1, 2, 3, 4}, 0.5); q != 2.5 {
		t.Fatalf("expected interpolated median 2.5, got %v", q)
	}
	if _, err := Box("empty", nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
