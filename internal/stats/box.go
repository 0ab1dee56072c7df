// Package stats contains statistics calculations and text rendering helpers.
package stats

import (
	"fmt"
	"math"
	"sort"
)

// whiskerReach is the Tukey fence distance in IQRs.
const whiskerReach = 1.5

// Group is a labeled subset of a sample.
type Group struct {
	Label  string
	Values []float64
}

// BoxSummary is the five-number summary of a group plus its outliers.
type BoxSummary struct {
	Label        string
	Count        int
	Min          float64
	Q1           float64
	Median       float64
	Q3           float64
	Max          float64
	LowerWhisker float64
	UpperWhisker float64
	Outliers     []float64
}

// IQR returns the interquartile range.
func (b BoxSummary) IQR() float64 {
	return b.Q3 - b.Q1
}

// GroupByCategory splits values by category, keeping first-seen order.
// A nil categories slice yields a single group labeled "All".
func GroupByCategory(values []float64, categories []string) ([]Group, error) {
	if categories == nil {
		return []Group{{Label: "All", Values: values}}, nil
	}
	if len(values) != len(categories) {
		return nil, &SampleError{
			Err:    ErrLengthMismatch,
			Detail: fmt.Sprintf("%d values, %d categories", len(values), len(categories)),
		}
	}
	index := make(map[string]int)
	var groups []Group
	for i, v := range values {
		key := categories[i]
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, Group{Label: key})
		}
		groups[idx].Values = append(groups[idx].Values, v)
	}
	return groups, nil
}

// Quantile returns the p-quantile of sorted values using linear interpolation.
// p must be in [0, 1].
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := p * float64(n-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= n {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Box computes the box-plot summary of one group.
func Box(label string, values []float64) (BoxSummary, error) {
	if len(values) == 0 {
		return BoxSummary{}, &SampleError{Err: ErrInsufficientData, Detail: fmt.Sprintf("group %q is empty", label)}
	}
	if err := checkFinite(values); err != nil {
		return BoxSummary{}, err
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	box := BoxSummary{
		Label:  label,
		Count:  len(sorted),
		Min:    sorted[0],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
	lowFence := box.Q1 - whiskerReach*box.IQR()
	highFence := box.Q3 + whiskerReach*box.IQR()
	box.LowerWhisker = box.Q1
	box.UpperWhisker = box.Q3
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			box.Outliers = append(box.Outliers, v)
			continue
		}
		if v < box.LowerWhisker {
			box.LowerWhisker = v
		}
		if v > box.UpperWhisker {
			box.UpperWhisker = v
		}
	}
	return box, nil
}

// Boxes summarizes every group in order.
func Boxes(groups []Group) ([]BoxSummary, error) {
	out := make([]BoxSummary, 0, len(groups))
	for _, g := range groups {
		b, err := Box(g.Label, g.Values)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
