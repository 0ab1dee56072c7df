// Package stats contains statistics calculations and text rendering helpers.
package stats

import "fmt"

// d2 is the bias constant for moving ranges of span 2.
const d2 = 1.128

// DefaultSigmaMultiplier places control limits at three sigma.
const DefaultSigmaMultiplier = 3.0

// ControlLimits are the centre line and natural process limits of a chart.
type ControlLimits struct {
	Center float64
	Sigma  float64
	Upper  float64
	Lower  float64
}

// Violation is a point outside the control limits.
type Violation struct {
	Index int
	Value float64
	Above bool
}

// IndividualsChart is an I-chart with its moving ranges.
type IndividualsChart struct {
	Values       []float64
	MovingRanges []float64
	Limits       ControlLimits
	Violations   []Violation
}

// Individuals builds an individuals chart with limits at center ± k·σ̂,
// σ̂ = mean moving range / d2. A flat series reports no violations.
func Individuals(values []float64, k float64) (IndividualsChart, error) {
	if len(values) < MinSampleSize {
		return IndividualsChart{}, &SampleError{
			Err:    ErrInsufficientData,
			Detail: fmt.Sprintf("need at least %d values, got %d", MinSampleSize, len(values)),
		}
	}
	if err := checkFinite(values); err != nil {
		return IndividualsChart{}, err
	}
	if k <= 0 {
		k = DefaultSigmaMultiplier
	}

	mr := MovingRanges(values)
	center := Mean(values)
	sigma := Mean(mr) / d2
	chart := IndividualsChart{
		Values:       append([]float64(nil), values...),
		MovingRanges: mr,
		Limits: ControlLimits{
			Center: center,
			Sigma:  sigma,
			Upper:  center + k*sigma,
			Lower:  center - k*sigma,
		},
	}
	if sigma == 0 {
		return chart, nil
	}
	for i, v := range values {
		switch {
		case v > chart.Limits.Upper:
			chart.Violations = append(chart.Violations, Violation{Index: i, Value: v, Above: true})
		case v < chart.Limits.Lower:
			chart.Violations = append(chart.Violations, Violation{Index: i, Value: v})
		}
	}
	return chart, nil
}
