// Package stats contains statistics calculations and text rendering helpers.
package stats

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel sample errors.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrNonFiniteSample  = errors.New("sample contains non-finite value")
	ErrLengthMismatch   = errors.New("category and data not equal in length")
)

// MinSampleSize is the smallest sample a standard deviation can be computed for.
const MinSampleSize = 2

// largeMagnitude is the value above which squared deviations risk overflow.
const largeMagnitude = 1e100

// SampleError carries the detail for a rejected sample.
type SampleError struct {
	Err    error
	Detail string
}

func (e *SampleError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

// Unwrap returns the sentinel error.
func (e *SampleError) Unwrap() error {
	return e.Err
}

// Summary holds the descriptive statistics of a sample.
type Summary struct {
	Mean float64
	// StdDevSample divides by n-1 and is the within (short-term) estimate.
	StdDevSample float64
	// StdDevPopulation divides by n and is the overall (long-term) estimate.
	StdDevPopulation float64
	Min              float64
	Max              float64
	Count            int
}

// Summarize computes mean, both standard deviations, range and size of the sample.
// The sample is not modified.
func Summarize(sample []float64) (Summary, error) {
	n := len(sample)
	if n < MinSampleSize {
		return Summary{}, &SampleError{
			Err:    ErrInsufficientData,
			Detail: fmt.Sprintf("need at least %d values, got %d", MinSampleSize, n),
		}
	}
	if err := checkFinite(sample); err != nil {
		return Summary{}, err
	}

	minVal, maxVal := sample[0], sample[0]
	for _, v := range sample {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	// A constant sample has no spread; rounding in sum/n must not invent one.
	if minVal == maxVal {
		return Summary{Mean: minVal, Min: minVal, Max: maxVal, Count: n}, nil
	}

	// Magnitudes near the float64 limit overflow the sums, so they are
	// accumulated in units of the largest magnitude.
	scale := 1.0
	if peak := math.Max(math.Abs(minVal), math.Abs(maxVal)); peak > largeMagnitude {
		scale = peak
	}
	var sum float64
	for _, v := range sample {
		sum += v / scale
	}
	mean := sum / float64(n)
	var sumSq, sumDiff float64
	for _, v := range sample {
		d := v/scale - mean
		sumSq += d * d
		sumDiff += d
	}
	// Corrected two-pass: subtract the residual of the first pass.
	ss := sumSq - sumDiff*sumDiff/float64(n)
	if ss < 0 {
		ss = 0
	}

	return Summary{
		Mean:             mean * scale,
		StdDevSample:     math.Sqrt(ss/float64(n-1)) * scale,
		StdDevPopulation: math.Sqrt(ss/float64(n)) * scale,
		Min:              minVal,
		Max:              maxVal,
		Count:            n,
	}, nil
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &SampleError{
				Err:    ErrNonFiniteSample,
				Detail: fmt.Sprintf("value %v at index %d", v, i),
			}
		}
	}
	return nil
}
