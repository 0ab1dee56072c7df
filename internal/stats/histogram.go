// Package stats contains statistics calculations and text rendering helpers.
package stats

import "math"

// DefaultBins is used when no bin count is configured.
const DefaultBins = 10

// Bin is one equal-width histogram bucket. Every bin is half-open except the
// last one, which also holds the maximum.
type Bin struct {
	Lower float64
	Upper float64
	Count int
}

// Center returns the midpoint of the bin.
func (b Bin) Center() float64 {
	return (b.Lower + b.Upper) / 2
}

// Width returns the bin width.
func (b Bin) Width() float64 {
	return b.Upper - b.Lower
}

// Density returns the normalized height so that all bins integrate to 1.
func (b Bin) Density(total int) float64 {
	w := b.Width()
	if total <= 0 || w <= 0 {
		return 0
	}
	return float64(b.Count) / (float64(total) * w)
}

// Histogram splits values into equal-width bins spanning [min, max].
// A constant sample gets a unit-wide range centred on the value.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// BinIndex returns the index of the bin holding x, or -1 when x is outside.
func BinIndex(bins []Bin, x float64) int {
	for i, b := range bins {
		if x >= b.Lower && (x < b.Upper || (i == len(bins)-1 && x == b.Upper)) {
			return i
		}
	}
	return -1
}

// NormalPDF evaluates the normal density. sd must be positive.
func NormalPDF(x, mean, sd float64) float64 {
	z := (x - mean) / sd
	return math.Exp(-0.5*z*z) / (sd * math.Sqrt(2*math.Pi))
}

// Linspace returns n evenly spaced points from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
