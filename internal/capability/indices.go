package capability

import (
	"errors"
	"fmt"
	"math"

	"github.com/verte-zerg/spcplot/internal/stats"
)

// IndexName identifies a capability or performance index.
type IndexName string

const (
	Cp  IndexName = "Cp"
	CPL IndexName = "CPL"
	CPU IndexName = "CPU"
	Cpk IndexName = "Cpk"
	Pp  IndexName = "Pp"
	PPL IndexName = "PPL"
	PPU IndexName = "PPU"
	Ppk IndexName = "Ppk"
)

// UndefinedMarker is printed in place of an index that cannot be computed.
const UndefinedMarker = "*"

// Value is a single computed index. Defined is false when the index divides
// by a zero standard deviation or its quotient is not finite; Float is then
// meaningless and left at zero.
type Value struct {
	Name    IndexName
	Float   float64
	Defined bool

	reason string
}

// Reasons an index is left undefined.
const (
	reasonZeroSigma = "standard deviation is zero"
	reasonNotFinite = "result is not finite"
)

// Reason explains why an undefined value could not be computed.
func (v Value) Reason() string {
	if v.Defined {
		return ""
	}
	if v.reason == "" {
		return reasonZeroSigma
	}
	return v.reason
}

// String renders the value with two decimals, or the undefined marker.
func (v Value) String() string {
	if !v.Defined {
		return UndefinedMarker
	}
	return fmt.Sprintf("%.2f", v.Float)
}

// Indices is the ordered set of indices populated for a case.
type Indices struct {
	Case   Case
	values []Value
}

// Values returns the populated indices in display order.
func (ix Indices) Values() []Value {
	out := make([]Value, len(ix.values))
	copy(out, ix.values)
	return out
}

// Len returns the number of populated indices.
func (ix Indices) Len() int {
	return len(ix.values)
}

// Lookup returns the index with the given name and whether it is populated.
func (ix Indices) Lookup(name IndexName) (Value, bool) {
	for _, v := range ix.values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{Name: name}, false
}

// Get returns the numeric value of an index. Undefined and unpopulated indices
// both return an *UndefinedIndexError.
func (ix Indices) Get(name IndexName) (float64, error) {
	v, ok := ix.Lookup(name)
	if !ok {
		return 0, &UndefinedIndexError{Index: name, Reason: fmt.Sprintf("not computed for %s case", ix.Case)}
	}
	if !v.Defined {
		return 0, &UndefinedIndexError{Index: name, Reason: v.Reason()}
	}
	return v.Float, nil
}

// Headline returns the index that best summarizes the short-term capability
// of the case: CPL, CPU or Cpk. NoBound has none.
func (ix Indices) Headline() (Value, bool) {
	return ix.Lookup(headlineName(ix.Case, false))
}

// OverallHeadline is the long-term counterpart of Headline.
func (ix Indices) OverallHeadline() (Value, bool) {
	return ix.Lookup(headlineName(ix.Case, true))
}

func headlineName(c Case, overall bool) IndexName {
	switch c {
	case LowerOnly:
		if overall {
			return PPL
		}
		return CPL
	case UpperOnly:
		if overall {
			return PPU
		}
		return CPU
	case TwoBound:
		if overall {
			return Ppk
		}
		return Cpk
	default:
		return ""
	}
}

// ComputeIndices computes the indices for the classified limits. When a
// standard deviation is zero or a quotient overflows, the dependent indices are
// marked undefined, the populated Indices is still returned, and the error
// wraps ErrUndefinedIndex.
func ComputeIndices(c Classification, s stats.Summary) (Indices, error) {
	ix := Indices{Case: c.Case}
	within := sigmaGroup{sigma: s.StdDevSample}
	overall := sigmaGroup{sigma: s.StdDevPopulation}

	switch c.Case {
	case NoBound:
		return ix, nil
	case LowerOnly:
		ix.values = []Value{
			within.lower(CPL, s.Mean, c.lower),
			overall.lower(PPL, s.Mean, c.lower),
		}
	case UpperOnly:
		ix.values = []Value{
			within.upper(CPU, s.Mean, c.upper),
			overall.upper(PPU, s.Mean, c.upper),
		}
	case TwoBound:
		ix.values = append(
			within.twoSided(Cp, CPL, CPU, Cpk, s.Mean, c.lower, c.upper),
			overall.twoSided(Pp, PPL, PPU, Ppk, s.Mean, c.lower, c.upper)...,
		)
	default:
		return Indices{}, fmt.Errorf("%w: %d", ErrUnknownCase, int(c.Case))
	}

	var errs []error
	for _, v := range ix.values {
		if !v.Defined {
			errs = append(errs, &UndefinedIndexError{Index: v.Name, Reason: v.Reason()})
		}
	}
	return ix, errors.Join(errs...)
}

// sigmaGroup evaluates every index sharing one standard deviation.
type sigmaGroup struct {
	sigma float64
}

func (g sigmaGroup) ratio(name IndexName, num, spread float64) Value {
	if g.sigma == 0 {
		return Value{Name: name, reason: reasonZeroSigma}
	}
	v := num / (spread * g.sigma)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{Name: name, reason: reasonNotFinite}
	}
	return Value{Name: name, Float: v, Defined: true}
}

func (g sigmaGroup) lower(name IndexName, mean, lsl float64) Value {
	return g.ratio(name, mean-lsl, 3)
}

func (g sigmaGroup) upper(name IndexName, mean, usl float64) Value {
	return g.ratio(name, usl-mean, 3)
}

func (g sigmaGroup) twoSided(spreadName, lowerName, upperName, minName IndexName, mean, lsl, usl float64) []Value {
	spread := g.ratio(spreadName, usl-lsl, 6)
	lo := g.lower(lowerName, mean, lsl)
	hi := g.upper(upperName, mean, usl)
	k := Value{Name: minName}
	switch {
	case lo.Defined && hi.Defined:
		k.Float = math.Min(lo.Float, hi.Float)
		k.Defined = true
	case !lo.Defined:
		k.reason = lo.reason
	default:
		k.reason = hi.reason
	}
	return []Value{spread, lo, hi, k}
}
