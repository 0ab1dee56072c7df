package capability

import (
	"fmt"
	"math"
)

// Classification is the outcome of Classify. It copies the limit values so it
// does not alias the caller's pointers.
type Classification struct {
	Case   Case
	lower  float64
	upper  float64
	target float64
}

// Lower returns the lower limit and whether it is present.
func (c Classification) Lower() (float64, bool) {
	return c.lower, c.Case.HasLower()
}

// Upper returns the upper limit and whether it is present.
func (c Classification) Upper() (float64, bool) {
	return c.upper, c.Case.HasUpper()
}

// Target returns the midpoint of the limits; only two-bound cases have one.
func (c Classification) Target() (float64, bool) {
	return c.target, c.Case == TwoBound
}

// Limits rebuilds the specification limits the classification came from.
func (c Classification) Limits() SpecLimits {
	var out SpecLimits
	if v, ok := c.Lower(); ok {
		out.Lower = Limit(v)
	}
	if v, ok := c.Upper(); ok {
		out.Upper = Limit(v)
	}
	return out
}

// Classify determines the case for the given limits and derives the target.
// Non-finite limits and lower > upper are rejected with ErrInvalidLimits.
func Classify(limits SpecLimits) (Classification, error) {
	if limits.Lower != nil && !isFinite(*limits.Lower) {
		return Classification{}, &LimitsError{Reason: fmt.Sprintf("lower limit %v is not finite", *limits.Lower)}
	}
	if limits.Upper != nil && !isFinite(*limits.Upper) {
		return Classification{}, &LimitsError{Reason: fmt.Sprintf("upper limit %v is not finite", *limits.Upper)}
	}

	switch {
	case limits.Lower == nil && limits.Upper == nil:
		return Classification{Case: NoBound}, nil
	case limits.Lower != nil && limits.Upper != nil:
		lower, upper := *limits.Lower, *limits.Upper
		if lower > upper {
			return Classification{}, &LimitsError{
				Reason: fmt.Sprintf("lower limit %g is greater than upper limit %g", lower, upper),
			}
		}
		return Classification{
			Case:   TwoBound,
			lower:  lower,
			upper:  upper,
			target: (lower + upper) / 2,
		}, nil
	case limits.Lower != nil:
		return Classification{Case: LowerOnly, lower: *limits.Lower}, nil
	default:
		return Classification{Case: UpperOnly, upper: *limits.Upper}, nil
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
