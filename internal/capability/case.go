// Package capability classifies specification limits, computes process
// capability and performance indices, and formats them into report panels.
//
// Everything in this package is a pure function of its inputs: there is no
// shared state, no I/O and no logging, so reports may be computed
// concurrently over the same read-only sample.
package capability

import "fmt"

// Case says which specification limits are present. It drives every formula
// and formatting decision downstream.
type Case int

const (
	// NoBound means neither limit is given; capability is undefined.
	NoBound Case = iota
	// LowerOnly means only the lower specification limit is given.
	LowerOnly
	// UpperOnly means only the upper specification limit is given.
	UpperOnly
	// TwoBound means both limits are given and a target is defined.
	TwoBound
)

// String returns the string representation of the case.
func (c Case) String() string {
	switch c {
	case NoBound:
		return "no bound"
	case LowerOnly:
		return "lower only"
	case UpperOnly:
		return "upper only"
	case TwoBound:
		return "two bound"
	default:
		return fmt.Sprintf("Case(%d)", int(c))
	}
}

// HasLower reports whether the case includes a lower limit.
func (c Case) HasLower() bool {
	return c == LowerOnly || c == TwoBound
}

// HasUpper reports whether the case includes an upper limit.
func (c Case) HasUpper() bool {
	return c == UpperOnly || c == TwoBound
}

// SpecLimits holds the optional lower and upper specification limits.
// A nil pointer means the limit is absent.
type SpecLimits struct {
	Lower *float64
	Upper *float64
}

// Limit returns a pointer to v, for building SpecLimits literals.
func Limit(v float64) *float64 {
	return &v
}
