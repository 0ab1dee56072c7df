package capability

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/spcplot/internal/stats"
)

// Sentinel errors. Detail errors below unwrap to one of these.
var (
	ErrInvalidLimits  = errors.New("invalid specification limits")
	ErrUndefinedIndex = errors.New("capability index undefined")
	ErrUnknownCase    = errors.New("unknown limit case")

	// Sample errors come from the statistics summarizer.
	ErrInsufficientData = stats.ErrInsufficientData
	ErrNonFiniteSample  = stats.ErrNonFiniteSample
)

// LimitsError reports specification limits that cannot be used.
type LimitsError struct {
	Reason string
}

func (e *LimitsError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidLimits, e.Reason)
}

// Unwrap returns ErrInvalidLimits.
func (e *LimitsError) Unwrap() error {
	return ErrInvalidLimits
}

// UndefinedIndexError names an index that needs a standard deviation of zero
// as its divisor.
type UndefinedIndexError struct {
	Index  IndexName
	Reason string
}

func (e *UndefinedIndexError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", ErrUndefinedIndex, e.Index)
	}
	return fmt.Sprintf("%v: %s (%s)", ErrUndefinedIndex, e.Index, e.Reason)
}

// Unwrap returns ErrUndefinedIndex.
func (e *UndefinedIndexError) Unwrap() error {
	return ErrUndefinedIndex
}
