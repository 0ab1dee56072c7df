package capability

import (
	"errors"

	"github.com/verte-zerg/spcplot/internal/stats"
)

// Report bundles everything the renderers need from one analysis.
type Report struct {
	Case           Case
	Classification Classification
	Stats          stats.Summary
	Indices        Indices
	ProcessData    Block
	Capability     Block
}

// Analyze classifies the limits, summarizes the sample, computes the indices
// and formats both panels.
//
// Limit errors are returned before the sample is looked at. When an index is
// undefined the fully formatted report is returned together with an error
// wrapping ErrUndefinedIndex, so callers can still render it.
func Analyze(sample []float64, limits SpecLimits, opts FormatOptions) (Report, error) {
	classification, err := Classify(limits)
	if err != nil {
		return Report{}, err
	}
	summary, err := stats.Summarize(sample)
	if err != nil {
		return Report{}, err
	}
	indices, indexErr := ComputeIndices(classification, summary)
	if indexErr != nil && !errors.Is(indexErr, ErrUndefinedIndex) {
		return Report{}, indexErr
	}
	processData, capability, err := Format(classification, summary, indices, opts)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Case:           classification.Case,
		Classification: classification,
		Stats:          summary,
		Indices:        indices,
		ProcessData:    processData,
		Capability:     capability,
	}, indexErr
}
