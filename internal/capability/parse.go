package capability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrLabelNotFound is returned by Block.Float for a missing label.
var ErrLabelNotFound = errors.New("label not found")

// ParseBlock reads a block back from its rendered form. The first non-empty
// line is the title; every following line is either "Label: Value" or a
// heading.
func ParseBlock(text string) (Block, error) {
	var block Block
	seenTitle := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !seenTitle {
			block.Title = line
			seenTitle = true
			continue
		}
		label, value, ok := strings.Cut(line, ": ")
		if !ok {
			block.Lines = append(block.Lines, Line{Label: line})
			continue
		}
		block.Lines = append(block.Lines, Line{Label: strings.TrimSpace(label), Value: strings.TrimSpace(value)})
	}
	if !seenTitle {
		return Block{}, errors.New("empty block")
	}
	return block, nil
}

// Value returns the raw value for the first line with the given label.
func (b Block) Value(label string) (string, bool) {
	for _, line := range b.Lines {
		if line.Label == label && !line.IsHeading() {
			return line.Value, true
		}
	}
	return "", false
}

// Float parses the numeric value of a labeled line. The undefined marker
// yields an *UndefinedIndexError and an absent limit yields ErrInvalidLimits.
func (b Block) Float(label string) (float64, error) {
	raw, ok := b.Value(label)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrLabelNotFound, label)
	}
	switch raw {
	case UndefinedMarker:
		return 0, &UndefinedIndexError{Index: IndexName(label)}
	case AbsentLimit:
		return 0, &LimitsError{Reason: fmt.Sprintf("%s is absent", label)}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s value %q: %w", label, raw, err)
	}
	return v, nil
}
