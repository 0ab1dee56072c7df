package capability

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/verte-zerg/spcplot/internal/stats"
)

// Panel titles and fixed texts.
const (
	ProcessDataTitle       = "Process Data"
	CapabilityTitle        = "Capability"
	WithinCapabilityTitle  = "Potential (Within) Capability"
	OverallCapabilityTitle = "Overall Capability"
	NoLimitsPlaceholder    = "capability undefined, no limits given"
	AbsentLimit            = "None"
)

// Process data labels.
const (
	LabelLSL           = "LSL"
	LabelTarget        = "Target"
	LabelUSL           = "USL"
	LabelMean          = "Sample Mean"
	LabelStdDev        = "Sample Std Dev"
	LabelOverallStdDev = "Overall Std Dev"
	LabelCount         = "Sample N"
)

// Line is a labeled value. A line without a value is a group heading.
type Line struct {
	Label string
	Value string
}

// IsHeading reports whether the line has no value.
func (l Line) IsHeading() bool {
	return l.Value == ""
}

func (l Line) String() string {
	if l.IsHeading() {
		return l.Label
	}
	return l.Label + ": " + l.Value
}

// Block is an ordered list of lines under a title.
type Block struct {
	Title string
	Lines []Line
}

// Strings returns the title followed by each rendered line.
func (b Block) Strings() []string {
	out := make([]string, 0, len(b.Lines)+1)
	if b.Title != "" {
		out = append(out, b.Title)
	}
	for _, line := range b.Lines {
		out = append(out, line.String())
	}
	return out
}

func (b Block) String() string {
	return strings.Join(b.Strings(), "\n")
}

// FormatOptions controls optional report content.
type FormatOptions struct {
	// LongTerm adds the overall standard deviation and the Pp family.
	LongTerm bool
}

// Format builds the process data and capability panels.
func Format(c Classification, s stats.Summary, ix Indices, opts FormatOptions) (Block, Block, error) {
	processData := Block{Title: ProcessDataTitle}
	switch c.Case {
	case NoBound:
	case LowerOnly, UpperOnly, TwoBound:
		lower, hasLower := c.Lower()
		target, hasTarget := c.Target()
		upper, hasUpper := c.Upper()
		processData.Lines = append(processData.Lines,
			Line{Label: LabelLSL, Value: formatLimit(lower, hasLower)},
			Line{Label: LabelTarget, Value: formatLimit(target, hasTarget)},
			Line{Label: LabelUSL, Value: formatLimit(upper, hasUpper)},
		)
	default:
		return Block{}, Block{}, fmt.Errorf("%w: %d", ErrUnknownCase, int(c.Case))
	}
	processData.Lines = append(processData.Lines,
		Line{Label: LabelMean, Value: formatProcess(s.Mean)},
		Line{Label: LabelStdDev, Value: formatProcess(s.StdDevSample)},
	)
	if opts.LongTerm {
		processData.Lines = append(processData.Lines, Line{Label: LabelOverallStdDev, Value: formatProcess(s.StdDevPopulation)})
	}
	processData.Lines = append(processData.Lines, Line{Label: LabelCount, Value: strconv.Itoa(s.Count)})

	var within, overall []IndexName
	switch c.Case {
	case NoBound:
		return processData, Block{
			Title: CapabilityTitle,
			Lines: []Line{{Label: NoLimitsPlaceholder}},
		}, nil
	case LowerOnly:
		within, overall = []IndexName{CPL}, []IndexName{PPL}
	case UpperOnly:
		within, overall = []IndexName{CPU}, []IndexName{PPU}
	case TwoBound:
		within = []IndexName{Cp, CPL, CPU, Cpk}
		overall = []IndexName{Pp, PPL, PPU, Ppk}
	}

	capability := Block{Title: WithinCapabilityTitle}
	capability.Lines = appendIndexLines(capability.Lines, ix, within)
	if opts.LongTerm {
		capability.Lines = append(capability.Lines, Line{Label: OverallCapabilityTitle})
		capability.Lines = appendIndexLines(capability.Lines, ix, overall)
	}
	return processData, capability, nil
}

func appendIndexLines(lines []Line, ix Indices, names []IndexName) []Line {
	for _, name := range names {
		v, _ := ix.Lookup(name)
		lines = append(lines, Line{Label: string(name), Value: v.String()})
	}
	return lines
}

func formatLimit(v float64, ok bool) string {
	if !ok {
		return AbsentLimit
	}
	return formatProcess(v)
}

func formatProcess(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
