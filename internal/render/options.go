// Package render draws capability histograms, control charts and box plots as
// terminal text, PNG images or standalone HTML pages.
//
// Renderers never compute capability themselves. They take a
// capability.Report together with the raw sample it was computed from.
package render

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/spcplot/internal/stats"
)

// Output formats.
const (
	FormatText = "text"
	FormatPNG  = "png"
	FormatHTML = "html"
)

// Default figure settings.
const (
	DefaultPNGWidth   = 1000
	DefaultPNGHeight  = 500
	DefaultTextWidth  = 40
	DefaultTextHeight = 10
	DefaultBarColor   = "#336699"
	DefaultCurveColor = "#8B0000"
	DefaultBackground = "#D3D3D3"
	DefaultBoxWidth   = 0.5
	curvePoints       = 100
)

// Options carries every cosmetic choice a renderer makes.
type Options struct {
	Title string
	Bins  int
	// Width and Height size the text plots in terminal cells.
	Width  int
	Height int
	// PNGWidth and PNGHeight size the composed image in pixels.
	PNGWidth   int
	PNGHeight  int
	BarColor   string
	CurveColor string
	Background string
	// Color enables ANSI colors in text output.
	Color bool
	// YMin and YMax clamp the box plot scale when set.
	YMin *float64
	YMax *float64
	// BoxWidth is the box width in PNG box plots as a fraction of the
	// spacing between groups.
	BoxWidth float64
	// BoxHollow draws PNG boxes as outlines only.
	BoxHollow bool
	// Swarm overlays every observation on the PNG box plot.
	Swarm bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Bins:       stats.DefaultBins,
		Width:      DefaultTextWidth,
		Height:     DefaultTextHeight,
		PNGWidth:   DefaultPNGWidth,
		PNGHeight:  DefaultPNGHeight,
		BarColor:   DefaultBarColor,
		CurveColor: DefaultCurveColor,
		Background: DefaultBackground,
		BoxWidth:   DefaultBoxWidth,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Bins <= 0 {
		o.Bins = d.Bins
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.PNGWidth <= 0 {
		o.PNGWidth = d.PNGWidth
	}
	if o.PNGHeight <= 0 {
		o.PNGHeight = d.PNGHeight
	}
	if o.BarColor == "" {
		o.BarColor = d.BarColor
	}
	if o.CurveColor == "" {
		o.CurveColor = d.CurveColor
	}
	if o.Background == "" {
		o.Background = d.Background
	}
	if o.BoxWidth <= 0 || o.BoxWidth > 1 {
		o.BoxWidth = d.BoxWidth
	}
	return o
}

// ParseFormat normalizes an output format name.
func ParseFormat(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatText, "txt":
		return FormatText, nil
	case FormatPNG:
		return FormatPNG, nil
	case FormatHTML, "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, png or html)", name)
	}
}
