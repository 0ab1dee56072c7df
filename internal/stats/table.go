// Package stats contains statistics calculations and text rendering helpers.
package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// FormatTable aligns rows into columns separated by a single space.
func FormatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

// JoinColumns lays out blocks of lines side by side, padding each block to its
// widest line and separating blocks with gap spaces.
func JoinColumns(gap int, blocks ...[]string) []string {
	if len(blocks) == 0 {
		return nil
	}
	height := 0
	widths := make([]int, len(blocks))
	for i, block := range blocks {
		if len(block) > height {
			height = len(block)
		}
		for _, line := range block {
			if w := displayWidth(line); w > widths[i] {
				widths[i] = w
			}
		}
	}
	sep := strings.Repeat(" ", gap)
	out := make([]string, height)
	for y := 0; y < height; y++ {
		var b strings.Builder
		for i, block := range blocks {
			if i > 0 {
				b.WriteString(sep)
			}
			cell := ""
			if y < len(block) {
				cell = block[y]
			}
			if i == len(blocks)-1 {
				b.WriteString(cell)
				continue
			}
			b.WriteString(padCell(cell, widths[i], false))
		}
		out[y] = strings.TrimRight(b.String(), " ")
	}
	return out
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return b.String()
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
