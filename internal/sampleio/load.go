// Package sampleio loads measurement samples from plain text and CSV files.
package sampleio

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrEmptySample is returned when a source holds no values.
var ErrEmptySample = errors.New("sample is empty")

// Sample is a loaded measurement series with optional category labels.
type Sample struct {
	Source     string
	Values     []float64
	Categories []string
}

// Options selects columns when reading CSV input.
type Options struct {
	// Column is the CSV header naming the measurement column. Setting it
	// forces CSV parsing.
	Column string
	// CategoryColumn is the optional CSV header holding group labels.
	CategoryColumn string
}

// LineError reports an unparsable value with its 1-based line number.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: invalid value %q: %v", e.Line, e.Text, e.Err)
}

// Unwrap returns the parse error.
func (e *LineError) Unwrap() error {
	return e.Err
}

// LoadFile reads a sample from path. Files ending in .gz are decompressed.
func LoadFile(path string, opts Options) (Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return Sample{}, err
	}
	defer file.Close()

	var r io.Reader = file
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return Sample{}, fmt.Errorf("failed to open gzip sample: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return Load(r, path, opts)
}

// Load reads a sample from r. Input is treated as CSV when a column is
// requested or the first data line contains a comma, semicolon or tab;
// otherwise every whitespace-separated token is a value.
func Load(r io.Reader, source string, opts Options) (Sample, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read sample: %w", err)
	}
	first := firstDataLine(string(data))
	comma := detectComma(first)

	var sample Sample
	if opts.Column != "" || opts.CategoryColumn != "" || comma != 0 {
		if comma == 0 {
			comma = ','
		}
		sample, err = loadCSV(bytes.NewReader(data), comma, opts)
	} else {
		sample, err = loadPlain(bytes.NewReader(data))
	}
	if err != nil {
		return Sample{}, err
	}
	if len(sample.Values) == 0 {
		return Sample{}, fmt.Errorf("%w: %s", ErrEmptySample, source)
	}
	sample.Source = source
	return sample, nil
}

func firstDataLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			return trimmed
		}
	}
	return ""
}

// detectComma returns the CSV delimiter used by line, or 0 for plain input.
func detectComma(line string) rune {
	switch {
	case strings.ContainsRune(line, '\t'):
		return '\t'
	case strings.ContainsRune(line, ','):
		return ','
	case strings.ContainsRune(line, ';'):
		return ';'
	default:
		return 0
	}
}

func loadPlain(r io.Reader) (Sample, error) {
	var sample Sample
	scanner := bufio.NewScanner(r)
	lineNo := 0
	firstData := true
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		// A single-column file may start with a header.
		if firstData && len(fields) == 1 {
			firstData = false
			if _, err := parseValue(fields[0]); err != nil {
				continue
			}
		}
		firstData = false
		for _, field := range fields {
			v, err := parseValue(field)
			if err != nil {
				return Sample{}, &LineError{Line: lineNo, Text: field, Err: err}
			}
			sample.Values = append(sample.Values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return Sample{}, err
	}
	return sample, nil
}

// csvRecord is a parsed CSV row with the line it started on.
type csvRecord struct {
	line   int
	fields []string
}

// loadCSV reads delimited input. The first record is a header when a column
// is named or its first field is not a number. Headerless input where every
// field is numeric is a delimited value list; otherwise the first column holds
// the values.
func loadCSV(r io.Reader, comma rune, opts Options) (Sample, error) {
	records, err := readRecords(r, comma)
	if err != nil {
		return Sample{}, err
	}
	if len(records) == 0 {
		return Sample{}, nil
	}

	named := opts.Column != "" || opts.CategoryColumn != ""
	if !named && isNumeric(records[0].fields[0]) {
		if allNumeric(records) {
			return flattenRecords(records), nil
		}
		return collectColumn(records, 0, -1)
	}

	header := records[0].fields
	valueIdx := 0
	if opts.Column != "" {
		if valueIdx = columnIndex(header, opts.Column); valueIdx < 0 {
			return Sample{}, fmt.Errorf("column %q not found in header %v", opts.Column, header)
		}
	}
	catIdx := -1
	if opts.CategoryColumn != "" {
		if catIdx = columnIndex(header, opts.CategoryColumn); catIdx < 0 {
			return Sample{}, fmt.Errorf("category column %q not found in header %v", opts.CategoryColumn, header)
		}
	}
	return collectColumn(records[1:], valueIdx, catIdx)
}

func readRecords(r io.Reader, comma rune) ([]csvRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []csvRecord
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, csvRecord{line: line, fields: fields})
	}
}

func collectColumn(records []csvRecord, valueIdx, catIdx int) (Sample, error) {
	var sample Sample
	for _, rec := range records {
		if valueIdx >= len(rec.fields) || strings.TrimSpace(rec.fields[valueIdx]) == "" {
			continue
		}
		v, err := parseValue(rec.fields[valueIdx])
		if err != nil {
			return Sample{}, &LineError{Line: rec.line, Text: rec.fields[valueIdx], Err: err}
		}
		sample.Values = append(sample.Values, v)
		if catIdx >= 0 {
			cat := ""
			if catIdx < len(rec.fields) {
				cat = strings.TrimSpace(rec.fields[catIdx])
			}
			sample.Categories = append(sample.Categories, cat)
		}
	}
	return sample, nil
}

func flattenRecords(records []csvRecord) Sample {
	var sample Sample
	for _, rec := range records {
		for _, field := range rec.fields {
			if v, err := parseValue(field); err == nil {
				sample.Values = append(sample.Values, v)
			}
		}
	}
	return sample
}

func allNumeric(records []csvRecord) bool {
	for _, rec := range records {
		for _, field := range rec.fields {
			if strings.TrimSpace(field) != "" && !isNumeric(field) {
				return false
			}
		}
	}
	return true
}

func isNumeric(field string) bool {
	_, err := parseValue(field)
	return err == nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func parseValue(text string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(text), 64)
}
