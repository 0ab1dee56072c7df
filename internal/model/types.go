// Package model defines shared data structures.
package model

import "time"

// ReportConfig defines report settings resolved from flags and config.
type ReportConfig struct {
	Title     string
	LongTerm  bool
	Bins      int
	Sigma     float64
	Width     int
	Height    int
	PNGWidth  int
	PNGHeight int
}

// Dataset is a named sample stored with its specification limits.
type Dataset struct {
	ID         int64
	Name       string
	CreatedAt  time.Time
	Source     string
	Lower      *float64
	Upper      *float64
	Values     []float64
	Categories []string
}

// DatasetInfo summarizes a dataset without loading its values.
type DatasetInfo struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	Source    string
	Count     int
	Lower     *float64
	Upper     *float64
}

// ReportRecord captures one analysis run against a stored dataset.
type ReportRecord struct {
	ID          int64
	DatasetID   int64
	CreatedAt   time.Time
	Case        string
	Count       int
	Mean        float64
	StdDev      float64
	Lower       *float64
	Upper       *float64
	IndexValues []IndexValue
}

// IndexValue stores a single index; a nil Value means it was undefined.
type IndexValue struct {
	Name  string
	Value *float64
}
