// Package domain holds the row view every export format writes
package domain

import (
	"context"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/window"
)

// Rows is a header plus records; Record renders text, Cells keeps types
// (string, int, float64, bool, time.Time, or nil for no value)
type Rows interface {
	Header() []string
	Len() int
	Record(i int) []string
	Cells(i int) []any
}

// Format names an output encoding
type Format string

// Supported formats
const (
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatJSONL Format = "jsonl"
	FormatPG    Format = "pg"
)

// WindowRow is one feature_windows row
type WindowRow struct {
	BatchID     string
	RunID       string
	Participant string
	Start       time.Time
	End         time.Time
	HourOfDay   int
	DayOfWeek   int
	Features    map[string]*float64
	RawLabel    *float64
	// Label is nil for windows without a label
	Label       *int
	HasLabel    bool
}

// StorageRepo persists windows
type StorageRepo interface {
	InsertWindows(ctx context.Context, rows []WindowRow) (int64, error)
}

// SinkPort matches the fusion sink
type SinkPort interface {
	WriteWindows(ctx context.Context, runID string, t window.Table) error
}
