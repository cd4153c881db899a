package model

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-day representation used as the history key.
const DateLayout = "2006-01-02"

// Record is a single daily water level measurement.
type Record struct {
	Date  string  `json:"date"`  // YYYY-MM-DD
	Level float64 `json:"level"` // meters, negative = below sea level
}

// RawRecord is a reading as delivered by the open data feed, before validation.
type RawRecord struct {
	DateString string // d/M/yyyy
	Level      string // number or numeric string
	SourceID   int64
}

// Thresholds holds the regulatory lines on the same scale as Record.Level.
type Thresholds struct {
	UpperRedLine float64 `yaml:"upper_red_line" json:"upper_red_line"`
	LowerRedLine float64 `yaml:"lower_red_line" json:"lower_red_line"`
	BlackLine    float64 `yaml:"black_line" json:"black_line"`
}

// Watermark is the date of the last successfully published record. Empty means unset.
type Watermark string

// IsSet reports whether a publication has ever been committed.
func (w Watermark) IsSet() bool { return w != "" }

// ParseDay parses a canonical YYYY-MM-DD date at UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// DaysBetween returns the whole number of days from b to a (a - b).
func DaysBetween(a, b time.Time) int {
	return int(a.Sub(b).Hours() / 24)
}

// SubYears moves t back n years, clamping Feb 29 to Feb 28 instead of rolling into March.
func SubYears(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y-n, m, 1, 0, 0, 0, 0, t.Location())
	last := target.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(y-n, m, d, 0, 0, 0, 0, t.Location())
}
