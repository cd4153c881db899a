// Package history owns the canonical, date-unique water level history.
package history

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"KinneretSentinel/internal/model"
)

// rawDateLayout is the day/month/year form used by the open data feed.
const rawDateLayout = "2/1/2006"

// DroppedRecord is a raw reading rejected during merge.
type DroppedRecord struct {
	Raw    model.RawRecord
	Reason string
}

// MergeResult is the outcome of merging a batch of raw readings.
type MergeResult struct {
	History  []model.Record // descending by date, unique dates
	NewCount int
	Dropped  []DroppedRecord
}

// Merge validates raw readings and inserts those whose date is not yet known.
// Existing values are never overwritten. now decides which dates lie in the future.
func Merge(raw []model.RawRecord, existing []model.Record, now time.Time) MergeResult {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	seen := make(map[string]struct{}, len(existing)+len(raw))
	merged := make([]model.Record, 0, len(existing)+len(raw))
	for _, r := range existing {
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		merged = append(merged, r)
	}

	var res MergeResult
	for _, r := range raw {
		rec, err := normalize(r, today)
		if err != nil {
			res.Dropped = append(res.Dropped, DroppedRecord{Raw: r, Reason: err.Error()})
			continue
		}
		if _, ok := seen[rec.Date]; ok {
			continue
		}
		seen[rec.Date] = struct{}{}
		merged = append(merged, rec)
		res.NewCount++
	}

	SortDescending(merged)
	res.History = merged
	return res
}

func normalize(r model.RawRecord, today time.Time) (model.Record, error) {
	date, err := time.Parse(rawDateLayout, strings.TrimSpace(r.DateString))
	if err != nil {
		return model.Record{}, fmt.Errorf("invalid date %q", r.DateString)
	}
	if date.After(today) {
		return model.Record{}, fmt.Errorf("future date %s", date.Format(model.DateLayout))
	}
	s := strings.TrimSpace(r.Level)
	if s == "" {
		return model.Record{}, fmt.Errorf("empty level")
	}
	level, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(level) || math.IsInf(level, 0) {
		return model.Record{}, fmt.Errorf("invalid level %q", r.Level)
	}
	return model.Record{Date: date.Format(model.DateLayout), Level: level}, nil
}

// SortDescending orders records newest first. Canonical dates sort lexicographically.
func SortDescending(records []model.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })
}
