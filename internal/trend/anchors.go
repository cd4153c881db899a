package trend

import (
	"time"

	"KinneretSentinel/internal/model"
)

type anchor struct {
	record model.Record
	day    time.Time
}

// findAnchor returns the record closest to target within the tolerance window.
// The reference day itself never serves as its own anchor. Ties keep the first match in history order.
func findAnchor(history []model.Record, referenceDate string, target time.Time) *anchor {
	var (
		best     *anchor
		bestDiff int
	)
	for _, r := range history {
		if r.Date == referenceDate {
			continue
		}
		day, err := model.ParseDay(r.Date)
		if err != nil {
			continue
		}
		diff := abs(model.DaysBetween(day, target))
		if best == nil || diff < bestDiff {
			best = &anchor{record: r, day: day}
			bestDiff = diff
		}
	}
	if best == nil || bestDiff > anchorToleranceDays {
		return nil
	}
	return best
}

func recordsUpTo(history []model.Record, date string) []model.Record {
	out := make([]model.Record, 0, len(history))
	for _, r := range history {
		if r.Date <= date {
			out = append(out, r)
		}
	}
	return out
}

func extremes(records []model.Record, refDay time.Time) (high, low *model.HistoricalPoint) {
	var hi, lo *model.Record
	for i := range records {
		r := &records[i]
		if hi == nil || r.Level > hi.Level {
			hi = r
		}
		if lo == nil || r.Level < lo.Level {
			lo = r
		}
	}
	if hi == nil {
		return nil, nil
	}
	return point(*hi, refDay), point(*lo, refDay)
}

func point(r model.Record, refDay time.Time) *model.HistoricalPoint {
	p := &model.HistoricalPoint{Level: r.Level, Date: r.Date}
	if day, err := model.ParseDay(r.Date); err == nil {
		p.YearsAgo = fullYears(day, refDay)
	}
	return p
}

// fullYears counts complete years from a to b.
func fullYears(a, b time.Time) int {
	years := b.Year() - a.Year()
	if b.Month() < a.Month() || (b.Month() == a.Month() && b.Day() < a.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// rankPercentile is the share of recorded levels at or below level, in whole percent.
func rankPercentile(records []model.Record, level float64) int {
	if len(records) == 0 {
		return 0
	}
	n := 0
	for _, r := range records {
		if r.Level <= level {
			n++
		}
	}
	return int(float64(n)*100/float64(len(records)) + 0.5)
}

func compareYears(history []model.Record, reference model.Record, refDay time.Time) []model.YearComparison {
	out := make([]model.YearComparison, 0, comparisonYears)
	for n := 1; n <= comparisonYears; n++ {
		target := model.SubYears(refDay, n)
		a := findAnchor(history, reference.Date, target)
		if a == nil {
			continue
		}
		out = append(out, model.YearComparison{
			Year:       target.Year(),
			Level:      a.record.Level,
			Difference: Centimeters(reference.Level, a.record.Level),
		})
	}
	return out
}
