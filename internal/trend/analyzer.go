// Package trend derives descriptive metrics from the level history.
package trend

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"KinneretSentinel/internal/model"
)

const (
	// anchorToleranceDays is how far a historical record may sit from its target date.
	anchorToleranceDays = 7
	// criticalDistanceCm marks a level as near a floor line.
	criticalDistanceCm = 50
	// comparisonYears is how many previous years are compared against the reference day.
	comparisonYears = 3
)

var hundred = decimal.NewFromInt(100)

// Analyze builds the trend snapshot for reference against the full history.
// It is pure: missing anchors produce nil deltas, never errors.
func Analyze(history []model.Record, reference model.Record, th model.Thresholds) model.TrendSnapshot {
	snap := model.TrendSnapshot{
		CurrentLevel:      reference.Level,
		CurrentDate:       reference.Date,
		GapToUpperRedLine: Centimeters(th.UpperRedLine, reference.Level),
		GapToLowerRedLine: Centimeters(th.LowerRedLine, reference.Level),
		GapToBlackLine:    Centimeters(th.BlackLine, reference.Level),
	}

	snap.NearestThreshold, snap.DistanceToNearest = nearestThreshold(snap)
	snap.IsNearCriticalThreshold = abs(snap.GapToLowerRedLine) < criticalDistanceCm ||
		abs(snap.GapToBlackLine) < criticalDistanceCm

	refDay, err := model.ParseDay(reference.Date)
	if err != nil {
		return snap
	}
	snap.SeasonalContext = SeasonOf(refDay.Month())

	anchor7 := findAnchor(history, reference.Date, refDay.AddDate(0, 0, -7))
	anchor30 := findAnchor(history, reference.Date, refDay.AddDate(0, 0, -30))
	anchorYear := findAnchor(history, reference.Date, model.SubYears(refDay, 1))

	snap.Change7Days = delta(reference, anchor7)
	snap.Change30Days = delta(reference, anchor30)
	snap.ChangeYearAgo = delta(reference, anchorYear)

	if anchor7 != nil {
		if days := model.DaysBetween(refDay, anchor7.day); days != 0 {
			snap.AverageDailyChange7Days = float64(*snap.Change7Days) / float64(days)
		}
	}
	snap.IsRising = snap.AverageDailyChange7Days > 0
	project(&snap)

	population := recordsUpTo(history, reference.Date)
	snap.HistoricalHigh, snap.HistoricalLow = extremes(population, refDay)
	snap.RankPercentile = rankPercentile(population, reference.Level)
	snap.ComparisonToPreviousYears = compareYears(history, reference, refDay)

	return snap
}

// Centimeters returns round((a - b) * 100), rounding half away from zero.
func Centimeters(a, b float64) int {
	d := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Mul(hundred).Round(0)
	return int(d.IntPart())
}

// SeasonOf maps a calendar month to its seasonal phase.
func SeasonOf(m time.Month) model.Season {
	switch m {
	case time.December, time.January, time.February:
		return model.SeasonWinterFilling
	case time.March, time.April:
		return model.SeasonSpringPeak
	case time.May, time.June, time.July, time.August:
		return model.SeasonSummerDecline
	default:
		return model.SeasonAutumnLow
	}
}

// project fills at most one day-count projection, in priority order upper, lower, black.
// A negative floor gap means the level is still above that floor.
func project(snap *model.TrendSnapshot) {
	rate := snap.AverageDailyChange7Days
	if rate == 0 {
		return
	}
	switch {
	case rate > 0 && snap.GapToUpperRedLine > 0:
		snap.DaysToUpperRedLine = intPtr(int(math.Round(float64(snap.GapToUpperRedLine) / rate)))
	case rate < 0 && snap.GapToLowerRedLine < 0:
		snap.DaysToLowerRedLine = intPtr(int(math.Round(float64(abs(snap.GapToLowerRedLine)) / math.Abs(rate))))
	case rate < 0 && snap.GapToBlackLine < 0:
		snap.DaysToBlackLine = intPtr(int(math.Round(float64(abs(snap.GapToBlackLine)) / math.Abs(rate))))
	}
}

func nearestThreshold(snap model.TrendSnapshot) (model.ThresholdName, int) {
	candidates := []struct {
		name model.ThresholdName
		gap  int
	}{
		{model.ThresholdUpperRed, snap.GapToUpperRedLine},
		{model.ThresholdLowerRed, snap.GapToLowerRedLine},
		{model.ThresholdBlack, snap.GapToBlackLine},
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if abs(c.gap) < abs(best.gap) {
			best = c
		}
	}
	return best.name, abs(best.gap)
}

func delta(reference model.Record, a *anchor) *int {
	if a == nil {
		return nil
	}
	return intPtr(Centimeters(reference.Level, a.record.Level))
}

func intPtr(v int) *int { return &v }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
