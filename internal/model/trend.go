package model

// Season classifies the time of year by its typical hydrological phase.
type Season string

const (
	SeasonWinterFilling Season = "winter_filling"
	SeasonSpringPeak    Season = "spring_peak"
	SeasonSummerDecline Season = "summer_decline"
	SeasonAutumnLow     Season = "autumn_low"
)

// ThresholdName identifies one of the three regulatory lines.
type ThresholdName string

const (
	ThresholdUpperRed ThresholdName = "upper_red"
	ThresholdLowerRed ThresholdName = "lower_red"
	ThresholdBlack    ThresholdName = "black"
)

// HistoricalPoint is an extreme of the recorded history.
type HistoricalPoint struct {
	Level    float64 `json:"level"`
	Date     string  `json:"date"`
	YearsAgo int     `json:"years_ago"`
}

// YearComparison compares the current level with the same calendar day in an earlier year.
type YearComparison struct {
	Year       int     `json:"year"`
	Level      float64 `json:"level"`
	Difference int     `json:"difference"` // cm, current minus past
}

// TrendSnapshot is derived from history for one reference record. It is never persisted.
// Gaps and changes are in centimeters.
type TrendSnapshot struct {
	CurrentLevel float64 `json:"current_level"`
	CurrentDate  string  `json:"current_date"`

	GapToUpperRedLine int `json:"gap_to_upper_red_line"`
	GapToLowerRedLine int `json:"gap_to_lower_red_line"`
	GapToBlackLine    int `json:"gap_to_black_line"`

	Change7Days   *int `json:"change_7_days"`
	Change30Days  *int `json:"change_30_days"`
	ChangeYearAgo *int `json:"change_year_ago"`

	AverageDailyChange7Days float64 `json:"average_daily_change_7_days"`
	IsRising                bool    `json:"is_rising"`

	DaysToUpperRedLine *int `json:"days_to_upper_red_line"`
	DaysToLowerRedLine *int `json:"days_to_lower_red_line"`
	DaysToBlackLine    *int `json:"days_to_black_line"`

	SeasonalContext Season `json:"seasonal_context"`

	NearestThreshold        ThresholdName `json:"nearest_threshold"`
	DistanceToNearest       int           `json:"distance_to_nearest"`
	IsNearCriticalThreshold bool          `json:"is_near_critical_threshold"`

	HistoricalHigh            *HistoricalPoint `json:"historical_high"`
	HistoricalLow             *HistoricalPoint `json:"historical_low"`
	RankPercentile            int              `json:"rank_percentile"`
	ComparisonToPreviousYears []YearComparison `json:"comparison_to_previous_years"`
}
