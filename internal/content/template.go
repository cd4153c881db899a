package content

import (
	"fmt"
	"math"

	"KinneretSentinel/internal/model"
	"KinneretSentinel/internal/trend"
)

var hebrewDays = [...]string{"ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת"}

var hebrewMonths = [...]string{
	"ינואר", "פברואר", "מרץ", "אפריל", "מאי", "יוני",
	"יולי", "אוגוסט", "ספטמבר", "אוקטובר", "נובמבר", "דצמבר",
}

// Template is the deterministic Hebrew message built from the record and the upper red line.
type Template struct{}

// Format never fails. A record with an unparseable date falls back to the raw date string.
func (Template) Format(rec model.Record, upperRedLine float64) string {
	when := rec.Date
	if day, err := model.ParseDay(rec.Date); err == nil {
		when = fmt.Sprintf("ביום %s ה-%d ל%s %d",
			hebrewDays[day.Weekday()], day.Day(), hebrewMonths[day.Month()-1], day.Year())
	}
	gap := trend.Centimeters(upperRedLine, rec.Level)

	return fmt.Sprintf("מפלס הכנרת שנמדד %s עומד על %.3f-, וכעת וחסרים לה %d סנטימטר לקו האדום העליון (%.2f-)",
		when, math.Abs(rec.Level), gap, math.Abs(upperRedLine))
}
