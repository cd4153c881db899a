package content

import (
	"fmt"
	"math"
	"strings"

	"KinneretSentinel/internal/model"
)

var seasonNames = map[model.Season]string{
	model.SeasonWinterFilling: "עונת גשמים ומילוי",
	model.SeasonSpringPeak:    "שיא אביב",
	model.SeasonSummerDecline: "ירידה קיצית",
	model.SeasonAutumnLow:     "שפל סתווי",
}

// BuildPrompt renders the Hebrew instruction prompt for a record and its trend snapshot.
func BuildPrompt(rec model.Record, snap *model.TrendSnapshot, maxLength int) string {
	var b strings.Builder

	b.WriteString("אתה בוט המדווח מדי יום על מפלס הכנרת. כתוב ציוץ אחד בעברית על מצב המים.\n\n")

	b.WriteString("נתונים עדכניים:\n")
	fmt.Fprintf(&b, "- תאריך מדידה: %s\n", rec.Date)
	fmt.Fprintf(&b, "- מפלס: %.2f- מטר\n", math.Abs(rec.Level))
	fmt.Fprintf(&b, "- מרחק מהקו האדום העליון: %d ס״מ\n", snap.GapToUpperRedLine)
	fmt.Fprintf(&b, "- מרחק מהקו האדום התחתון: %d ס״מ\n", abs(snap.GapToLowerRedLine))
	fmt.Fprintf(&b, "- מרחק מהקו השחור: %d ס״מ\n", abs(snap.GapToBlackLine))
	if snap.IsNearCriticalThreshold {
		b.WriteString("- המפלס קרוב לקו קריטי (פחות מ-50 ס״מ)\n")
	}

	b.WriteString("\nמגמות:\n")
	direction := "יורד"
	if snap.IsRising {
		direction = "עולה"
	}
	fmt.Fprintf(&b, "- %s בקצב ממוצע של %.1f ס״מ ליום (7 ימים)\n", direction, math.Abs(snap.AverageDailyChange7Days))
	fmt.Fprintf(&b, "- שינוי בשבוע האחרון: %s\n", signedCm(snap.Change7Days))
	fmt.Fprintf(&b, "- שינוי בחודש האחרון: %s\n", signedCm(snap.Change30Days))
	if snap.ChangeYearAgo != nil {
		fmt.Fprintf(&b, "- לעומת שנה שעברה: %s\n", signedCm(snap.ChangeYearAgo))
	}
	fmt.Fprintf(&b, "- הקשר עונתי: %s\n", seasonNames[snap.SeasonalContext])
	switch {
	case snap.DaysToUpperRedLine != nil:
		fmt.Fprintf(&b, "- אם המגמה תימשך, יגיע לקו האדום העליון בעוד כ-%d ימים\n", *snap.DaysToUpperRedLine)
	case snap.DaysToLowerRedLine != nil:
		fmt.Fprintf(&b, "- אם המגמה תימשך, יגיע לקו האדום התחתון בעוד כ-%d ימים\n", *snap.DaysToLowerRedLine)
	case snap.DaysToBlackLine != nil:
		fmt.Fprintf(&b, "- אם המגמה תימשך, יגיע לקו השחור בעוד כ-%d ימים\n", *snap.DaysToBlackLine)
	}

	if snap.HistoricalHigh != nil || len(snap.ComparisonToPreviousYears) > 0 {
		b.WriteString("\nהקשר היסטורי:\n")
		if h := snap.HistoricalHigh; h != nil {
			fmt.Fprintf(&b, "- שיא בנתונים: %.2f- מטר (%s, לפני %d שנים)\n", math.Abs(h.Level), h.Date, h.YearsAgo)
		}
		if l := snap.HistoricalLow; l != nil {
			fmt.Fprintf(&b, "- שפל בנתונים: %.2f- מטר (%s, לפני %d שנים)\n", math.Abs(l.Level), l.Date, l.YearsAgo)
		}
		fmt.Fprintf(&b, "- דירוג: %d%% (%s)\n", snap.RankPercentile, rankLabel(snap.RankPercentile))
		for _, c := range snap.ComparisonToPreviousYears {
			fmt.Fprintf(&b, "- %d: %.2f- מטר (%+d ס״מ לעומת היום)\n", c.Year, math.Abs(c.Level), c.Difference)
		}
	}

	b.WriteString("\nהנחיות:\n")
	fmt.Fprintf(&b, "1. עד %d תווים כולל רווחים.\n", maxLength)
	b.WriteString("2. כלול תמיד את המפלס המדויק והקשר משמעותי אחד לפחות.\n")
	b.WriteString("3. אם המפלס קרוב לקו קריטי, הדגש זאת בבהירות.\n")
	b.WriteString("4. גוון בסגנון: מגמה, השוואה שנתית, נתון היסטורי או צפי.\n")
	b.WriteString("5. ללא אימוג׳ים, ללא האשטגים, והחזר את הציוץ בלבד.\n")
	return b.String()
}

func signedCm(v *int) string {
	if v == nil {
		return "לא זמין"
	}
	return fmt.Sprintf("%+d ס״מ", *v)
}

func rankLabel(p int) string {
	switch {
	case p > 80:
		return "גבוה מאוד"
	case p > 60:
		return "גבוה"
	case p > 40:
		return "ממוצע"
	case p > 20:
		return "נמוך"
	default:
		return "נמוך מאוד"
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
