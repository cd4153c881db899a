package content

import (
	"fmt"
	"math"
	"strings"

	"KinneretSentinel/internal/model"
)

// FormatStatus renders an HTML status message for chat replies.
func FormatStatus(snap *model.TrendSnapshot, watermark model.Watermark) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌊 <b>מפלס הכנרת</b> | %s\n\n", snap.CurrentDate)
	fmt.Fprintf(&b, "מפלס: %.3f-\n", math.Abs(snap.CurrentLevel))
	fmt.Fprintf(&b, "לקו האדום העליון: %d ס״מ\n", snap.GapToUpperRedLine)
	fmt.Fprintf(&b, "לקו האדום התחתון: %d ס״מ\n", snap.GapToLowerRedLine)
	fmt.Fprintf(&b, "לקו השחור: %d ס״מ\n", snap.GapToBlackLine)
	fmt.Fprintf(&b, "שבוע: %s | חודש: %s\n", signedCm(snap.Change7Days), signedCm(snap.Change30Days))
	fmt.Fprintf(&b, "עונה: %s\n", seasonNames[snap.SeasonalContext])
	if snap.IsNearCriticalThreshold {
		b.WriteString("\n⚠️ <b>קרוב לקו קריטי</b>\n")
	}
	if watermark.IsSet() {
		fmt.Fprintf(&b, "\nפורסם לאחרונה: %s\n", watermark)
	}
	return b.String()
}
